package steps

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"unicode/utf8"
)

const (
	// StepTypeExec — тип шага запуска команды.
	StepTypeExec = "exec"

	configCommand = "command"
	configArgs    = "args"
	configDir     = "dir"
	configEnv     = "env"

	maxCommandOutput = 4 * 1024
)

// ExecStep запускает внешнюю команду.
//
// Команда запускается без shell. Переменные env добавляются
// к окружению процесса.
//
// Конфигурация:
//
//	{
//	    "command": "make",
//	    "args": ["build", "VERSION={{ .Inputs.version }}"],
//	    "dir": "/src",
//	    "env": {"CGO_ENABLED": "0"}
//	}
type ExecStep struct{}

// NewExecStep создаёт новый ExecStep.
func NewExecStep() *ExecStep {
	return &ExecStep{}
}

// Type возвращает тип шага.
func (s *ExecStep) Type() string {
	return StepTypeExec
}

// Execute запускает команду и ждёт её завершения.
func (s *ExecStep) Execute(ctx context.Context, req *Request) error {
	command := GetConfigString(req.Config, configCommand)
	if command == "" {
		return fmt.Errorf("%w: %s: command is required", ErrInvalidConfig, StepTypeExec)
	}

	cmd := exec.CommandContext(ctx, command, GetConfigStrings(req.Config, configArgs)...)
	cmd.Dir = GetConfigString(req.Config, configDir)

	if env := GetConfigMapString(req.Config, configEnv); len(env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	var output bytes.Buffer
	cmd.Stdout = &output
	cmd.Stderr = &output

	err := cmd.Run()

	req.Logger.Debug("command finished",
		"command", command,
		"output", truncate(output.String(), maxCommandOutput),
	)

	if err == nil {
		return nil
	}
	if ctx.Err() != nil {
		return fmt.Errorf("%w: %v", ErrStepCancelled, ctx.Err())
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return &CommandError{
			Command:  command,
			ExitCode: exitErr.ExitCode(),
			Output:   truncate(output.String(), maxCommandOutput),
		}
	}
	return fmt.Errorf("start command %s: %w", command, err)
}

// CommandError — команда завершилась с ненулевым кодом.
type CommandError struct {
	Command  string
	ExitCode int
	Output   string
}

// Error реализует интерфейс error.
func (e *CommandError) Error() string {
	msg := fmt.Sprintf("%s exited with code %d", e.Command, e.ExitCode)
	if out := strings.TrimSpace(e.Output); out != "" {
		msg += ": " + out
	}
	return msg
}

// Unwrap возвращает ErrCommandFailed.
func (e *CommandError) Unwrap() error {
	return ErrCommandFailed
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	// Не режем многобайтовую руну
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
