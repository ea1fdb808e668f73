package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
)

// Output печатает результаты команд. Данные идут в stdout (таблица
// или JSON), сообщения в stderr, чтобы вывод можно было передать в pipe.
type Output struct {
	jsonMode bool
	w        io.Writer
	errW     io.Writer
}

// NewOutput создаёт Output поверх os.Stdout и os.Stderr.
func NewOutput(jsonMode bool) *Output {
	return NewOutputTo(jsonMode, os.Stdout, os.Stderr)
}

// NewOutputTo создаёт Output с заданными writers.
func NewOutputTo(jsonMode bool, w, errW io.Writer) *Output {
	return &Output{jsonMode: jsonMode, w: w, errW: errW}
}

// Print выводит jsonData в режиме --json, иначе таблицу.
func (o *Output) Print(headers []string, rows [][]string, jsonData any) {
	if o.jsonMode {
		o.JSON(jsonData)
		return
	}
	o.Table(headers, rows)
}

// Table выводит таблицу с подчёркнутой строкой заголовков.
func (o *Output) Table(headers []string, rows [][]string) {
	tw := tabwriter.NewWriter(o.w, 0, 0, 2, ' ', 0)
	defer tw.Flush()

	underline := make([]string, len(headers))
	for i, h := range headers {
		underline[i] = strings.Repeat("-", len(h))
	}

	for _, row := range append([][]string{headers, underline}, rows...) {
		io.WriteString(tw, strings.Join(row, "\t")+"\n")
	}
}

// Order выводит execution record как нумерованный список задач.
func (o *Output) Order(order []string, jsonData any) {
	rows := make([][]string, 0, len(order))
	for i, id := range order {
		rows = append(rows, []string{strconv.Itoa(i + 1), id})
	}
	o.Print([]string{"#", "TASK"}, rows, jsonData)
}

// JSON выводит v с отступами.
func (o *Output) JSON(v any) {
	enc := json.NewEncoder(o.w)
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}

// Successf пишет сообщение в stderr.
func (o *Output) Successf(format string, args ...any) {
	fmt.Fprintf(o.errW, format+"\n", args...)
}

// Error пишет сообщение об ошибке в stderr.
func (o *Output) Error(msg string) {
	fmt.Fprintf(o.errW, "Error: %s\n", msg)
}

// ErrWriter возвращает writer сообщений. В него же пишет логгер CLI.
func (o *Output) ErrWriter() io.Writer {
	return o.errW
}
