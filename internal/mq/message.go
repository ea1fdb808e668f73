package mq

import (
	"time"

	"github.com/google/uuid"

	"github.com/shaiso/taskdep/internal/domain"
)

// MessageType — тип сообщения, дублируется в AMQP свойстве type.
type MessageType string

const (
	// MessageTypeRunRequested — граф поставлен в очередь, потребитель: worker.
	MessageTypeRunRequested MessageType = "run.requested"

	// MessageTypeRunFinished — итог run для внешних подписчиков.
	MessageTypeRunFinished MessageType = "run.finished"
)

// Message — конверт сообщения. Payload декодируется через ParsePayload.
type Message struct {
	ID        string      `json:"id"`
	Type      MessageType `json:"type"`
	Payload   any         `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// NewMessage создаёт сообщение с новым ID.
func NewMessage(msgType MessageType, payload any) *Message {
	return &Message{
		ID:        uuid.NewString(),
		Type:      msgType,
		Payload:   payload,
		Timestamp: time.Now().UTC(),
	}
}

// RunRequestedPayload — граф и параметры запуска.
type RunRequestedPayload struct {
	Spec   *domain.GraphSpec `json:"spec"`
	Root   string            `json:"root,omitempty"`
	Inputs map[string]any    `json:"inputs,omitempty"`
	DryRun bool              `json:"dry_run,omitempty"`
}

// RunFinishedPayload — итог run: статус и execution record.
type RunFinishedPayload struct {
	RunID  uuid.UUID        `json:"run_id"`
	Graph  string           `json:"graph"`
	Root   string           `json:"root"`
	Status domain.RunStatus `json:"status"`
	Order  []string         `json:"order"`
	Error  string           `json:"error,omitempty"`
}

// NewRunFinishedPayload собирает payload из завершённого run.
func NewRunFinishedPayload(run *domain.Run) RunFinishedPayload {
	return RunFinishedPayload{
		RunID:  run.ID,
		Graph:  run.Graph,
		Root:   run.Root,
		Status: run.Status,
		Order:  run.Order,
		Error:  run.Error,
	}
}
