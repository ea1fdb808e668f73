package mq

import (
	"context"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

type (
	// Exchange — имя обменника.
	Exchange string
	// Queue — имя очереди.
	Queue string
	// RoutingKey — ключ маршрутизации.
	RoutingKey string
)

const (
	ExchangeRuns Exchange = "taskdep.runs"
	ExchangeDLQ  Exchange = "taskdep.dlq"

	QueueRunsRequested Queue = "runs.requested"
	QueueRunsFinished  Queue = "runs.finished"
	QueueDLQRuns       Queue = "dlq.runs"

	RoutingKeyRequested RoutingKey = "requested"
	RoutingKeyFinished  RoutingKey = "finished"
	RoutingKeyDLQRuns   RoutingKey = "runs"
)

// Route — обменник и ключ, по которым доставляется сообщение.
type Route struct {
	Exchange Exchange
	Key      RoutingKey
}

// QueueSpec — durable очередь и её привязка.
type QueueSpec struct {
	Name  Queue
	Route Route

	// DeadLetter — куда брокер отправляет отклонённые без requeue сообщения.
	DeadLetter *Route
}

func (q QueueSpec) args() amqp.Table {
	if q.DeadLetter == nil {
		return nil
	}
	return amqp.Table{
		"x-dead-letter-exchange":    string(q.DeadLetter.Exchange),
		"x-dead-letter-routing-key": string(q.DeadLetter.Key),
	}
}

// Topology — обменники (все direct и durable) и очереди.
type Topology struct {
	Exchanges []Exchange
	Queues    []QueueSpec
}

// RunsTopology — топология taskdep:
//
//	taskdep.runs ─ requested → runs.requested (worker) ─ reject → taskdep.dlq
//	             ─ finished  → runs.finished  (внешние подписчики)
//	taskdep.dlq  ─ runs      → dlq.runs       (ручной разбор)
var RunsTopology = Topology{
	Exchanges: []Exchange{ExchangeRuns, ExchangeDLQ},
	Queues: []QueueSpec{
		{
			Name:       QueueRunsRequested,
			Route:      Route{ExchangeRuns, RoutingKeyRequested},
			DeadLetter: &Route{ExchangeDLQ, RoutingKeyDLQRuns},
		},
		{Name: QueueRunsFinished, Route: Route{ExchangeRuns, RoutingKeyFinished}},
		{Name: QueueDLQRuns, Route: Route{ExchangeDLQ, RoutingKeyDLQRuns}},
	},
}

// Validate проверяет, что очереди ссылаются только на объявленные обменники.
func (t Topology) Validate() error {
	declared := make(map[Exchange]bool, len(t.Exchanges))
	for _, ex := range t.Exchanges {
		declared[ex] = true
	}

	var errs []error
	for _, q := range t.Queues {
		if !declared[q.Route.Exchange] {
			errs = append(errs, fmt.Errorf("queue %s: undeclared exchange %s", q.Name, q.Route.Exchange))
		}
		if q.DeadLetter != nil && !declared[q.DeadLetter.Exchange] {
			errs = append(errs, fmt.Errorf("queue %s: undeclared dead-letter exchange %s", q.Name, q.DeadLetter.Exchange))
		}
	}
	return errors.Join(errs...)
}

// Declare объявляет топологию. Повторный вызов с теми же параметрами
// ничего не меняет.
func (t Topology) Declare(ch *amqp.Channel) error {
	for _, ex := range t.Exchanges {
		if err := ch.ExchangeDeclare(string(ex), amqp.ExchangeDirect, true, false, false, false, nil); err != nil {
			return fmt.Errorf("declare exchange %s: %w", ex, err)
		}
	}

	for _, q := range t.Queues {
		if _, err := ch.QueueDeclare(string(q.Name), true, false, false, false, q.args()); err != nil {
			return fmt.Errorf("declare queue %s: %w", q.Name, err)
		}
		if err := ch.QueueBind(string(q.Name), string(q.Route.Key), string(q.Route.Exchange), false, nil); err != nil {
			return fmt.Errorf("bind %s to %s: %w", q.Name, q.Route.Exchange, err)
		}
	}
	return nil
}

// SetupTopology объявляет RunsTopology через conn.
func SetupTopology(ctx context.Context, conn *Connection) error {
	if err := RunsTopology.Validate(); err != nil {
		return err
	}
	return conn.WithChannel(ctx, RunsTopology.Declare)
}
