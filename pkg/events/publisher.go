package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"smartaset/pkg/domain"
)

// RoutingAuditCompleted is the routing key for finished audits.
const RoutingAuditCompleted = "audit.completed"

// AuditCompleted is published after a result is recorded.
type AuditCompleted struct {
	AuditID      string            `json:"auditId"`
	WorkspaceID  string            `json:"workspaceId,omitempty"`
	AssetName    string            `json:"assetName"`
	SourceKind   domain.SourceKind `json:"sourceKind"`
	Fingerprint  string            `json:"fingerprint,omitempty"`
	OverallScore float64           `json:"overallScore"`
	FailCount    int               `json:"failCount"`
	CompletedAt  time.Time         `json:"completedAt"`
}

// NewAuditCompleted summarizes result for subscribers.
func NewAuditCompleted(workspaceID string, kind domain.SourceKind, fingerprint string, result domain.AuditResult) AuditCompleted {
	fails := 0
	for _, d := range result.Details {
		if d.Status == domain.StatusFail {
			fails++
		}
	}
	return AuditCompleted{
		AuditID:      result.ID,
		WorkspaceID:  workspaceID,
		AssetName:    result.AssetName,
		SourceKind:   kind,
		Fingerprint:  fingerprint,
		OverallScore: result.OverallScore,
		FailCount:    fails,
		CompletedAt:  result.Timestamp,
	}
}

// Publisher announces audit lifecycle events.
type Publisher interface {
	PublishAuditCompleted(ctx context.Context, evt AuditCompleted) error
	Close() error
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) PublishAuditCompleted(context.Context, AuditCompleted) error { return nil }
func (Nop) Close() error                                                { return nil }

// AMQPPublisher publishes JSON events to a topic exchange.
type AMQPPublisher struct {
	exchange string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

// NewAMQPPublisher dials url and declares a durable topic exchange.
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, fmt.Errorf("amqp url is required")
	}
	exchange = strings.TrimSpace(exchange)
	if exchange == "" {
		exchange = "smartaset"
	}
	conn, err := amqp.DialConfig(url, amqp.Config{Dial: amqp.DefaultDial(5 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPPublisher{exchange: exchange, conn: conn, ch: ch}, nil
}

func (p *AMQPPublisher) PublishAuditCompleted(ctx context.Context, evt AuditCompleted) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	err = p.ch.PublishWithContext(ctx, p.exchange, RoutingAuditCompleted, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    evt.AuditID,
		Timestamp:    time.Now(),
		Body:         body,
	})
	if err != nil {
		return fmt.Errorf("publish %s: %w", RoutingAuditCompleted, err)
	}
	return nil
}

func (p *AMQPPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
	}
	return p.conn.Close()
}
