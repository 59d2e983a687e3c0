// Package notify announces uploaded pipeline artifacts on NATS.
package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/book-expert/events"
	"github.com/book-expert/logger"
	"github.com/dlops-io/mega-pipeline-aws/internal/core"
	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
)

const (
	textExtension = ".txt"
	flushTimeout  = 5 * time.Second
)

var (
	// ErrNilConnection indicates that no NATS connection was supplied.
	ErrNilConnection = errors.New("nats connection cannot be nil")
	// ErrNilLogger indicates that no logger was supplied.
	ErrNilLogger = errors.New("logger cannot be nil")
	// ErrSubjectPrefixEmpty indicates that the subject prefix is empty.
	ErrSubjectPrefixEmpty = errors.New("subject prefix cannot be empty")
)

// Publisher publishes one event per uploaded artifact. Text artifacts are
// announced as TextProcessedEvent, audio artifacts as AudioChunkCreatedEvent,
// on the subject "<prefix>.<kind name>". Every event of one run carries the
// run id as its workflow id.
type Publisher struct {
	natsConnection *nats.Conn
	subjectPrefix  string
	runID          string
	log            *logger.Logger
}

// NewPublisher creates a Publisher for one run.
func NewPublisher(
	natsConnection *nats.Conn,
	subjectPrefix string,
	runID string,
	log *logger.Logger,
) (*Publisher, error) {
	if natsConnection == nil {
		return nil, ErrNilConnection
	}

	if log == nil {
		return nil, ErrNilLogger
	}

	subjectPrefix = strings.Trim(strings.TrimSpace(subjectPrefix), ".")
	if subjectPrefix == "" {
		return nil, ErrSubjectPrefixEmpty
	}

	return &Publisher{
		natsConnection: natsConnection,
		subjectPrefix:  subjectPrefix,
		runID:          runID,
		log:            log,
	}, nil
}

// Subject returns the subject events for kind are published on.
func (p *Publisher) Subject(kind core.Kind) string {
	return p.subjectPrefix + "." + kind.Name
}

// ArtifactWritten publishes the event for one uploaded artifact and waits for
// the server to acknowledge the flush.
func (p *Publisher) ArtifactWritten(ctx context.Context, kind core.Kind, id string) error {
	eventData, err := json.Marshal(p.buildEvent(kind, id))
	if err != nil {
		return fmt.Errorf("failed to marshal event for %s: %w", kind.Key(id), err)
	}

	subject := p.Subject(kind)

	err = p.natsConnection.Publish(subject, eventData)
	if err != nil {
		return fmt.Errorf("failed to publish event to subject %s: %w", subject, err)
	}

	// FlushWithContext requires a deadline.
	flushCtx, cancel := context.WithTimeout(ctx, flushTimeout)
	defer cancel()

	err = p.natsConnection.FlushWithContext(flushCtx)
	if err != nil {
		return fmt.Errorf("failed to flush event for %s: %w", kind.Key(id), err)
	}

	p.log.Info("Published %s event for %s", subject, kind.Key(id))

	return nil
}

func (p *Publisher) buildEvent(kind core.Kind, id string) any {
	header := events.EventHeader{
		Timestamp:  time.Now().UTC(),
		WorkflowID: p.runID,
		EventID:    uuid.NewString(),
		UserID:     "",
		TenantID:   "",
	}

	if kind.Ext == textExtension {
		return &events.TextProcessedEvent{
			Header:            header,
			TextKey:           kind.Key(id),
			PNGKey:            "",
			PageNumber:        0,
			TotalPages:        0,
			Voice:             "",
			Seed:              0,
			NGL:               0,
			TopP:              0,
			RepetitionPenalty: 0,
			Temperature:       0,
		}
	}

	return &events.AudioChunkCreatedEvent{
		Header:     header,
		AudioKey:   kind.Key(id),
		PageNumber: 0,
		TotalPages: 0,
	}
}
