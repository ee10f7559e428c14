package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nstc/opsdesk-backend/pkg/access"
	"github.com/nstc/opsdesk-backend/pkg/db/models"
	"github.com/nstc/opsdesk-backend/pkg/logger"
)

const defaultWriteTimeout = 5 * time.Second

// Event is the structured record emitted after a successful mutation.
type Event struct {
	Actor     string    `json:"actor"`
	ActorRole string    `json:"actor_role"`
	Action    string    `json:"action"`
	Detail    string    `json:"detail"`
	Module    string    `json:"module"`
	At        time.Time `json:"at"`
}

// NewEvent builds an event attributed to actor.
func NewEvent(actor *access.Actor, module, action, detail string) Event {
	ev := Event{Action: action, Detail: detail, Module: module}
	if actor != nil {
		ev.Actor = actor.Name
		ev.ActorRole = actor.Role.String()
	}
	return ev
}

// Recorder accepts audit events. Record never fails from the caller's view;
// sink errors are logged and dropped.
type Recorder interface {
	Record(ctx context.Context, event Event)
}

// Publisher fans an encoded event out to an external topic.
type Publisher interface {
	Publish(ctx context.Context, data []byte, attrs map[string]string) (string, error)
}

type recorder struct {
	repo      Repository
	publisher Publisher
	logg      *logger.Logger
	timeout   time.Duration
	now       func() time.Time
}

// NewRecorder wires the database sink and, when publisher is non-nil, the
// Pub/Sub fan-out.
func NewRecorder(repo Repository, publisher Publisher, logg *logger.Logger) (Recorder, error) {
	if repo == nil {
		return nil, fmt.Errorf("audit repository required")
	}
	if logg == nil {
		return nil, fmt.Errorf("logger required")
	}
	return &recorder{
		repo:      repo,
		publisher: publisher,
		logg:      logg,
		timeout:   defaultWriteTimeout,
		now:       time.Now,
	}, nil
}

func (r *recorder) Record(ctx context.Context, event Event) {
	if event.At.IsZero() {
		event.At = r.now().UTC()
	}

	// The business transaction has already committed; a cancelled request
	// context must not drop the trail.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	ctx = r.logg.WithFields(ctx, map[string]any{
		"audit_module": event.Module,
		"audit_action": event.Action,
	})

	entry := &models.AuditLog{
		Actor:     event.Actor,
		ActorRole: event.ActorRole,
		Action:    event.Action,
		Detail:    event.Detail,
		Module:    event.Module,
		CreatedAt: event.At,
	}
	if err := r.repo.Create(ctx, entry); err != nil {
		r.logg.Error(ctx, "audit db write failed", err)
	}

	if r.publisher == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		r.logg.Error(ctx, "audit event encode failed", err)
		return
	}
	if _, err := r.publisher.Publish(ctx, payload, map[string]string{
		"module": event.Module,
		"action": event.Action,
	}); err != nil {
		r.logg.Error(ctx, "audit publish failed", err)
	}
}

// Nop discards every event.
type Nop struct{}

func (Nop) Record(context.Context, Event) {}
