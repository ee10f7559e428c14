package audit

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nstc/opsdesk-backend/internal/testdb"
	"github.com/nstc/opsdesk-backend/pkg/access"
	"github.com/nstc/opsdesk-backend/pkg/db/models"
	"github.com/nstc/opsdesk-backend/pkg/enums"
	"github.com/nstc/opsdesk-backend/pkg/logger"
)

type stubPublisher struct {
	payloads [][]byte
	attrs    []map[string]string
	err      error
}

func (s *stubPublisher) Publish(_ context.Context, data []byte, attrs map[string]string) (string, error) {
	s.payloads = append(s.payloads, data)
	s.attrs = append(s.attrs, attrs)
	return "msg-1", s.err
}

type failingRepo struct {
	calls int
}

func (f *failingRepo) Create(context.Context, *models.AuditLog) error {
	f.calls++
	return errors.New("db down")
}

func (f *failingRepo) List(context.Context, string, int) ([]models.AuditLog, error) {
	return nil, nil
}

func (f *failingRepo) DeleteBefore(context.Context, time.Time) (int64, error) {
	return 0, nil
}

func TestRecordWritesDatabaseAndPublishes(t *testing.T) {
	client := testdb.Open(t)
	repo := NewRepository(client.DB())
	pub := &stubPublisher{}

	rec, err := NewRecorder(repo, pub, logger.Nop())
	require.NoError(t, err)

	actor := &access.Actor{Name: "Sami", Role: enums.RoleManager}
	rec.Record(context.Background(), NewEvent(actor, "requests", "Approve Request", "Request #4 approved"))

	rows, err := repo.List(context.Background(), "requests", 10)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Sami", rows[0].Actor)
	assert.Equal(t, "manager", rows[0].ActorRole)
	assert.Equal(t, "Approve Request", rows[0].Action)

	require.Len(t, pub.payloads, 1)
	var decoded Event
	require.NoError(t, json.Unmarshal(pub.payloads[0], &decoded))
	assert.Equal(t, "Request #4 approved", decoded.Detail)
	assert.False(t, decoded.At.IsZero())
	assert.Equal(t, "requests", pub.attrs[0]["module"])
}

func TestRecordSwallowsSinkFailures(t *testing.T) {
	repo := &failingRepo{}
	pub := &stubPublisher{err: errors.New("topic gone")}
	rec, err := NewRecorder(repo, pub, logger.Nop())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	assert.NotPanics(t, func() {
		rec.Record(ctx, NewEvent(nil, "inventory", "Delete Item", "Helmet @ NSTC"))
	})
	assert.Equal(t, 1, repo.calls)
	assert.Len(t, pub.payloads, 1, "publish is still attempted after a db failure")
}

func TestNewRecorderValidatesDeps(t *testing.T) {
	_, err := NewRecorder(nil, nil, logger.Nop())
	assert.Error(t, err)
	_, err = NewRecorder(&failingRepo{}, nil, nil)
	assert.Error(t, err)
}
