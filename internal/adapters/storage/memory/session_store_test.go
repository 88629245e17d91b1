package memory_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/PabloGalante/analyst-agent/internal/adapters/storage/memory"
	"github.com/PabloGalante/analyst-agent/internal/domain"
)

func newSession(id string, user string, updated time.Time) *domain.Session {
	return &domain.Session{
		ID:        domain.SessionID(id),
		UserID:    domain.UserID(user),
		CreatedAt: updated,
		UpdatedAt: updated,
		State:     domain.NewSessionState(),
	}
}

func TestSessionStore_CRUD(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	now := time.Now().UTC()

	s := newSession("s-1", "u-1", now)
	require.NoError(t, store.CreateSession(ctx, s))
	assert.ErrorIs(t, store.CreateSession(ctx, s), domain.ErrSessionExists)

	got, err := store.GetSession(ctx, "s-1")
	require.NoError(t, err)
	assert.Equal(t, s.ID, got.ID)

	got.State.Append(domain.RoleUser, "hello")
	require.NoError(t, store.UpdateSession(ctx, got))

	again, err := store.GetSession(ctx, "s-1")
	require.NoError(t, err)
	assert.Len(t, again.State.Transcript, 1)

	_, err = store.GetSession(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.ErrorIs(t, store.UpdateSession(ctx, newSession("missing", "u-1", now)), domain.ErrSessionNotFound)
}

func TestSessionStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()

	s := newSession("s-1", "u-1", time.Now())
	require.NoError(t, store.CreateSession(ctx, s))

	s.State.Append(domain.RoleUser, "mutated after create")

	got, err := store.GetSession(ctx, "s-1")
	require.NoError(t, err)
	assert.Empty(t, got.State.Transcript)

	got.State.Requirements.Scope = append(got.State.Requirements.Scope, "leak")
	again, err := store.GetSession(ctx, "s-1")
	require.NoError(t, err)
	assert.Empty(t, again.State.Requirements.Scope)
}

func TestSessionStore_ListSessionsByUser(t *testing.T) {
	ctx := context.Background()
	store := memory.NewSessionStore()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	require.NoError(t, store.CreateSession(ctx, newSession("old", "u-1", base)))
	require.NoError(t, store.CreateSession(ctx, newSession("new", "u-1", base.Add(time.Hour))))
	require.NoError(t, store.CreateSession(ctx, newSession("other", "u-2", base)))

	all, err := store.ListSessionsByUser(ctx, "u-1", 0)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, domain.SessionID("new"), all[0].ID)

	limited, err := store.ListSessionsByUser(ctx, "u-1", 1)
	require.NoError(t, err)
	require.Len(t, limited, 1)
	assert.Equal(t, domain.SessionID("new"), limited[0].ID)
}
