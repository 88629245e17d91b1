package firestore

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/analyst-agent/internal/domain"
)

// Store persists sessions as sessions/{id} documents. The transcript lives
// in a messages subcollection and is only ever appended to.
type Store struct {
	client *firestore.Client
}

// NewStore creates a Firestore store for projectID.
func NewStore(ctx context.Context, projectID string) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	return &Store{client: client}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) sessionsCol() *firestore.CollectionRef {
	return s.client.Collection("sessions")
}

func (s *Store) sessionDoc(id domain.SessionID) *firestore.DocumentRef {
	return s.sessionsCol().Doc(string(id))
}

func (s *Store) messagesCol(sessionID domain.SessionID) *firestore.CollectionRef {
	return s.sessionDoc(sessionID).Collection("messages")
}

func (s *Store) messageDoc(sessionID domain.SessionID, seq int) *firestore.DocumentRef {
	return s.messagesCol(sessionID).Doc(fmt.Sprintf("%06d", seq))
}

// writeMessages stores transcript entries [from, len) inside tx.
func (s *Store) writeMessages(tx *firestore.Transaction, session *domain.Session, from int) error {
	for i := from; i < len(session.State.Transcript); i++ {
		if err := tx.Set(s.messageDoc(session.ID, i), toMessageDoc(i, session.State.Transcript[i])); err != nil {
			return err
		}
	}
	return nil
}

// ─────────────────────────────────────────
// SessionStore implementation
// ─────────────────────────────────────────

func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if err := tx.Create(s.sessionDoc(session.ID), toSessionDoc(session)); err != nil {
			return err
		}
		return s.writeMessages(tx, session, 0)
	})
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return domain.ErrSessionExists
		}
		return fmt.Errorf("firestore CreateSession: %w", err)
	}
	return nil
}

func (s *Store) UpdateSession(ctx context.Context, session *domain.Session) error {
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(s.sessionDoc(session.ID))
		if err != nil {
			return err
		}
		var stored sessionDoc
		if err := snap.DataTo(&stored); err != nil {
			return fmt.Errorf("decode sessionDoc: %w", err)
		}

		if err := tx.Set(s.sessionDoc(session.ID), toSessionDoc(session)); err != nil {
			return err
		}
		return s.writeMessages(tx, session, stored.MessageCount)
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return domain.ErrSessionNotFound
		}
		return fmt.Errorf("firestore UpdateSession: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	snap, err := s.sessionDoc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("firestore GetSession: %w", err)
	}

	var doc sessionDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetSession decode: %w", err)
	}

	msgs, err := s.messages(ctx, id)
	if err != nil {
		return nil, err
	}

	return fromSessionDoc(id, doc, msgs), nil
}

func (s *Store) messages(ctx context.Context, id domain.SessionID) ([]domain.Message, error) {
	iter := s.messagesCol(id).OrderBy("seq", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	out := []domain.Message{}
	for {
		snap, err := iter.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return nil, fmt.Errorf("firestore messages: %w", err)
		}

		var doc messageDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode messageDoc: %w", err)
		}
		out = append(out, fromMessageDoc(doc))
	}
	return out, nil
}

// ListSessionsByUser returns the user's sessions, most recently updated
// first. Transcripts are not loaded; use GetSession for a full session.
func (s *Store) ListSessionsByUser(ctx context.Context, userID domain.UserID, limit int) ([]*domain.Session, error) {
	q := s.sessionsCol().Where("user_id", "==", string(userID)).OrderBy("updated_at", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var out []*domain.Session
	for {
		snap, err := iter.Next()
		if err != nil {
			if errors.Is(err, iterator.Done) {
				break
			}
			return nil, fmt.Errorf("firestore ListSessionsByUser: %w", err)
		}

		var doc sessionDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode sessionDoc: %w", err)
		}

		out = append(out, fromSessionDoc(domain.SessionID(snap.Ref.ID), doc, nil))
	}
	return out, nil
}
