package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"

	"github.com/Victorkib/mentacare-backend-admin/internal/domain"
	"github.com/Victorkib/mentacare-backend-admin/internal/query"
)

// Filterable session columns.
var SessionFields = []string{"status", "patient_id", "therapist_id", "scheduled_at"}

type SessionStore struct {
	Table[domain.Session]
}

func NewSessionStore(db bun.IDB) *SessionStore {
	return &SessionStore{Table: newTable(db, "session", func(s domain.Session) uuid.UUID { return s.ID })}
}

// List returns one offset page of sessions matching spec, most recently
// scheduled first, together with the total match count.
func (s *SessionStore) List(ctx context.Context, spec *query.Spec, offset, limit int) ([]domain.Session, int, error) {
	if err := spec.Err(); err != nil {
		return nil, 0, err
	}
	items := []domain.Session{}
	total, err := spec.Apply(s.db.NewSelect().Model(&items)).
		OrderExpr("? DESC, ? DESC", bun.Ident("scheduled_at"), bun.Ident("id")).
		Offset(offset).
		Limit(limit).
		ScanAndCount(ctx)
	if err != nil {
		return nil, 0, fmt.Errorf("store: list sessions: %w", err)
	}
	return items, total, nil
}

// SetStatus moves a session to status without touching other columns.
func (s *SessionStore) SetStatus(ctx context.Context, idb bun.IDB, id uuid.UUID, status domain.SessionStatus, now time.Time) error {
	res, err := s.conn(idb).NewUpdate().
		Model((*domain.Session)(nil)).
		Set("? = ?", bun.Ident("status"), status).
		Set("? = ?", bun.Ident("updated_at"), now).
		Where("? = ?", bun.Ident("id"), id).
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("store: set session status: %w", err)
	}
	return s.expectRow(res, id)
}
