package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/mess-connect/internal/kv"
	"github.com/iliyamo/mess-connect/internal/model"
)

// NotePatch carries the fields a note update may change. Nil fields are
// left untouched.
type NotePatch struct {
	Text      *string   `json:"text,omitempty"`
	Completed *bool     `json:"completed,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type NoteRepo struct {
	notes *Entity[model.Note]
}

func NewNoteRepo(store kv.Store) *NoteRepo {
	return &NoteRepo{notes: NewEntity(store, "note", func(n *model.Note) string { return n.ID })}
}

func (r *NoteRepo) Create(ctx context.Context, text string) (*model.Note, error) {
	now := time.Now().UTC()
	n := &model.Note{ID: uuid.NewString(), Text: text, CreatedAt: now, UpdatedAt: now}
	if err := r.notes.Create(ctx, n); err != nil {
		return nil, err
	}
	return n, nil
}

func (r *NoteRepo) List(ctx context.Context, cursor string, limit int) ([]*model.Note, string, error) {
	return r.notes.List(ctx, cursor, limit)
}

func (r *NoteRepo) Update(ctx context.Context, id string, p NotePatch) (*model.Note, error) {
	if p.UpdatedAt.IsZero() {
		p.UpdatedAt = time.Now().UTC()
	}
	return r.notes.Patch(ctx, id, p)
}

func (r *NoteRepo) Delete(ctx context.Context, id string) error {
	return r.notes.Delete(ctx, id)
}
