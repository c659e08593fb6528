package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/iliyamo/mess-connect/internal/kv"
	"github.com/iliyamo/mess-connect/internal/model"
)

// Entity kinds served by FeedbackRepo.
const (
	KindComplaint  = "complaint"
	KindSuggestion = "suggestion"
)

// FeedbackRepo stores complaints or suggestions, depending on its kind.
type FeedbackRepo struct {
	items *Entity[model.Feedback]
}

func NewFeedbackRepo(store kv.Store, kind string) *FeedbackRepo {
	return &FeedbackRepo{items: NewEntity(store, kind, func(f *model.Feedback) string { return f.ID })}
}

// Create assigns an id and timestamp when missing and stores f.
func (r *FeedbackRepo) Create(ctx context.Context, f *model.Feedback) error {
	if f.ID == "" {
		f.ID = uuid.NewString()
	}
	if f.CreatedAt.IsZero() {
		f.CreatedAt = time.Now().UTC()
	}
	return r.items.Create(ctx, f)
}

func (r *FeedbackRepo) Get(ctx context.Context, id string) (*model.Feedback, error) {
	return r.items.Get(ctx, id)
}

func (r *FeedbackRepo) List(ctx context.Context, cursor string, limit int) ([]*model.Feedback, string, error) {
	return r.items.List(ctx, cursor, limit)
}

func (r *FeedbackRepo) ListByStudent(ctx context.Context, studentID string) ([]*model.Feedback, error) {
	return r.items.Find(ctx, func(f *model.Feedback) bool { return f.StudentID == studentID })
}

// Reply stores the manager's answer. A second reply replaces the first.
func (r *FeedbackRepo) Reply(ctx context.Context, id, reply string, at time.Time) (*model.Feedback, error) {
	at = at.UTC()
	return r.items.Patch(ctx, id, map[string]any{"reply": reply, "repliedAt": at})
}

// DeleteByStudent removes everything a student submitted and returns the
// deleted records so callers can release attached images.
func (r *FeedbackRepo) DeleteByStudent(ctx context.Context, studentID string) ([]*model.Feedback, error) {
	mine, err := r.ListByStudent(ctx, studentID)
	if err != nil || len(mine) == 0 {
		return nil, err
	}
	ids := make([]string, len(mine))
	for i, f := range mine {
		ids[i] = f.ID
	}
	if _, err := r.items.DeleteMany(ctx, ids...); err != nil {
		return nil, err
	}
	return mine, nil
}
