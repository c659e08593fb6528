package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/iliyamo/mess-connect/internal/kv"
	"github.com/iliyamo/mess-connect/internal/model"
)

// Token lifetimes.
const (
	VerificationTokenTTL = 24 * time.Hour
	ResetTokenTTL        = time.Hour
)

// clearer is implemented by every Entity.
type clearer interface {
	Kind() string
	Clear(ctx context.Context) (int, error)
	Count(ctx context.Context) (int, error)
}

// Repos bundles every repository over one store.
type Repos struct {
	Users         *UserRepo
	Complaints    *FeedbackRepo
	Suggestions   *FeedbackRepo
	Payments      *PaymentRepo
	Notes         *NoteRepo
	Menu          *MenuRepo
	Settings      *SettingRepo
	Verifications *TokenRepo
	Resets        *TokenRepo

	kinds []clearer
}

func New(store kv.Store) *Repos {
	r := &Repos{
		Users:         NewUserRepo(store),
		Complaints:    NewFeedbackRepo(store, KindComplaint),
		Suggestions:   NewFeedbackRepo(store, KindSuggestion),
		Payments:      NewPaymentRepo(store),
		Notes:         NewNoteRepo(store),
		Menu:          NewMenuRepo(store),
		Settings:      NewSettingRepo(store),
		Verifications: NewTokenRepo(store, KindVerificationToken, VerificationTokenTTL),
		Resets:        NewTokenRepo(store, KindResetToken, ResetTokenTTL),
	}
	r.kinds = []clearer{
		r.Users.users,
		r.Complaints.items,
		r.Suggestions.items,
		r.Payments.payments,
		r.Payments.guests,
		r.Payments.orders,
		r.Payments.receipts,
		r.Notes.notes,
		r.Menu.menu,
		r.Settings.settings,
		r.Verifications.tokens,
		r.Verifications.redemptions,
		r.Resets.tokens,
		r.Resets.redemptions,
	}
	return r
}

// DeleteStudent removes the student and everything that references them.
// Dependents go first so a failure never leaves orphans behind a missing
// user. It returns the deleted complaints and suggestions.
func (r *Repos) DeleteStudent(ctx context.Context, id string) ([]*model.Feedback, error) {
	u, err := r.Users.GetByEmail(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.Role != model.RoleStudent {
		return nil, ErrNotFound
	}
	var removed []*model.Feedback
	for _, fr := range []*FeedbackRepo{r.Complaints, r.Suggestions} {
		del, err := fr.DeleteByStudent(ctx, u.ID)
		if err != nil {
			return removed, err
		}
		removed = append(removed, del...)
	}
	if err := r.Payments.DeleteByStudent(ctx, u.ID); err != nil {
		return removed, err
	}
	for _, tr := range []*TokenRepo{r.Verifications, r.Resets} {
		if err := tr.DeleteByUser(ctx, u.ID); err != nil {
			return removed, err
		}
	}
	return removed, r.Users.Delete(ctx, u.ID)
}

// ClearAll empties every entity kind, one kind at a time. It stops at the
// first failure; kinds cleared before it stay cleared.
func (r *Repos) ClearAll(ctx context.Context) (map[string]int, error) {
	out := make(map[string]int, len(r.kinds))
	for _, k := range r.kinds {
		n, err := k.Clear(ctx)
		if err != nil {
			return out, fmt.Errorf("clear %s: %w", k.Kind(), err)
		}
		out[k.Kind()] = n
	}
	return out, nil
}

// Counts reports the index size of every kind.
func (r *Repos) Counts(ctx context.Context) (map[string]int, error) {
	out := make(map[string]int, len(r.kinds))
	for _, k := range r.kinds {
		n, err := k.Count(ctx)
		if err != nil {
			return nil, err
		}
		out[k.Kind()] = n
	}
	return out, nil
}
