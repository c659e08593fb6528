package repository

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/mess-connect/internal/kv"
	"github.com/iliyamo/mess-connect/internal/model"
	"github.com/iliyamo/mess-connect/internal/utils"
)

// Token kinds.
const (
	KindVerificationToken = "verification_token"
	KindResetToken        = "reset_token"
)

// TokenRepo issues and redeems single-use mailed tokens of one kind. The
// raw token is returned to the caller once and only its hash is stored.
// A redemption is claimed by creating a marker under the token's id, so of
// two concurrent redeems only one wins.
type TokenRepo struct {
	tokens      *Entity[model.Token]
	redemptions *Entity[model.Token]
	ttl         time.Duration
}

func NewTokenRepo(store kv.Store, kind string, ttl time.Duration) *TokenRepo {
	id := func(t *model.Token) string { return t.ID }
	return &TokenRepo{
		tokens:      NewEntity(store, kind, id),
		redemptions: NewEntity(store, kind+"_redemption", id),
		ttl:         ttl,
	}
}

// Issue creates a token for userID valid for the repo's TTL from now.
func (r *TokenRepo) Issue(ctx context.Context, userID string, now time.Time) (string, *model.Token, error) {
	raw, err := utils.NewOpaqueToken()
	if err != nil {
		return "", nil, err
	}
	t := &model.Token{
		ID:        utils.HashToken(raw),
		UserID:    userID,
		ExpiresAt: now.UTC().Add(r.ttl),
		CreatedAt: now.UTC(),
	}
	if err := r.tokens.Create(ctx, t); err != nil {
		return "", nil, err
	}
	return raw, t, nil
}

// Redeem marks the token as used and returns it. Unknown, used and expired
// tokens all yield ErrTokenInvalid.
func (r *TokenRepo) Redeem(ctx context.Context, raw string, now time.Time) (*model.Token, error) {
	t, err := r.tokens.Get(ctx, utils.HashToken(raw))
	if errors.Is(err, ErrNotFound) {
		return nil, ErrTokenInvalid
	}
	if err != nil {
		return nil, err
	}
	if !t.Usable(now) {
		return nil, ErrTokenInvalid
	}
	claim := &model.Token{ID: t.ID, UserID: t.UserID, ExpiresAt: t.ExpiresAt, Used: true, CreatedAt: now.UTC()}
	if err := r.redemptions.Create(ctx, claim); err != nil {
		if errors.Is(err, ErrExists) {
			return nil, ErrTokenInvalid
		}
		return nil, err
	}
	return r.tokens.Patch(ctx, t.ID, map[string]any{"used": true})
}

func (r *TokenRepo) DeleteByUser(ctx context.Context, userID string) error {
	mine := func(t *model.Token) bool { return t.UserID == userID }
	if _, err := r.tokens.DeleteWhere(ctx, mine); err != nil {
		return err
	}
	_, err := r.redemptions.DeleteWhere(ctx, mine)
	return err
}
