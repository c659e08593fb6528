package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/iliyamo/mess-connect/internal/kv"
	"github.com/iliyamo/mess-connect/internal/model"
	"github.com/iliyamo/mess-connect/internal/utils"
)

// UserRepo persists accounts keyed by normalized email.
type UserRepo struct {
	users *Entity[model.User]
}

func NewUserRepo(store kv.Store) *UserRepo {
	return &UserRepo{users: NewEntity(store, "user", func(u *model.User) string { return u.ID })}
}

// NormalizeEmail is the id form of an email address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create hashes password with bcrypt and stores u under its normalized
// email. It returns ErrEmailExists when the address is taken.
func (r *UserRepo) Create(ctx context.Context, u *model.User, password string, cost int) error {
	u.ID = NormalizeEmail(u.ID)
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	u.PasswordHash = hash
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	err = r.users.Create(ctx, u)
	if errors.Is(err, ErrExists) {
		return ErrEmailExists
	}
	return err
}

func (r *UserRepo) Exists(ctx context.Context, email string) (bool, error) {
	return r.users.Exists(ctx, NormalizeEmail(email))
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	return r.users.Get(ctx, NormalizeEmail(email))
}

func (r *UserRepo) SetStatus(ctx context.Context, email, status string) (*model.User, error) {
	return r.users.Patch(ctx, NormalizeEmail(email), map[string]any{"status": status})
}

func (r *UserRepo) MarkVerified(ctx context.Context, email string) (*model.User, error) {
	return r.users.Patch(ctx, NormalizeEmail(email), map[string]any{"verified": true})
}

// SetPassword replaces the stored hash.
func (r *UserRepo) SetPassword(ctx context.Context, email, password string, cost int) error {
	hash, err := utils.HashPassword(password, cost)
	if err != nil {
		return err
	}
	_, err = r.users.Patch(ctx, NormalizeEmail(email), map[string]any{"passwordHash": hash})
	return err
}

// ListStudents returns all students, optionally only those in status.
func (r *UserRepo) ListStudents(ctx context.Context, status string) ([]*model.User, error) {
	return r.users.Find(ctx, func(u *model.User) bool {
		return u.Role == model.RoleStudent && (status == "" || u.Status == status)
	})
}

func (r *UserRepo) Delete(ctx context.Context, email string) error {
	return r.users.Delete(ctx, NormalizeEmail(email))
}
