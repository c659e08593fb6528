package repository

import (
	"context"
	"errors"
	"time"

	"github.com/iliyamo/mess-connect/internal/kv"
	"github.com/iliyamo/mess-connect/internal/model"
)

// MenuRepo holds the weekly menu singleton.
type MenuRepo struct {
	menu *Entity[model.Menu]
}

func NewMenuRepo(store kv.Store) *MenuRepo {
	return &MenuRepo{menu: NewEntity(store, "menu", func(m *model.Menu) string { return m.ID })}
}

// Get returns ErrNotFound until a menu has been saved.
func (r *MenuRepo) Get(ctx context.Context) (*model.Menu, error) {
	return r.menu.Get(ctx, model.SingletonID)
}

// Save replaces the whole weekly schedule.
func (r *MenuRepo) Save(ctx context.Context, days []model.DayMenu) (*model.Menu, error) {
	m := &model.Menu{ID: model.SingletonID, Days: days, UpdatedAt: time.Now().UTC()}
	if err := r.menu.Put(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

// SettingRepo holds the settings singleton.
type SettingRepo struct {
	settings *Entity[model.Setting]
}

func NewSettingRepo(store kv.Store) *SettingRepo {
	return &SettingRepo{settings: NewEntity(store, "setting", func(s *model.Setting) string { return s.ID })}
}

func (r *SettingRepo) Get(ctx context.Context) (*model.Setting, error) {
	return r.settings.Get(ctx, model.SingletonID)
}

// Update patches the singleton, creating an empty one first if none exists
// yet. partial follows Entity.Patch semantics.
func (r *SettingRepo) Update(ctx context.Context, partial map[string]any) (*model.Setting, error) {
	if partial == nil {
		partial = map[string]any{}
	}
	partial["updatedAt"] = time.Now().UTC()
	s, err := r.settings.Patch(ctx, model.SingletonID, partial)
	if !errors.Is(err, ErrNotFound) {
		return s, err
	}
	if err := r.settings.Create(ctx, &model.Setting{ID: model.SingletonID}); err != nil && !errors.Is(err, ErrExists) {
		return nil, err
	}
	return r.settings.Patch(ctx, model.SingletonID, partial)
}
