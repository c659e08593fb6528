package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/iliyamo/mess-connect/internal/cache"
	"github.com/iliyamo/mess-connect/internal/model"
	"github.com/iliyamo/mess-connect/internal/repository"
)

const settingsCacheKey = "settings"

// SettingsService is a read-through cache in front of the settings
// singleton. Every write invalidates the cached copy; the cache TTL bounds
// staleness for instances that did not see the write.
type SettingsService struct {
	repo  *repository.SettingRepo
	cache cache.Cache[model.Setting]
	log   *slog.Logger
}

func NewSettingsService(repo *repository.SettingRepo, c cache.Cache[model.Setting], log *slog.Logger) *SettingsService {
	if repo == nil || c == nil || log == nil {
		panic("nil dependency passed to NewSettingsService")
	}
	return &SettingsService{repo: repo, cache: c, log: log}
}

// Get returns the current settings. A missing singleton yields zero
// settings rather than an error.
func (s *SettingsService) Get(ctx context.Context) (model.Setting, error) {
	if v, ok, err := s.cache.Get(ctx, settingsCacheKey); err != nil {
		s.log.WarnContext(ctx, "settings cache read failed", "error", err)
	} else if ok {
		return v, nil
	}
	cur, err := s.repo.Get(ctx)
	if errors.Is(err, repository.ErrNotFound) {
		return model.Setting{ID: model.SingletonID}, nil
	}
	if err != nil {
		return model.Setting{}, err
	}
	if err := s.cache.Set(ctx, settingsCacheKey, *cur); err != nil {
		s.log.WarnContext(ctx, "settings cache write failed", "error", err)
	}
	return *cur, nil
}

func (s *SettingsService) SetMonthlyFee(ctx context.Context, fee int64) (model.Setting, error) {
	return s.update(ctx, map[string]any{"monthlyFee": fee})
}

func (s *SettingsService) SetMessRules(ctx context.Context, rules string) (model.Setting, error) {
	return s.update(ctx, map[string]any{"messRules": rules})
}

// Invalidate drops the cached copy. Clear-all-data calls it after wiping
// the store.
func (s *SettingsService) Invalidate(ctx context.Context) {
	if err := s.cache.Delete(ctx, settingsCacheKey); err != nil {
		s.log.WarnContext(ctx, "settings cache invalidate failed", "error", err)
	}
}

func (s *SettingsService) update(ctx context.Context, partial map[string]any) (model.Setting, error) {
	defer s.Invalidate(ctx)
	next, err := s.repo.Update(ctx, partial)
	if err != nil {
		return model.Setting{}, err
	}
	return *next, nil
}
