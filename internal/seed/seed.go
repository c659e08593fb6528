// Package seed creates the staff accounts and default settings a fresh
// store needs. Running it again only fills in what is missing.
package seed

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/iliyamo/mess-connect/internal/model"
	"github.com/iliyamo/mess-connect/internal/repository"
)

//go:embed default.yaml
var defaultSeed []byte

// Data is the seed file layout.
type Data struct {
	Users    []User          `yaml:"users"`
	Settings *Settings       `yaml:"settings"`
	Menu     []model.DayMenu `yaml:"menu"`
}

type User struct {
	Email    string `yaml:"email"`
	Name     string `yaml:"name"`
	Phone    string `yaml:"phone"`
	Password string `yaml:"password"`
	Role     string `yaml:"role"`
}

type Settings struct {
	MonthlyFee int64  `yaml:"monthlyFee"`
	MessRules  string `yaml:"messRules"`
}

// Load reads path, or the embedded default when path is empty.
func Load(path string) (Data, error) {
	raw := defaultSeed
	if path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return Data{}, fmt.Errorf("read seed: %w", err)
		}
		raw = b
	}
	return Parse(raw)
}

func Parse(raw []byte) (Data, error) {
	var d Data
	if err := yaml.Unmarshal(raw, &d); err != nil {
		return Data{}, fmt.Errorf("parse seed: %w", err)
	}
	for _, u := range d.Users {
		switch u.Role {
		case model.RoleAdmin, model.RoleManager, model.RoleStudent:
		default:
			return Data{}, fmt.Errorf("seed user %s: unknown role %q", u.Email, u.Role)
		}
	}
	return d, nil
}

// Apply creates missing users, settings and menu. Existing records are
// never modified.
func Apply(ctx context.Context, repos *repository.Repos, d Data, bcryptCost int, log *slog.Logger) error {
	for _, su := range d.Users {
		u := &model.User{
			ID:       su.Email,
			Name:     su.Name,
			Phone:    su.Phone,
			Role:     su.Role,
			Status:   model.StatusApproved,
			Verified: true,
		}
		err := repos.Users.Create(ctx, u, su.Password, bcryptCost)
		if errors.Is(err, repository.ErrEmailExists) {
			continue
		}
		if err != nil {
			return fmt.Errorf("seed user %s: %w", su.Email, err)
		}
		log.InfoContext(ctx, "seeded user", "email", u.ID, "role", u.Role)
	}

	if d.Settings != nil {
		_, err := repos.Settings.Get(ctx)
		if errors.Is(err, repository.ErrNotFound) {
			_, err = repos.Settings.Update(ctx, map[string]any{
				"monthlyFee": d.Settings.MonthlyFee,
				"messRules":  d.Settings.MessRules,
			})
			if err == nil {
				log.InfoContext(ctx, "seeded settings")
			}
		}
		if err != nil {
			return fmt.Errorf("seed settings: %w", err)
		}
	}

	if len(d.Menu) > 0 {
		_, err := repos.Menu.Get(ctx)
		if errors.Is(err, repository.ErrNotFound) {
			_, err = repos.Menu.Save(ctx, d.Menu)
			if err == nil {
				log.InfoContext(ctx, "seeded menu")
			}
		}
		if err != nil {
			return fmt.Errorf("seed menu: %w", err)
		}
	}
	return nil
}
