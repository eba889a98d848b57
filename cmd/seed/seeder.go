package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/angelmondragon/flashback-frames-backend/internal/users"
	"github.com/angelmondragon/flashback-frames-backend/pkg/config"
	"github.com/angelmondragon/flashback-frames-backend/pkg/db/models"
	dbtypes "github.com/angelmondragon/flashback-frames-backend/pkg/db/types"
	"github.com/angelmondragon/flashback-frames-backend/pkg/enums"
	"github.com/angelmondragon/flashback-frames-backend/pkg/logger"
	"github.com/angelmondragon/flashback-frames-backend/pkg/security"
)

type userStore interface {
	Create(ctx context.Context, dto users.CreateUserDTO) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	UpdatePassword(ctx context.Context, id uuid.UUID, hash string) error
}

type productStore interface {
	Create(ctx context.Context, product *models.Product) error
	Count(ctx context.Context) (int64, error)
}

type seeder struct {
	users    userStore
	products productStore
	password config.PasswordConfig
	logg     *logger.Logger
}

type adminAccount struct {
	Email    string
	Name     string
	Password string
}

func sampleCatalog() []models.Product {
	return []models.Product{
		{
			Name:        "Minimalist Oak Frame",
			Description: "A beautifully crafted oak frame with a minimalist design. Perfect for modern interiors.",
			Category:    enums.ProductCategoryPhotoFrames,
			Price:       decimal.RequireFromString("29.99"),
			Images:      dbtypes.StringList{},
			Sizes:       dbtypes.StringList{"5x7", "8x10", "11x14", "16x20"},
			Materials:   dbtypes.StringList{"Wood", "Metal", "Plastic"},
			IsActive:    true,
		},
		{
			Name:        "Personalized Mug",
			Description: "Start your morning with a smile. High-quality ceramic mug with your custom photo.",
			Category:    enums.ProductCategoryCustomGifts,
			Price:       decimal.RequireFromString("14.99"),
			Images:      dbtypes.StringList{},
			Sizes:       dbtypes.StringList{"11oz", "15oz"},
			Materials:   dbtypes.StringList{"Ceramic"},
			IsActive:    true,
		},
	}
}

// ensureAdmin creates the admin or, when it already exists, resets its
// password to the supplied one.
func (s *seeder) ensureAdmin(ctx context.Context, account adminAccount) (bool, error) {
	hash, err := security.HashPassword(account.Password, s.password)
	if err != nil {
		return false, fmt.Errorf("hash admin password: %w", err)
	}

	existing, err := s.users.FindByEmail(ctx, account.Email)
	switch {
	case err == nil:
		if err := s.users.UpdatePassword(ctx, existing.ID, hash); err != nil {
			return false, fmt.Errorf("reset admin password: %w", err)
		}
		s.logg.Info(s.logg.WithField(ctx, "email", existing.Email), "admin password reset")
		return false, nil
	case !errors.Is(err, gorm.ErrRecordNotFound):
		return false, fmt.Errorf("lookup admin: %w", err)
	}

	created, err := s.users.Create(ctx, users.CreateUserDTO{
		Email:        account.Email,
		PasswordHash: hash,
		Name:         account.Name,
		Role:         enums.UserRoleAdmin,
	})
	if err != nil {
		return false, fmt.Errorf("create admin: %w", err)
	}
	s.logg.Info(s.logg.WithField(ctx, "email", created.Email), "admin user created")
	return true, nil
}

// seedCatalog inserts the sample products into an empty catalog only.
func (s *seeder) seedCatalog(ctx context.Context) (int, error) {
	count, err := s.products.Count(ctx)
	if err != nil {
		return 0, fmt.Errorf("count products: %w", err)
	}
	if count > 0 {
		s.logg.Info(s.logg.WithField(ctx, "products", count), "catalog not empty, skipping sample products")
		return 0, nil
	}

	catalog := sampleCatalog()
	for i := range catalog {
		if err := s.products.Create(ctx, &catalog[i]); err != nil {
			return i, fmt.Errorf("create product %q: %w", catalog[i].Name, err)
		}
	}
	s.logg.Info(s.logg.WithField(ctx, "products", len(catalog)), "sample products created")
	return len(catalog), nil
}
