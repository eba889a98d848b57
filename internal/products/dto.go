package product

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/flashback-frames-backend/pkg/db/models"
	"github.com/angelmondragon/flashback-frames-backend/pkg/enums"
	"github.com/angelmondragon/flashback-frames-backend/pkg/pagination"
)

// ProductDTO represents the catalog payload returned to clients.
type ProductDTO struct {
	ID          uuid.UUID             `json:"id"`
	Name        string                `json:"name"`
	Description string                `json:"description"`
	Category    enums.ProductCategory `json:"category"`
	Price       decimal.Decimal       `json:"price"`
	Images      []string              `json:"images"`
	Sizes       []string              `json:"sizes"`
	Materials   []string              `json:"materials"`
	IsActive    bool                  `json:"isActive"`
	CreatedAt   time.Time             `json:"createdAt"`
	UpdatedAt   time.Time             `json:"updatedAt"`
}

// ProductListResult is a page of catalog entries.
type ProductListResult struct {
	Products []ProductDTO    `json:"products"`
	Page     pagination.Page `json:"page"`
}

// ListParams filters the catalog listing. Inactive products are hidden unless IncludeInactive is set.
type ListParams struct {
	Category        *enums.ProductCategory
	IncludeInactive bool
	Pagination      pagination.Params
}

// CreateProductInput holds the payload to create a product.
type CreateProductInput struct {
	Name        string          `json:"name" validate:"required,max=200"`
	Description string          `json:"description" validate:"max=5000"`
	Category    string          `json:"category" validate:"required"`
	Price       decimal.Decimal `json:"price"`
	Images      []string        `json:"images" validate:"max=10,dive,url"`
	Sizes       []string        `json:"sizes" validate:"max=20,dive,required,max=60"`
	Materials   []string        `json:"materials" validate:"max=20,dive,required,max=60"`
	IsActive    *bool           `json:"isActive"`
}

// UpdateProductInput holds optional mutation values for a product.
type UpdateProductInput struct {
	Name        *string          `json:"name" validate:"omitempty,max=200"`
	Description *string          `json:"description" validate:"omitempty,max=5000"`
	Category    *string          `json:"category"`
	Price       *decimal.Decimal `json:"price"`
	Images      *[]string        `json:"images" validate:"omitempty,max=10,dive,url"`
	Sizes       *[]string        `json:"sizes" validate:"omitempty,max=20,dive,required,max=60"`
	Materials   *[]string        `json:"materials" validate:"omitempty,max=20,dive,required,max=60"`
	IsActive    *bool            `json:"isActive"`
}

// FromModel maps the product row onto its transport shape.
func FromModel(p *models.Product) ProductDTO {
	return ProductDTO{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Category:    p.Category,
		Price:       p.Price,
		Images:      nonNil(p.Images),
		Sizes:       nonNil(p.Sizes),
		Materials:   nonNil(p.Materials),
		IsActive:    p.IsActive,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
	}
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
