package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbtypes "github.com/angelmondragon/flashback-frames-backend/pkg/db/types"
	"github.com/angelmondragon/flashback-frames-backend/pkg/enums"
)

// Product is a catalog entry; its price is the authoritative unit price at checkout.
type Product struct {
	ID          uuid.UUID             `gorm:"column:id;type:uuid;default:gen_random_uuid();primaryKey"`
	Name        string                `gorm:"column:name;not null"`
	Description string                `gorm:"column:description;not null"`
	Category    enums.ProductCategory `gorm:"column:category;not null"`
	Price       decimal.Decimal       `gorm:"column:price;type:numeric(12,2);not null"`
	Images      dbtypes.StringList    `gorm:"column:images;type:jsonb;not null"`
	Sizes       dbtypes.StringList    `gorm:"column:sizes;type:jsonb;not null"`
	Materials   dbtypes.StringList    `gorm:"column:materials;type:jsonb;not null"`
	IsActive    bool                  `gorm:"column:is_active;not null"`
	CreatedAt   time.Time             `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt   time.Time             `gorm:"column:updated_at;autoUpdateTime"`
}

func (p *Product) BeforeCreate(*gorm.DB) error {
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	return nil
}
