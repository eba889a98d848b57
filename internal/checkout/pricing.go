package checkout

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/angelmondragon/flashback-frames-backend/pkg/db/models"
	pkgcheckout "github.com/angelmondragon/flashback-frames-backend/pkg/checkout"
	pkgerrors "github.com/angelmondragon/flashback-frames-backend/pkg/errors"
)

// PriceLookup returns the active catalog rows for ids. Missing or inactive
// products are absent from the map.
type PriceLookup interface {
	FindActiveByIDs(ctx context.Context, ids []uuid.UUID) (map[uuid.UUID]*models.Product, error)
}

type pricedLine struct {
	input   ItemInput
	product *models.Product
}

func (l pricedLine) total() decimal.Decimal {
	return l.product.Price.Mul(decimal.NewFromInt(int64(l.input.Quantity)))
}

// priceItems resolves every item against the catalog and sums catalog price
// times quantity.
func priceItems(ctx context.Context, lookup PriceLookup, items []ItemInput) ([]pricedLine, decimal.Decimal, error) {
	ids := make([]uuid.UUID, 0, len(items))
	seen := make(map[uuid.UUID]struct{}, len(items))
	for i, item := range items {
		if item.ProductID == uuid.Nil {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d is missing a product", i+1))
		}
		if item.Quantity < 1 {
			return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("item %d quantity must be at least 1", i+1))
		}
		if _, ok := seen[item.ProductID]; !ok {
			seen[item.ProductID] = struct{}{}
			ids = append(ids, item.ProductID)
		}
	}

	products, err := lookup.FindActiveByIDs(ctx, ids)
	if err != nil {
		return nil, decimal.Zero, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load catalog prices")
	}

	lines := make([]pricedLine, 0, len(items))
	options := make([]pkgcheckout.OptionValidationInput, 0, len(items))
	var missing []uuid.UUID
	for _, item := range items {
		product, ok := products[item.ProductID]
		if !ok {
			missing = append(missing, item.ProductID)
			continue
		}
		lines = append(lines, pricedLine{input: item, product: product})
		options = append(options, pkgcheckout.OptionValidationInput{
			ProductID:   product.ID,
			ProductName: product.Name,
			Size:        item.Size,
			Material:    item.Material,
			Sizes:       product.Sizes,
			Materials:   product.Materials,
		})
	}
	if len(missing) > 0 {
		return nil, decimal.Zero, pkgerrors.New(pkgerrors.CodeNotFound, "product not found or unavailable").
			WithDetails(map[string]any{"productIds": missing})
	}
	if err := pkgcheckout.ValidateOptions(options); err != nil {
		return nil, decimal.Zero, err
	}

	total := decimal.Zero
	for _, line := range lines {
		total = total.Add(line.total())
	}
	return lines, total, nil
}
