package enums

import "fmt"

// ProductCategory groups catalog items.
type ProductCategory string

const (
	ProductCategoryPhotoFrames   ProductCategory = "Photo Frames"
	ProductCategoryCanvasPrints  ProductCategory = "Canvas Prints"
	ProductCategoryCustomGifts   ProductCategory = "Custom Gifts"
	ProductCategoryCollageFrames ProductCategory = "Collage Frames"
)

var validProductCategories = []ProductCategory{
	ProductCategoryPhotoFrames,
	ProductCategoryCanvasPrints,
	ProductCategoryCustomGifts,
	ProductCategoryCollageFrames,
}

// String implements fmt.Stringer.
func (c ProductCategory) String() string {
	return string(c)
}

// IsValid reports whether the value is a known ProductCategory.
func (c ProductCategory) IsValid() bool {
	for _, candidate := range validProductCategories {
		if candidate == c {
			return true
		}
	}
	return false
}

// ParseProductCategory converts raw input into a ProductCategory.
func ParseProductCategory(value string) (ProductCategory, error) {
	for _, candidate := range validProductCategories {
		if string(candidate) == value {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("invalid product category %q", value)
}

// ProductCategories returns the catalog categories in display order.
func ProductCategories() []ProductCategory {
	out := make([]ProductCategory, len(validProductCategories))
	copy(out, validProductCategories)
	return out
}
