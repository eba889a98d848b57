package controllers

import (
	"net/http"

	"github.com/angelmondragon/flashback-frames-backend/api/validators"
	checkoutsvc "github.com/angelmondragon/flashback-frames-backend/internal/checkout"
)

const formOverheadBytes = 1 << 20

// CheckoutLimits bound a checkout multipart request.
type CheckoutLimits struct {
	MaxImageBytes int64
	MaxItems      int
}

// MaxBodyBytes is the largest checkout request accepted; zero means unbounded.
func (l CheckoutLimits) MaxBodyBytes() int64 {
	if l.MaxImageBytes <= 0 || l.MaxItems <= 0 {
		return 0
	}
	return int64(l.MaxItems)*l.MaxImageBytes + formOverheadBytes
}

// parseCheckoutForm reads contact fields, the JSON items list and one images
// part per item. Semantic checks (counts, catalog, image types) belong to the
// checkout service.
func parseCheckoutForm(w http.ResponseWriter, r *http.Request, limits CheckoutLimits) (checkoutsvc.CheckoutInput, error) {
	if err := validators.ParseMultipartForm(w, r, limits.MaxBodyBytes()); err != nil {
		return checkoutsvc.CheckoutInput{}, err
	}

	contact := checkoutsvc.ContactInput{
		CustomerName: validators.FormString(r, "customerName"),
		Mobile:       validators.FormString(r, "mobile"),
		Email:        validators.FormString(r, "email"),
		Address:      validators.FormString(r, "address"),
	}
	if err := validators.ValidateStruct(contact); err != nil {
		return checkoutsvc.CheckoutInput{}, err
	}

	var items []checkoutsvc.ItemInput
	if err := validators.DecodeJSONField(r, "items", &items); err != nil {
		return checkoutsvc.CheckoutInput{}, err
	}
	for i := range items {
		if err := validators.ValidateStruct(items[i]); err != nil {
			return checkoutsvc.CheckoutInput{}, err
		}
	}

	files, err := validators.ReadFormFiles(r, "images", limits.MaxImageBytes)
	if err != nil {
		return checkoutsvc.CheckoutInput{}, err
	}
	images := make([]checkoutsvc.ImageUpload, len(files))
	for i, f := range files {
		images[i] = checkoutsvc.ImageUpload{FileName: f.FileName, ContentType: f.ContentType, Data: f.Data}
	}

	return checkoutsvc.CheckoutInput{Contact: contact, Items: items, Images: images}, nil
}
