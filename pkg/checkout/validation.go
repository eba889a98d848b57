// Package checkout holds the checkout rules shared by the API server and the
// storefront client, so both sides reject the same input.
package checkout

import (
	"fmt"
	"net/mail"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/angelmondragon/flashback-frames-backend/pkg/errors"
)

const (
	// MaxItems is the default item ceiling per order.
	MaxItems = 20
	// MobileDigits is the length of a normalized Indian mobile number.
	MobileDigits = 10
	// MaxNameLength bounds the customer name.
	MaxNameLength = 120
)

var minorUnitFactor = decimal.NewFromInt(100)

// Contact is the customer block submitted with every order.
type Contact struct {
	CustomerName string
	Mobile       string
	Email        string
	Address      string
}

// NormalizeMobile strips spaces, dashes, brackets, a leading +91 or 91 country code and a leading trunk 0.
func NormalizeMobile(raw string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(raw) {
		switch {
		case r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == '+' && b.Len() == 0:
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '(' || r == ')' || r == '.':
		default:
			// keep the junk so the result fails validation
			b.WriteRune(r)
		}
	}
	out := b.String()
	switch {
	case strings.HasPrefix(out, "+91"):
		out = out[3:]
	case len(out) == MobileDigits+2 && strings.HasPrefix(out, "91"):
		out = out[2:]
	}
	if len(out) == MobileDigits+1 && strings.HasPrefix(out, "0") {
		out = out[1:]
	}
	return out
}

// ValidMobile reports whether raw normalizes to exactly ten digits.
func ValidMobile(raw string) bool {
	normalized := NormalizeMobile(raw)
	if len(normalized) != MobileDigits {
		return false
	}
	for _, r := range normalized {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// FieldViolation names one rejected contact field.
type FieldViolation struct {
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidateContact checks the required customer fields and returns the normalized contact.
func ValidateContact(c Contact) (Contact, error) {
	out := Contact{
		CustomerName: strings.TrimSpace(c.CustomerName),
		Mobile:       NormalizeMobile(c.Mobile),
		Email:        strings.TrimSpace(c.Email),
		Address:      strings.TrimSpace(c.Address),
	}

	var violations []FieldViolation
	switch {
	case out.CustomerName == "":
		violations = append(violations, FieldViolation{Field: "customerName", Reason: "required"})
	case len([]rune(out.CustomerName)) > MaxNameLength:
		violations = append(violations, FieldViolation{Field: "customerName", Reason: fmt.Sprintf("must be at most %d characters", MaxNameLength)})
	}
	switch {
	case strings.TrimSpace(c.Mobile) == "":
		violations = append(violations, FieldViolation{Field: "mobile", Reason: "required"})
	case !ValidMobile(c.Mobile):
		violations = append(violations, FieldViolation{Field: "mobile", Reason: "must be a 10 digit mobile number"})
	}
	if out.Address == "" {
		violations = append(violations, FieldViolation{Field: "address", Reason: "required"})
	}
	if out.Email != "" {
		if addr, err := mail.ParseAddress(out.Email); err != nil || addr.Address != out.Email {
			violations = append(violations, FieldViolation{Field: "email", Reason: "must be a valid email address"})
		}
	}

	if len(violations) > 0 {
		return Contact{}, pkgerrors.New(pkgerrors.CodeValidation, "invalid contact details").WithDetails(map[string]any{
			"violations": violations,
		})
	}
	return out, nil
}

// ValidateItemCount enforces 1..max items, with max falling back to MaxItems.
func ValidateItemCount(count, max int) error {
	if max <= 0 {
		max = MaxItems
	}
	if count < 1 {
		return pkgerrors.New(pkgerrors.CodeValidation, "at least one item is required")
	}
	if count > max {
		return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("at most %d items are allowed per order", max))
	}
	return nil
}

// OptionValidationInput describes a chosen size and material against the product's offered options.
type OptionValidationInput struct {
	ProductID   uuid.UUID
	ProductName string
	Size        string
	Material    string
	Sizes       []string
	Materials   []string
}

// OptionViolationDetail is returned to callers when a chosen option is not offered.
type OptionViolationDetail struct {
	ProductID   uuid.UUID `json:"productId"`
	ProductName string    `json:"productName,omitempty"`
	Field       string    `json:"field"`
	Value       string    `json:"value"`
	Allowed     []string  `json:"allowed"`
}

// ValidateOptions ensures every chosen size and material is one the product offers.
// Products without options accept any value.
func ValidateOptions(items []OptionValidationInput) error {
	var violations []OptionViolationDetail
	for _, item := range items {
		if len(item.Sizes) > 0 && !containsFold(item.Sizes, item.Size) {
			violations = append(violations, OptionViolationDetail{
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				Field:       "size",
				Value:       item.Size,
				Allowed:     item.Sizes,
			})
		}
		if len(item.Materials) > 0 && !containsFold(item.Materials, item.Material) {
			violations = append(violations, OptionViolationDetail{
				ProductID:   item.ProductID,
				ProductName: item.ProductName,
				Field:       "material",
				Value:       item.Material,
				Allowed:     item.Materials,
			})
		}
	}
	if len(violations) == 0 {
		return nil
	}
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("unavailable options chosen for %d item(s)", len(violations))).WithDetails(map[string]any{
		"violations": violations,
	})
}

// ToMinorUnits converts a rupee amount into paise, rounding half away from zero.
func ToMinorUnits(amount decimal.Decimal) int64 {
	return amount.Mul(minorUnitFactor).Round(0).IntPart()
}

// FromMinorUnits converts paise back into a rupee amount.
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.NewFromInt(minor).Div(minorUnitFactor)
}

func containsFold(values []string, needle string) bool {
	needle = strings.TrimSpace(needle)
	for _, v := range values {
		if strings.EqualFold(strings.TrimSpace(v), needle) {
			return true
		}
	}
	return false
}
