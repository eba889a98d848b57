package orders

import (
	"crypto/rand"
	"encoding/hex"
	"regexp"
	"strings"
)

const orderNumberPrefix = "FF-"

var orderNumberPattern = regexp.MustCompile(`^FF-[0-9A-F]{6}$`)

// NewOrderNumber returns FF- followed by six uppercase hex characters.
func NewOrderNumber() string {
	buf := make([]byte, 3)
	if _, err := rand.Read(buf); err != nil {
		panic("orders: crypto/rand unavailable: " + err.Error())
	}
	return orderNumberPrefix + strings.ToUpper(hex.EncodeToString(buf))
}

// NormalizeOrderNumber uppercases and trims a customer-typed order number.
func NormalizeOrderNumber(value string) string {
	return strings.ToUpper(strings.TrimSpace(value))
}

// IsOrderNumber reports whether value, case-insensitively, has the order number shape.
func IsOrderNumber(value string) bool {
	return orderNumberPattern.MatchString(NormalizeOrderNumber(value))
}
