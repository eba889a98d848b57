package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	pkgcart "github.com/angelmondragon/flashback-frames-backend/pkg/cart"
	pkgerrors "github.com/angelmondragon/flashback-frames-backend/pkg/errors"
)

const (
	// MaxItems bounds a stored snapshot.
	MaxItems = 50
	// DefaultTTL keeps an untouched cart for thirty days.
	DefaultTTL = 30 * 24 * time.Hour
)

type snapshotStore interface {
	CartKey(cartID string) string
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
}

// Snapshot is the server-synced copy of a shopper's cart.
type Snapshot struct {
	CartID    uuid.UUID       `json:"cartId"`
	Items     []pkgcart.Item  `json:"items"`
	Count     int             `json:"count"`
	Total     decimal.Decimal `json:"total"`
	UpdatedAt *time.Time      `json:"updatedAt,omitempty"`
}

// Service stores cart snapshots in Redis.
type Service interface {
	Get(ctx context.Context, cartID string) (*Snapshot, error)
	Save(ctx context.Context, cartID string, items []pkgcart.Item) (*Snapshot, error)
}

type service struct {
	store snapshotStore
	ttl   time.Duration
	now   func() time.Time
}

type storedSnapshot struct {
	Items     []pkgcart.Item `json:"items"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// NewService builds the snapshot service. A non-positive ttl falls back to DefaultTTL.
func NewService(store snapshotStore, ttl time.Duration) (Service, error) {
	if store == nil {
		return nil, fmt.Errorf("cart snapshot store required")
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &service{store: store, ttl: ttl, now: func() time.Time { return time.Now().UTC() }}, nil
}

// Get returns the stored snapshot, or an empty one for an unknown cart.
func (s *service) Get(ctx context.Context, cartID string) (*Snapshot, error) {
	id, err := parseCartID(cartID)
	if err != nil {
		return nil, err
	}
	raw, err := s.store.Get(ctx, s.store.CartKey(id.String()))
	if errors.Is(err, redis.Nil) {
		return build(id, nil, nil), nil
	}
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load cart")
	}
	var stored storedSnapshot
	if err := json.Unmarshal([]byte(raw), &stored); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "decode cart")
	}
	return build(id, stored.Items, &stored.UpdatedAt), nil
}

// Save replaces the snapshot and refreshes its TTL.
func (s *service) Save(ctx context.Context, cartID string, items []pkgcart.Item) (*Snapshot, error) {
	id, err := parseCartID(cartID)
	if err != nil {
		return nil, err
	}
	clean, err := sanitize(items)
	if err != nil {
		return nil, err
	}
	now := s.now()
	payload, err := json.Marshal(storedSnapshot{Items: clean, UpdatedAt: now})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "encode cart")
	}
	if err := s.store.Set(ctx, s.store.CartKey(id.String()), payload, s.ttl); err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "save cart")
	}
	return build(id, clean, &now), nil
}

func parseCartID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(strings.TrimSpace(raw))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, pkgerrors.New(pkgerrors.CodeValidation, "cart id must be a uuid")
	}
	return id, nil
}

func sanitize(items []pkgcart.Item) ([]pkgcart.Item, error) {
	if len(items) > MaxItems {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("a cart holds at most %d items", MaxItems))
	}
	out := make([]pkgcart.Item, 0, len(items))
	for i, item := range items {
		switch {
		case strings.TrimSpace(item.ID) == "":
			return nil, itemError(i, "id is required")
		case item.ProductID == uuid.Nil:
			return nil, itemError(i, "productId is required")
		case strings.TrimSpace(item.Name) == "":
			return nil, itemError(i, "name is required")
		case item.Price.IsNegative():
			return nil, itemError(i, "price must not be negative")
		}
		if item.Quantity < 1 {
			item.Quantity = 1
		}
		item.Image = nil
		out = append(out, item)
	}
	return out, nil
}

func itemError(position int, reason string) error {
	return pkgerrors.New(pkgerrors.CodeValidation, fmt.Sprintf("cart item %d is invalid", position+1)).
		WithDetails(map[string]any{"position": position, "reason": reason})
}

func build(id uuid.UUID, items []pkgcart.Item, updatedAt *time.Time) *Snapshot {
	if items == nil {
		items = []pkgcart.Item{}
	}
	snap := &Snapshot{CartID: id, Items: items, Total: decimal.Zero, UpdatedAt: updatedAt}
	for _, item := range items {
		snap.Count += item.Quantity
		snap.Total = snap.Total.Add(item.LineTotal())
	}
	return snap
}
