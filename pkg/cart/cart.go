// Package cart is the shopper-side cart. Item images stay in memory only;
// every mutation persists a snapshot without them through a Store.
package cart

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Image is the customer photo attached to one line.
type Image struct {
	FileName    string
	ContentType string
	Data        []byte
}

// Item is one configured product in the cart.
type Item struct {
	ID           string          `json:"id"`
	ProductID    uuid.UUID       `json:"productId"`
	Name         string          `json:"name"`
	Price        decimal.Decimal `json:"price"`
	PreviewImage string          `json:"previewImage,omitempty"`
	Size         string          `json:"size,omitempty"`
	Material     string          `json:"material,omitempty"`
	Quantity     int             `json:"quantity"`
	Image        *Image          `json:"-"`
}

// LineTotal is price times quantity.
func (i Item) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Store persists cart snapshots.
type Store interface {
	Load(ctx context.Context) ([]Item, error)
	Save(ctx context.Context, items []Item) error
}

// Cart is safe for concurrent use.
type Cart struct {
	mu    sync.Mutex
	items []Item
	store Store
}

// New loads the stored snapshot. Loaded items have no images until BindImage.
func New(ctx context.Context, store Store) (*Cart, error) {
	if store == nil {
		store = NewMemoryStore()
	}
	items, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}
	c := &Cart{store: store}
	for _, item := range items {
		c.items = append(c.items, normalize(item))
	}
	return c, nil
}

func normalize(item Item) Item {
	if item.ID == "" {
		item.ID = uuid.NewString()
	}
	if item.Quantity < 1 {
		item.Quantity = 1
	}
	return item
}

// Add appends item as a new line, even when the same product is already in
// the cart, and returns it with its generated id.
func (c *Cart) Add(ctx context.Context, item Item) (Item, error) {
	item.ID = ""
	item = normalize(item)

	c.mu.Lock()
	c.items = append(c.items, item)
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	return item, c.persist(ctx, snapshot)
}

// Remove drops the line with id. Unknown ids are ignored.
func (c *Cart) Remove(ctx context.Context, id string) error {
	c.mu.Lock()
	kept := c.items[:0]
	for _, item := range c.items {
		if item.ID != id {
			kept = append(kept, item)
		}
	}
	c.items = kept
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	return c.persist(ctx, snapshot)
}

// UpdateQuantity sets the quantity of id, clamped to at least 1.
func (c *Cart) UpdateQuantity(ctx context.Context, id string, quantity int) error {
	if quantity < 1 {
		quantity = 1
	}
	c.mu.Lock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].Quantity = quantity
		}
	}
	snapshot := c.snapshotLocked()
	c.mu.Unlock()

	return c.persist(ctx, snapshot)
}

// Clear empties the cart.
func (c *Cart) Clear(ctx context.Context) error {
	c.mu.Lock()
	c.items = nil
	c.mu.Unlock()

	return c.persist(ctx, []Item{})
}

// BindImage attaches image to the line with id and reports whether it exists.
func (c *Cart) BindImage(id string, image *Image) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.items[i].ID == id {
			c.items[i].Image = image
			return true
		}
	}
	return false
}

// Items returns a copy of the lines, images included.
func (c *Cart) Items() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Item, len(c.items))
	copy(out, c.items)
	return out
}

// MissingImages lists lines without an attached image.
func (c *Cart) MissingImages() []Item {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []Item
	for _, item := range c.items {
		if item.Image == nil || len(item.Image.Data) == 0 {
			out = append(out, item)
		}
	}
	return out
}

// Total is the sum of price times quantity.
func (c *Cart) Total() decimal.Decimal {
	c.mu.Lock()
	defer c.mu.Unlock()
	total := decimal.Zero
	for _, item := range c.items {
		total = total.Add(item.LineTotal())
	}
	return total
}

// Count is the sum of quantities.
func (c *Cart) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	n := 0
	for _, item := range c.items {
		n += item.Quantity
	}
	return n
}

// IsEmpty reports whether the cart has no lines.
func (c *Cart) IsEmpty() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.items) == 0
}

func (c *Cart) snapshotLocked() []Item {
	out := make([]Item, len(c.items))
	for i, item := range c.items {
		item.Image = nil
		out[i] = item
	}
	return out
}

// persist saves the snapshot. On failure the in-memory state stays mutated.
func (c *Cart) persist(ctx context.Context, snapshot []Item) error {
	if err := c.store.Save(ctx, snapshot); err != nil {
		return fmt.Errorf("save cart: %w", err)
	}
	return nil
}
