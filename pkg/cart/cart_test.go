package cart

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStore struct {
	MemoryStore
	err error
}

func (f *failingStore) Save(ctx context.Context, items []Item) error {
	if f.err != nil {
		return f.err
	}
	return f.MemoryStore.Save(ctx, items)
}

func frame(price string, qty int) Item {
	return Item{
		ProductID: uuid.New(),
		Name:      "Classic Frame",
		Price:     decimal.RequireFromString(price),
		Size:      "8x10",
		Quantity:  qty,
		Image:     &Image{FileName: "a.png", Data: []byte("png")},
	}
}

func TestTotalsAndCount(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, NewMemoryStore())
	require.NoError(t, err)

	_, err = c.Add(ctx, frame("500", 1))
	require.NoError(t, err)
	_, err = c.Add(ctx, frame("300", 2))
	require.NoError(t, err)

	assert.True(t, c.Total().Equal(decimal.RequireFromString("1100")))
	assert.Equal(t, 3, c.Count())
}

func TestAddKeepsSeparateLinesAndClampsQuantity(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, NewMemoryStore())
	require.NoError(t, err)

	item := frame("500", 0)
	a, err := c.Add(ctx, item)
	require.NoError(t, err)
	b, err := c.Add(ctx, item)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	assert.Equal(t, 1, a.Quantity)
	assert.Len(t, c.Items(), 2)
}

func TestUpdateQuantityClamps(t *testing.T) {
	ctx := context.Background()
	c, err := New(ctx, NewMemoryStore())
	require.NoError(t, err)
	item, err := c.Add(ctx, frame("500", 2))
	require.NoError(t, err)

	require.NoError(t, c.UpdateQuantity(ctx, item.ID, -3))
	assert.Equal(t, 1, c.Count())
	require.NoError(t, c.UpdateQuantity(ctx, item.ID, 4))
	assert.Equal(t, 4, c.Count())

	require.NoError(t, c.Remove(ctx, item.ID))
	assert.True(t, c.IsEmpty())
}

func TestSnapshotsNeverCarryImages(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	c, err := New(ctx, store)
	require.NoError(t, err)
	added, err := c.Add(ctx, frame("500", 1))
	require.NoError(t, err)

	saved, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, saved, 1)
	assert.Nil(t, saved[0].Image)
	assert.NotNil(t, c.Items()[0].Image)

	reloaded, err := New(ctx, store)
	require.NoError(t, err)
	require.Len(t, reloaded.MissingImages(), 1)
	assert.True(t, reloaded.BindImage(added.ID, &Image{Data: []byte("png")}))
	assert.Empty(t, reloaded.MissingImages())
	assert.False(t, reloaded.BindImage("nope", &Image{}))
}

func TestPersistFailureKeepsMemoryState(t *testing.T) {
	ctx := context.Background()
	store := &failingStore{}
	c, err := New(ctx, store)
	require.NoError(t, err)

	store.err = errors.New("quota exceeded")
	_, err = c.Add(ctx, frame("500", 1))
	require.Error(t, err)
	assert.Equal(t, 1, c.Count())

	store.err = nil
	require.NoError(t, c.Clear(ctx))
	assert.True(t, c.IsEmpty())
	assert.Equal(t, 1, store.Saves())
}

func TestFileStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "carts", "cart.json")
	store := NewFileStore(path)

	c, err := New(ctx, store)
	require.NoError(t, err)
	assert.True(t, c.IsEmpty())

	_, err = c.Add(ctx, frame("249.50", 2))
	require.NoError(t, err)

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.False(t, strings.Contains(string(raw), "a.png"))

	reloaded, err := New(ctx, store)
	require.NoError(t, err)
	assert.True(t, reloaded.Total().Equal(decimal.RequireFromString("499")))
}

func TestFileStoreRejectsCorruptFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cart.json")
	require.NoError(t, os.WriteFile(path, []byte("{"), 0o600))

	_, err := New(context.Background(), NewFileStore(path))
	require.Error(t, err)
}
