package cart

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgcart "github.com/angelmondragon/flashback-frames-backend/pkg/cart"
	pkgerrors "github.com/angelmondragon/flashback-frames-backend/pkg/errors"
)

type mapStore struct {
	values map[string]string
	ttls   map[string]time.Duration
	getErr error
}

func newMapStore() *mapStore {
	return &mapStore{values: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (m *mapStore) CartKey(id string) string { return "ff:cart:" + id }

func (m *mapStore) Get(_ context.Context, key string) (string, error) {
	if m.getErr != nil {
		return "", m.getErr
	}
	v, ok := m.values[key]
	if !ok {
		return "", redis.Nil
	}
	return v, nil
}

func (m *mapStore) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	switch v := value.(type) {
	case []byte:
		m.values[key] = string(v)
	case string:
		m.values[key] = v
	}
	m.ttls[key] = ttl
	return nil
}

func line(price string, qty int) pkgcart.Item {
	return pkgcart.Item{
		ID:        uuid.NewString(),
		ProductID: uuid.New(),
		Name:      "Classic Frame",
		Price:     decimal.RequireFromString(price),
		Quantity:  qty,
	}
}

func TestSaveAndGet(t *testing.T) {
	store := newMapStore()
	svc, err := NewService(store, 0)
	require.NoError(t, err)
	ctx := context.Background()
	cartID := uuid.NewString()

	withImage := line("500", 1)
	withImage.Image = &pkgcart.Image{Data: []byte("secret bytes")}
	saved, err := svc.Save(ctx, cartID, []pkgcart.Item{withImage, line("300", 0)})
	require.NoError(t, err)
	assert.Equal(t, 2, saved.Count)
	assert.True(t, saved.Total.Equal(decimal.RequireFromString("800")))

	key := "ff:cart:" + cartID
	assert.Equal(t, DefaultTTL, store.ttls[key])
	assert.NotContains(t, store.values[key], "secret")

	got, err := svc.Get(ctx, cartID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, 1, got.Items[1].Quantity)
	assert.NotNil(t, got.UpdatedAt)

	var raw map[string]any
	require.NoError(t, json.Unmarshal([]byte(store.values[key]), &raw))
	assert.Contains(t, raw, "items")
}

func TestGetUnknownCartIsEmpty(t *testing.T) {
	svc, err := NewService(newMapStore(), time.Hour)
	require.NoError(t, err)

	got, err := svc.Get(context.Background(), uuid.NewString())
	require.NoError(t, err)
	assert.Empty(t, got.Items)
	assert.Zero(t, got.Count)
	assert.Nil(t, got.UpdatedAt)
}

func TestSaveValidation(t *testing.T) {
	svc, err := NewService(newMapStore(), time.Hour)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = svc.Save(ctx, "not-a-uuid", nil)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	tooMany := make([]pkgcart.Item, MaxItems+1)
	for i := range tooMany {
		tooMany[i] = line("10", 1)
	}
	_, err = svc.Save(ctx, uuid.NewString(), tooMany)
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	negative := line("-1", 1)
	_, err = svc.Save(ctx, uuid.NewString(), []pkgcart.Item{negative})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))

	noProduct := line("1", 1)
	noProduct.ProductID = uuid.Nil
	_, err = svc.Save(ctx, uuid.NewString(), []pkgcart.Item{noProduct})
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}

func TestGetStoreFailureIsDependency(t *testing.T) {
	store := newMapStore()
	store.getErr = errors.New("connection refused")
	svc, err := NewService(store, time.Hour)
	require.NoError(t, err)

	_, err = svc.Get(context.Background(), uuid.NewString())
	require.True(t, pkgerrors.IsCode(err, pkgerrors.CodeDependency))
}
