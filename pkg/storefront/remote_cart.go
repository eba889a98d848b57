package storefront

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/angelmondragon/flashback-frames-backend/pkg/cart"
)

// RemoteCartStore is a cart.Store synced to /api/carts/{cartId}.
type RemoteCartStore struct {
	client *Client
	cartID string
}

var _ cart.Store = (*RemoteCartStore)(nil)

// NewRemoteCartStore binds the store to cartID, which must be a uuid.
func NewRemoteCartStore(client *Client, cartID string) (*RemoteCartStore, error) {
	if client == nil {
		return nil, errors.New("storefront client required")
	}
	if _, err := uuid.Parse(cartID); err != nil {
		return nil, errors.New("cart id must be a uuid")
	}
	return &RemoteCartStore{client: client, cartID: cartID}, nil
}

func (s *RemoteCartStore) Load(ctx context.Context) ([]cart.Item, error) {
	return s.client.GetCart(ctx, s.cartID)
}

func (s *RemoteCartStore) Save(ctx context.Context, items []cart.Item) error {
	return s.client.SaveCart(ctx, s.cartID, items)
}
