package order_repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/RoyceAzure/lab/assia/internal/domain/model"
	"github.com/RoyceAzure/lab/assia/internal/infra/repository/kv"
)

const DefaultOrdersKey = "cpad_orders"

var ErrCorruptedOrders = errors.New("stored orders document is corrupted")

// IOrderRepository 整份訂單清單存成一份 JSON 文件
// 每次異動都整份覆寫，最後寫入者為準
type IOrderRepository interface {
	LoadAll(ctx context.Context) ([]model.Order, error)
	SaveAll(ctx context.Context, orders []model.Order) error
}

type OrderRepo struct {
	store kv.IStore
	key   string
}

var _ IOrderRepository = (*OrderRepo)(nil)

func NewOrderRepo(store kv.IStore, key string) *OrderRepo {
	if store == nil {
		panic("kv store is nil")
	}
	if key == "" {
		key = DefaultOrdersKey
	}
	return &OrderRepo{store: store, key: key}
}

// LoadAll key 不存在時回傳空清單
func (r *OrderRepo) LoadAll(ctx context.Context) ([]model.Order, error) {
	raw, found, err := r.store.Get(ctx, r.key)
	if err != nil {
		return nil, fmt.Errorf("load orders failed: %w", err)
	}
	if !found || len(raw) == 0 {
		return []model.Order{}, nil
	}

	var orders []model.Order
	if err := json.Unmarshal(raw, &orders); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorruptedOrders, err)
	}
	if orders == nil {
		orders = []model.Order{}
	}
	return orders, nil
}

func (r *OrderRepo) SaveAll(ctx context.Context, orders []model.Order) error {
	if orders == nil {
		orders = []model.Order{}
	}
	raw, err := json.Marshal(orders)
	if err != nil {
		return fmt.Errorf("encode orders failed: %w", err)
	}
	if err := r.store.Set(ctx, r.key, raw); err != nil {
		return fmt.Errorf("save orders failed: %w", err)
	}
	return nil
}
