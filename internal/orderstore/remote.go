package orderstore

import (
	"context"

	"github.com/mmeshcher/labelprint/internal/model"
	"github.com/mmeshcher/labelprint/internal/printerapi"
)

// Remote хранит заказы на сервере. Идентификатор назначает сервер.
type Remote struct {
	client *printerapi.Client
}

// NewRemote создаёт хранилище поверх клиента, уже подписанного токеном сессии.
func NewRemote(client *printerapi.Client) *Remote {
	return &Remote{client: client}
}

// List возвращает все заказы.
func (r *Remote) List(ctx context.Context) ([]model.Order, error) {
	orders, _, _, err := r.client.ListOrders(ctx, "")
	return orders, err
}

// Poll запрашивает заказы с условием If-None-Match.
func (r *Remote) Poll(ctx context.Context, revision string) ([]model.Order, string, bool, error) {
	orders, rev, notModified, err := r.client.ListOrders(ctx, revision)
	if err != nil {
		return nil, revision, false, err
	}
	if notModified {
		return nil, rev, false, nil
	}
	return orders, rev, true, nil
}

// Create отправляет заказ на сервер.
func (r *Remote) Create(ctx context.Context, o model.Order) (model.Order, error) {
	return r.client.CreateOrder(ctx, o)
}

// Update изменяет заказ на сервере.
func (r *Remote) Update(ctx context.Context, id int64, patch model.OrderPatch) (model.Order, error) {
	return r.client.UpdateOrder(ctx, id, patch)
}

// Delete удаляет заказ на сервере.
func (r *Remote) Delete(ctx context.Context, id int64) error {
	return r.client.DeleteOrder(ctx, id)
}
