package dashboard

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mmeshcher/labelprint/internal/apperr"
	"github.com/mmeshcher/labelprint/internal/model"
	"github.com/mmeshcher/labelprint/internal/session"
)

// Store описывает хранилище заказов, которым пользуется панель.
type Store interface {
	List(ctx context.Context) ([]model.Order, error)
	Update(ctx context.Context, id int64, patch model.OrderPatch) (model.Order, error)
	Delete(ctx context.Context, id int64) error
}

// View держит копию коллекции заказов в памяти и выполняет над ней
// действия с проверкой роли.
type View struct {
	store Store
	sess  *session.Session
	now   func() time.Time

	mu     sync.RWMutex
	orders []model.Order
}

// NewView создаёт панель для указанной сессии.
func NewView(store Store, sess *session.Session) *View {
	return &View{store: store, sess: sess, now: time.Now}
}

// Refresh перечитывает коллекцию из хранилища. При ошибке коллекция не меняется.
func (v *View) Refresh(ctx context.Context) error {
	orders, err := v.store.List(ctx)
	if err != nil {
		return fmt.Errorf("refresh orders: %w", err)
	}
	v.Replace(orders)
	return nil
}

// Replace подменяет коллекцию, например результатом очередного опроса.
func (v *View) Replace(orders []model.Order) {
	cp := make([]model.Order, len(orders))
	copy(cp, orders)

	v.mu.Lock()
	v.orders = cp
	v.mu.Unlock()
}

// Orders возвращает копию коллекции в порядке хранилища.
func (v *View) Orders() []model.Order {
	v.mu.RLock()
	defer v.mu.RUnlock()

	cp := make([]model.Order, len(v.orders))
	copy(cp, v.orders)
	return cp
}

// Visible возвращает отфильтрованные заказы, новые первыми.
func (v *View) Visible(w Window, term string) []model.Order {
	out := Filter(v.Orders(), w, term, v.now())
	SortNewestFirst(out)
	return out
}

// Summary считает сводку по всей коллекции.
func (v *View) Summary() Summary {
	return Aggregate(v.Orders(), v.now())
}

func (v *View) requireElevated(action string) error {
	if !v.sess.IsElevated() {
		return apperr.Forbidden("only admin may " + action + " orders")
	}
	return nil
}

// Delete удаляет заказ. Без роли администратора хранилище не вызывается.
func (v *View) Delete(ctx context.Context, id int64) error {
	if err := v.requireElevated("delete"); err != nil {
		return err
	}

	if err := v.store.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete order %d: %w", id, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	kept := v.orders[:0:0]
	for _, o := range v.orders {
		if o.ID != id {
			kept = append(kept, o)
		}
	}
	v.orders = kept
	return nil
}

// Update изменяет заказ. Без роли администратора хранилище не вызывается.
func (v *View) Update(ctx context.Context, id int64, patch model.OrderPatch) (model.Order, error) {
	if err := v.requireElevated("edit"); err != nil {
		return model.Order{}, err
	}

	updated, err := v.store.Update(ctx, id, patch)
	if err != nil {
		return model.Order{}, fmt.Errorf("update order %d: %w", id, err)
	}

	v.mu.Lock()
	defer v.mu.Unlock()
	for i := range v.orders {
		if v.orders[i].ID == id {
			v.orders[i] = updated
			break
		}
	}
	return updated, nil
}
