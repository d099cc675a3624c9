// Package orderstore хранит заказы либо в локальном JSON-файле (зеркало),
// либо на сервере через HTTP API.
package orderstore

import (
	"context"

	"github.com/mmeshcher/labelprint/internal/apperr"
	"github.com/mmeshcher/labelprint/internal/catalog"
	"github.com/mmeshcher/labelprint/internal/expiry"
	"github.com/mmeshcher/labelprint/internal/model"
	"github.com/mmeshcher/labelprint/internal/validation"
)

// Store описывает хранилище коллекции заказов.
type Store interface {
	List(ctx context.Context) ([]model.Order, error)
	Create(ctx context.Context, o model.Order) (model.Order, error)
	Update(ctx context.Context, id int64, patch model.OrderPatch) (model.Order, error)
	Delete(ctx context.Context, id int64) error
}

// Poller отдаёт коллекцию только если её ревизия отличается от переданной.
type Poller interface {
	Poll(ctx context.Context, revision string) (orders []model.Order, newRevision string, changed bool, err error)
}

// ErrOrderNotFound возвращается, если заказа с таким идентификатором нет.
var ErrOrderNotFound = apperr.New(apperr.KindNotFound, "order not found")

// ApplyPatch применяет изменения к заказу. Смена продукта подтягивает название
// и срок годности из справочника; смена продукта или даты производства
// пересчитывает дату истечения. Результат проходит ту же проверку, что и новый заказ.
func ApplyPatch(o model.Order, patch model.OrderPatch, cat *catalog.Catalog, calc *expiry.Calculator) (model.Order, error) {
	if patch.IsEmpty() {
		return o, nil
	}
	if calc == nil {
		calc = expiry.NewCalculator(nil)
	}

	if patch.LotNumber != nil {
		o.LotNumber = *patch.LotNumber
	}
	if patch.Notes != nil {
		o.Notes = *patch.Notes
	}
	if patch.Quantity != nil {
		if *patch.Quantity < 1 {
			return model.Order{}, apperr.Validation("quantity must be at least 1")
		}
		o.Quantity = *patch.Quantity
	}

	recompute := false
	if patch.ProductID != nil && *patch.ProductID != o.ProductID {
		o.ProductID = *patch.ProductID
		if p, ok := cat.Lookup(o.ProductID); ok {
			o.ProductName = p.Name
			o.ProductExp = p.Exp
		} else {
			o.ProductName = ""
			o.ProductExp = ""
		}
		recompute = true
	}
	if patch.ProductionDate != nil {
		o.ProductionDate = *patch.ProductionDate
		recompute = true
	}
	if recompute {
		o.ExpiryDate = calc.ComputeDate(o.ProductionDate, o.ProductExp)
	}

	if err := validation.ValidateOrder(o); err != nil {
		return model.Order{}, err
	}
	return o, nil
}
