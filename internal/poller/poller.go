// Package poller периодически перечитывает коллекцию заказов и сообщает об изменениях.
package poller

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/labelprint/internal/apperr"
	"github.com/mmeshcher/labelprint/internal/model"
	"github.com/mmeshcher/labelprint/internal/orderstore"
)

// DefaultInterval задаёт период опроса по умолчанию.
const DefaultInterval = 5 * time.Second

// Watcher опрашивает источник с ревизией: неизменившаяся коллекция не передаётся
// повторно. Опрос может вернуть данные, устаревшие относительно только что
// выполненной локальной правки; следующая итерация это исправит.
type Watcher struct {
	source   orderstore.Poller
	interval time.Duration
	logger   *zap.Logger
	onChange func([]model.Order)

	revision string
}

// NewWatcher создаёт наблюдателя. onChange вызывается из горутины Run.
func NewWatcher(source orderstore.Poller, interval time.Duration, logger *zap.Logger, onChange func([]model.Order)) *Watcher {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if onChange == nil {
		onChange = func([]model.Order) {}
	}
	return &Watcher{
		source:   source,
		interval: interval,
		logger:   logger,
		onChange: onChange,
	}
}

// Revision возвращает последнюю известную ревизию коллекции.
func (w *Watcher) Revision() string {
	return w.revision
}

// Poll выполняет один опрос и сообщает, изменилась ли коллекция.
func (w *Watcher) Poll(ctx context.Context) (bool, error) {
	orders, rev, changed, err := w.source.Poll(ctx, w.revision)
	if err != nil {
		return false, fmt.Errorf("poll orders: %w", err)
	}
	w.revision = rev
	if changed {
		w.onChange(orders)
	}
	return changed, nil
}

// Run опрашивает источник сразу и затем с заданным периодом до отмены контекста.
// Ошибка аутентификации прерывает цикл, остальные ошибки только логируются.
func (w *Watcher) Run(ctx context.Context) error {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		if _, err := w.Poll(ctx); err != nil {
			if errors.Is(err, apperr.ErrAuth) {
				return err
			}
			if ctx.Err() == nil {
				w.logger.Warn("orders poll failed", zap.Error(err))
			}
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
