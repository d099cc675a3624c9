package orderstore

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/mmeshcher/labelprint/internal/apperr"
	"github.com/mmeshcher/labelprint/internal/catalog"
	"github.com/mmeshcher/labelprint/internal/expiry"
	"github.com/mmeshcher/labelprint/internal/model"
)

// Mirror хранит всю коллекцию одним JSON-массивом в файле. Каждое изменение
// читает файл целиком, применяет правку и перезаписывает его. Между процессами
// блокировок нет: побеждает последний записавший.
type Mirror struct {
	path string
	calc *expiry.Calculator

	mu      sync.Mutex
	catalog *catalog.Catalog
}

// NewMirror создаёт зеркало поверх файла path. Файл создаётся при первой записи.
func NewMirror(path string, calc *expiry.Calculator) *Mirror {
	if calc == nil {
		calc = expiry.NewCalculator(nil)
	}
	return &Mirror{path: path, calc: calc}
}

// SetCatalog задаёт справочник, по которому Update разрешает смену продукта.
func (m *Mirror) SetCatalog(cat *catalog.Catalog) {
	m.mu.Lock()
	m.catalog = cat
	m.mu.Unlock()
}

func (m *Mirror) read() ([]model.Order, []byte, error) {
	data, err := os.ReadFile(m.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil, nil
		}
		return nil, nil, apperr.Wrap(apperr.KindTransport, "read orders file", err)
	}
	if len(data) == 0 {
		return nil, data, nil
	}

	var orders []model.Order
	if err := json.Unmarshal(data, &orders); err != nil {
		return nil, nil, apperr.Wrap(apperr.KindTransport, "decode orders file", err)
	}
	return orders, data, nil
}

func (m *Mirror) write(orders []model.Order) error {
	if orders == nil {
		orders = []model.Order{}
	}
	data, err := json.Marshal(orders)
	if err != nil {
		return fmt.Errorf("encode orders: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(m.path), 0o755); err != nil {
		return apperr.Wrap(apperr.KindTransport, "create orders dir", err)
	}
	tmp := m.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return apperr.Wrap(apperr.KindTransport, "write orders file", err)
	}
	if err := os.Rename(tmp, m.path); err != nil {
		return apperr.Wrap(apperr.KindTransport, "replace orders file", err)
	}
	return nil
}

func revisionOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// List возвращает все заказы в порядке хранения.
func (m *Mirror) List(ctx context.Context) ([]model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	orders, _, err := m.read()
	return orders, err
}

// Poll возвращает коллекцию, если содержимое файла изменилось с ревизии revision.
func (m *Mirror) Poll(ctx context.Context, revision string) ([]model.Order, string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	orders, data, err := m.read()
	if err != nil {
		return nil, revision, false, err
	}
	rev := revisionOf(data)
	if rev == revision {
		return nil, rev, false, nil
	}
	return orders, rev, true, nil
}

// Create дописывает заказ в конец коллекции. Заказ без идентификатора или
// с уже занятым идентификатором получает следующий за максимальным.
func (m *Mirror) Create(ctx context.Context, o model.Order) (model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	orders, _, err := m.read()
	if err != nil {
		return model.Order{}, err
	}

	var maxID int64
	taken := false
	for _, existing := range orders {
		maxID = max(maxID, existing.ID)
		if o.ID != 0 && existing.ID == o.ID {
			taken = true
		}
	}
	if o.ID == 0 || taken {
		o.ID = maxID + 1
	}

	if err := m.write(append(orders, o)); err != nil {
		return model.Order{}, err
	}
	return o, nil
}

// Update применяет патч к заказу id и пересчитывает производные поля.
func (m *Mirror) Update(ctx context.Context, id int64, patch model.OrderPatch) (model.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	orders, _, err := m.read()
	if err != nil {
		return model.Order{}, err
	}

	for i := range orders {
		if orders[i].ID != id {
			continue
		}
		updated, err := ApplyPatch(orders[i], patch, m.catalog, m.calc)
		if err != nil {
			return model.Order{}, err
		}
		orders[i] = updated
		if err := m.write(orders); err != nil {
			return model.Order{}, err
		}
		return updated, nil
	}
	return model.Order{}, ErrOrderNotFound
}

// Delete удаляет ровно один заказ с идентификатором id.
func (m *Mirror) Delete(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	orders, _, err := m.read()
	if err != nil {
		return err
	}

	for i := range orders {
		if orders[i].ID == id {
			orders = append(orders[:i], orders[i+1:]...)
			return m.write(orders)
		}
	}
	return ErrOrderNotFound
}

// Clear удаляет все заказы.
func (m *Mirror) Clear(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.write(nil)
}
