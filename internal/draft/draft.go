// Package draft реализует состояние формы ввода заказа: пересчёт производных
// полей при изменении продукта или даты производства, проверку и отправку.
package draft

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mmeshcher/labelprint/internal/catalog"
	"github.com/mmeshcher/labelprint/internal/expiry"
	"github.com/mmeshcher/labelprint/internal/model"
	"github.com/mmeshcher/labelprint/internal/session"
	"github.com/mmeshcher/labelprint/internal/validation"
)

// State описывает состояние черновика.
type State string

const (
	StateEmpty     State = "empty"
	StateEditing   State = "editing"
	StateValidated State = "validated"
	StateSubmitted State = "submitted"
)

// ErrSubmitted возвращается при попытке редактировать отправленный черновик до Reset.
var ErrSubmitted = errors.New("order draft already submitted")

// Creator принимает готовый заказ на сохранение.
type Creator interface {
	Create(ctx context.Context, o model.Order) (model.Order, error)
}

// IDSource выдаёт строго возрастающие идентификаторы на основе времени создания в миллисекундах.
type IDSource struct {
	mu   sync.Mutex
	last int64
	now  func() time.Time
}

// NewIDSource создаёт генератор идентификаторов.
func NewIDSource(now func() time.Time) *IDSource {
	if now == nil {
		now = time.Now
	}
	return &IDSource{now: now}
}

// Next возвращает очередной идентификатор.
func (s *IDSource) Next() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.now().UnixMilli()
	if id <= s.last {
		id = s.last + 1
	}
	s.last = id
	return id
}

var defaultIDs = NewIDSource(time.Now)

// Option настраивает черновик.
type Option func(*Draft)

// WithClock подменяет источник текущего времени.
func WithClock(now func() time.Time) Option {
	return func(d *Draft) { d.now = now }
}

// WithIDSource подменяет генератор идентификаторов.
func WithIDSource(ids *IDSource) Option {
	return func(d *Draft) { d.ids = ids }
}

// Draft хранит черновик заказа. Не предназначен для конкурентного использования.
type Draft struct {
	calc    *expiry.Calculator
	catalog *catalog.Catalog
	now     func() time.Time
	ids     *IDSource

	state State
	order model.Order
}

// New создаёт пустой черновик со справочником продукции, загруженным на сессию.
func New(calc *expiry.Calculator, cat *catalog.Catalog, opts ...Option) *Draft {
	if calc == nil {
		calc = expiry.NewCalculator(nil)
	}
	d := &Draft{
		calc:    calc,
		catalog: cat,
		now:     time.Now,
		ids:     defaultIDs,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.Reset()
	return d
}

// State возвращает текущее состояние.
func (d *Draft) State() State {
	return d.state
}

// Order возвращает копию текущих полей черновика.
func (d *Draft) Order() model.Order {
	return d.order
}

// Reset очищает форму и заново выставляет дату и время заказа на «сейчас».
func (d *Draft) Reset() {
	now := d.now()
	d.order = model.Order{
		OrderDate:     now.Format(model.DateLayout),
		OrderTime:     now.Format(model.TimeLayout),
		OrderDateTime: &now,
		Quantity:      1,
	}
	d.state = StateEmpty
}

func (d *Draft) edit() error {
	if d.state == StateSubmitted {
		return ErrSubmitted
	}
	d.state = StateEditing
	return nil
}

// SetLotNumber задаёт номер партии.
func (d *Draft) SetLotNumber(lot string) error {
	if err := d.edit(); err != nil {
		return err
	}
	d.order.LotNumber = strings.TrimSpace(lot)
	return nil
}

// SetNotes задаёт примечание.
func (d *Draft) SetNotes(notes string) error {
	if err := d.edit(); err != nil {
		return err
	}
	d.order.Notes = notes
	return nil
}

// SetOrderTime переносит дату и время заказа на указанный момент.
func (d *Draft) SetOrderTime(t time.Time) error {
	if err := d.edit(); err != nil {
		return err
	}
	d.order.OrderDate = t.Format(model.DateLayout)
	d.order.OrderTime = t.Format(model.TimeLayout)
	d.order.OrderDateTime = &t
	return nil
}

// SetProductID выбирает продукт по коду. Найденный продукт переносит в черновик
// название и срок годности и пересчитывает дату окончания срока; ненайденный их очищает.
func (d *Draft) SetProductID(id string) error {
	if err := d.edit(); err != nil {
		return err
	}

	id = strings.TrimSpace(id)
	d.order.ProductID = id

	p, ok := d.catalog.Lookup(id)
	if !ok {
		d.order.ProductName = ""
		d.order.ProductExp = ""
		d.order.ExpiryDate = ""
		return nil
	}

	d.order.ProductName = p.Name
	d.order.ProductExp = p.Exp
	d.order.ExpiryDate = d.calc.ComputeDate(d.order.ProductionDate, p.Exp)
	return nil
}

// SetProductionDate задаёт дату производства и пересчитывает дату окончания срока.
func (d *Draft) SetProductionDate(date string) error {
	if err := d.edit(); err != nil {
		return err
	}
	d.order.ProductionDate = strings.TrimSpace(date)
	d.order.ExpiryDate = d.calc.ComputeDate(d.order.ProductionDate, d.order.ProductExp)
	return nil
}

// SetQuantity разбирает количество как целое; некорректный ввод и значения меньше 1 дают 1.
func (d *Draft) SetQuantity(raw string) error {
	if err := d.edit(); err != nil {
		return err
	}
	d.order.Quantity = ClampQuantity(raw)
	return nil
}

// ClampQuantity приводит ввод количества к целому не меньше 1.
func ClampQuantity(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// Validate проверяет обязательные поля и при успехе переводит черновик в StateValidated.
func (d *Draft) Validate() error {
	if err := validation.ValidateOrder(d.order); err != nil {
		return err
	}
	if d.state != StateSubmitted {
		d.state = StateValidated
	}
	return nil
}

// Submit проверяет черновик, присваивает заказу идентификатор, время создания и
// автора из сессии и передаёт его в хранилище. При ошибке черновик не меняется.
// Повторная отправка создаёт ещё один заказ с новым идентификатором.
func (d *Draft) Submit(ctx context.Context, creator Creator, sess *session.Session) (model.Order, error) {
	if err := d.Validate(); err != nil {
		return model.Order{}, err
	}

	o := d.order
	o.ID = d.ids.Next()
	o.CreatedAt = d.now()
	if name := sess.DisplayName(); name != "" {
		o.CreatedBy = name
	}

	created, err := creator.Create(ctx, o)
	if err != nil {
		return model.Order{}, fmt.Errorf("submit order: %w", err)
	}

	d.state = StateSubmitted
	return created, nil
}
