// Package expiry вычисляет дату окончания срока годности по дате производства
// и текстовому описанию срока («6 months», «30 days», «2 ปี»).
package expiry

import (
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mmeshcher/labelprint/internal/model"
)

// Unit обозначает единицу измерения срока годности.
type Unit string

const (
	UnitDays   Unit = "days"
	UnitMonths Unit = "months"
	UnitYears  Unit = "years"
)

// ShelfLife содержит разобранный срок годности.
type ShelfLife struct {
	Count int
	Unit  Unit
	// Defaulted выставляется, когда единица не распознана и выбраны месяцы.
	Defaulted bool
}

// Add прибавляет срок к дате по календарным правилам time.AddDate.
func (s ShelfLife) Add(t time.Time) time.Time {
	switch s.Unit {
	case UnitDays:
		return t.AddDate(0, 0, s.Count)
	case UnitYears:
		return t.AddDate(s.Count, 0, 0)
	default:
		return t.AddDate(0, s.Count, 0)
	}
}

var unitMarkers = []struct {
	unit    Unit
	markers []string
}{
	{UnitDays, []string{"day", "วัน"}},
	{UnitMonths, []string{"month", "mon", "เดือน"}},
	{UnitYears, []string{"year", "yr", "ปี"}},
}

// Parse разбирает описание срока годности. Второе значение false, если
// число не найдено или оно не положительное.
func Parse(shelfLife string) (ShelfLife, bool) {
	s := strings.TrimSpace(shelfLife)
	if s == "" {
		return ShelfLife{}, false
	}

	value, unitToken, hasUnit := strings.Cut(s, " ")

	count, ok := leadingInt(value)
	if !ok || count <= 0 {
		return ShelfLife{}, false
	}

	if !hasUnit {
		return ShelfLife{Count: count, Unit: UnitMonths}, true
	}

	unit, known := classify(unitToken)
	return ShelfLife{Count: count, Unit: unit, Defaulted: !known}, true
}

func classify(token string) (Unit, bool) {
	lower := strings.ToLower(strings.TrimSpace(token))
	for _, um := range unitMarkers {
		for _, m := range um.markers {
			if strings.Contains(lower, m) {
				return um.unit, true
			}
		}
	}
	return UnitMonths, false
}

// leadingInt читает целое в начале строки: необязательный знак и цифры,
// остаток строки игнорируется.
func leadingInt(s string) (int, bool) {
	i, sign := 0, 1
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		if s[i] == '-' {
			sign = -1
		}
		i++
	}

	n, digits := 0, 0
	for ; i < len(s) && s[i] >= '0' && s[i] <= '9'; i++ {
		if n > (math.MaxInt32-9)/10 {
			return 0, false
		}
		n = n*10 + int(s[i]-'0')
		digits++
	}
	if digits == 0 {
		return 0, false
	}
	return sign * n, true
}

// Calculator вычисляет даты окончания срока годности.
type Calculator struct {
	logger *zap.Logger
}

// NewCalculator создаёт калькулятор; nil-логгер заменяется пустым.
func NewCalculator(logger *zap.Logger) *Calculator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Calculator{logger: logger}
}

// Compute возвращает дату окончания срока годности без времени суток.
// Второе значение false, если дата нулевая или срок не разобран.
func (c *Calculator) Compute(manufactured time.Time, shelfLife string) (time.Time, bool) {
	if manufactured.IsZero() {
		return time.Time{}, false
	}

	sl, ok := Parse(shelfLife)
	if !ok {
		return time.Time{}, false
	}
	if sl.Defaulted {
		c.logger.Warn("unknown shelf life unit, falling back to months", zap.String("shelfLife", shelfLife))
	}

	return DateOnly(sl.Add(DateOnly(manufactured))), true
}

// ComputeDate работает со строковыми датами в формате model.DateLayout.
// Пустая строка означает, что срок годности неизвестен.
func (c *Calculator) ComputeDate(manufactured, shelfLife string) string {
	if manufactured == "" || shelfLife == "" {
		return ""
	}

	d, err := time.ParseInLocation(model.DateLayout, strings.TrimSpace(manufactured), time.Local)
	if err != nil {
		return ""
	}

	exp, ok := c.Compute(d, shelfLife)
	if !ok {
		return ""
	}
	return exp.Format(model.DateLayout)
}

// DateOnly отбрасывает время суток, сохраняя часовой пояс.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
