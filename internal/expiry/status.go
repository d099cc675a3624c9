package expiry

import (
	"math"
	"time"

	"github.com/mmeshcher/labelprint/internal/model"
)

// NearExpiryDays задаёт порог в днях, начиная с которого партия считается близкой к окончанию срока.
const NearExpiryDays = 30

// State описывает состояние срока годности партии.
type State string

const (
	StateUnknown    State = "unknown"
	StateExpired    State = "expired"
	StateNearExpiry State = "near_expiry"
	StateNormal     State = "normal"
)

// Status описывает состояние срока годности на момент now.
type Status struct {
	State State `json:"state"`
	// DaysLeft: дней до окончания срока с округлением вверх. Отрицательное значение означает просрочку.
	DaysLeft int `json:"daysLeft"`
}

// Classify определяет состояние срока годности по дате окончания.
func Classify(expiry, now time.Time) Status {
	if expiry.IsZero() {
		return Status{State: StateUnknown}
	}

	days := int(math.Ceil(expiry.Sub(now).Hours() / 24))

	switch {
	case days < 0:
		return Status{State: StateExpired, DaysLeft: days}
	case days <= NearExpiryDays:
		return Status{State: StateNearExpiry, DaysLeft: days}
	default:
		return Status{State: StateNormal, DaysLeft: days}
	}
}

// ClassifyDate работает как Classify, но для строковой даты. Пустая или битая дата даёт StateUnknown.
func ClassifyDate(expiry string, now time.Time) Status {
	if expiry == "" {
		return Status{State: StateUnknown}
	}
	t, err := time.ParseInLocation(model.DateLayout, expiry, now.Location())
	if err != nil {
		return Status{State: StateUnknown}
	}
	return Classify(t, now)
}
