// Package dashboard отбирает, группирует и форматирует заказы для панели мониторинга.
package dashboard

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/mmeshcher/labelprint/internal/model"
)

// Unspecified подставляется вместо отсутствующего автора или даты.
const Unspecified = "ไม่ระบุ"

// buddhistEraOffset равен разнице между тайским буддийским и григорианским летоисчислением.
const buddhistEraOffset = 543

// Window задаёт временное окно фильтра.
type Window string

const (
	WindowAll      Window = "all"
	WindowToday    Window = "today"
	WindowThisWeek Window = "this_week"
)

// ParseWindow разбирает значение окна; пустая строка означает WindowAll.
func ParseWindow(s string) (Window, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(WindowAll):
		return WindowAll, nil
	case string(WindowToday):
		return WindowToday, nil
	case string(WindowThisWeek), "thisweek", "week":
		return WindowThisWeek, nil
	default:
		return "", fmt.Errorf("unknown window %q", s)
	}
}

// Match проверяет попадание заказа в окно относительно now (в часовом поясе now).
func (w Window) Match(o model.Order, now time.Time) bool {
	if w == WindowAll || w == "" {
		return true
	}

	d, err := time.ParseInLocation(model.DateLayout, o.OrderDate, now.Location())
	if err != nil {
		return false
	}

	switch w {
	case WindowToday:
		y1, m1, d1 := d.Date()
		y2, m2, d2 := now.Date()
		return y1 == y2 && m1 == m2 && d1 == d2
	case WindowThisWeek:
		return !d.Before(now.AddDate(0, 0, -7))
	default:
		return true
	}
}

// MatchLot ищет подстроку в номере партии без учёта регистра; пустой запрос подходит всем.
func MatchLot(o model.Order, term string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return true
	}
	return strings.Contains(strings.ToLower(o.LotNumber), strings.ToLower(term))
}

// Filter возвращает заказы, удовлетворяющие и окну, и поисковому запросу.
func Filter(orders []model.Order, w Window, term string, now time.Time) []model.Order {
	out := make([]model.Order, 0, len(orders))
	for _, o := range orders {
		if w.Match(o, now) && MatchLot(o, term) {
			out = append(out, o)
		}
	}
	return out
}

// Group содержит число заказов одного автора.
type Group struct {
	CreatedBy string `json:"createdBy"`
	Count     int    `json:"count"`
}

// Summary содержит сводные показатели панели.
type Summary struct {
	Total      int     `json:"total"`
	Today      int     `json:"today"`
	Submitters int     `json:"submitters"`
	Top        *Group  `json:"top,omitempty"`
	Series     []Group `json:"series"`
}

// Aggregate группирует заказы по автору и считает сводку. Группы отсортированы
// по убыванию количества, а при равенстве по имени.
func Aggregate(orders []model.Order, now time.Time) Summary {
	counts := make(map[string]int)
	today := 0
	for _, o := range orders {
		by := strings.TrimSpace(o.CreatedBy)
		if by == "" {
			by = Unspecified
		}
		counts[by]++
		if WindowToday.Match(o, now) {
			today++
		}
	}

	series := make([]Group, 0, len(counts))
	for by, n := range counts {
		series = append(series, Group{CreatedBy: by, Count: n})
	}
	sort.Slice(series, func(i, j int) bool {
		if series[i].Count != series[j].Count {
			return series[i].Count > series[j].Count
		}
		return series[i].CreatedBy < series[j].CreatedBy
	})

	s := Summary{
		Total:      len(orders),
		Today:      today,
		Submitters: len(series),
		Series:     series,
	}
	if len(series) > 0 {
		top := series[0]
		s.Top = &top
	}
	return s
}

// SortNewestFirst упорядочивает заказы по времени создания, затем по идентификатору, от новых к старым.
func SortNewestFirst(orders []model.Order) {
	sort.SliceStable(orders, func(i, j int) bool {
		if !orders[i].CreatedAt.Equal(orders[j].CreatedAt) {
			return orders[i].CreatedAt.After(orders[j].CreatedAt)
		}
		return orders[i].ID > orders[j].ID
	})
}

// DualDate содержит дату в тайском (буддийская эра) и григорианском представлении.
type DualDate struct {
	Thai      string `json:"thai"`
	Gregorian string `json:"gregorian"`
}

// FormatDualDate форматирует дату как d/m/yyyy+543 и dd/mm/yyyy. Пустая или
// нераспознанная дата возвращается как есть в обоих полях.
func FormatDualDate(date string) DualDate {
	if date == "" {
		return DualDate{}
	}
	t, err := time.Parse(model.DateLayout, date)
	if err != nil {
		return DualDate{Thai: date, Gregorian: date}
	}
	return DualDate{
		Thai:      fmt.Sprintf("%d/%d/%d", t.Day(), int(t.Month()), t.Year()+buddhistEraOffset),
		Gregorian: t.Format("02/01/2006"),
	}
}

// FormatOrderDateTime выбирает лучшее доступное представление момента заказа:
// полное время, затем дату с временем, затем только дату. Без данных возвращает Unspecified.
func FormatOrderDateTime(o model.Order, loc *time.Location) string {
	if loc == nil {
		loc = time.Local
	}

	if o.OrderDateTime != nil && !o.OrderDateTime.IsZero() {
		return o.OrderDateTime.In(loc).Format("02/01/2006 15:04")
	}

	if o.OrderDate == "" {
		return Unspecified
	}
	d, err := time.ParseInLocation(model.DateLayout, o.OrderDate, loc)
	if err != nil {
		return Unspecified
	}

	if o.OrderTime != "" {
		if tod, err := time.Parse(model.TimeLayout, o.OrderTime); err == nil {
			return time.Date(d.Year(), d.Month(), d.Day(), tod.Hour(), tod.Minute(), 0, 0, loc).Format("02/01/2006 15:04")
		}
	}
	return d.Format("02/01/2006")
}
