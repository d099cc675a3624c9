// Package catalog хранит неизменяемый снимок справочника продукции с индексом по коду.
package catalog

import (
	"sort"
	"strings"

	"github.com/mmeshcher/labelprint/internal/model"
)

// Catalog хранит снимок справочника fgcode. Безопасен для конкурентного чтения.
type Catalog struct {
	byID  map[string]model.ProductCode
	items []model.ProductCode
}

// New строит снимок; записи с пустым кодом отбрасываются, при повторе кода побеждает последняя.
func New(codes []model.ProductCode) *Catalog {
	byID := make(map[string]model.ProductCode, len(codes))
	for _, c := range codes {
		id := strings.TrimSpace(c.ID)
		if id == "" {
			continue
		}
		c.ID = id
		byID[id] = c
	}

	items := make([]model.ProductCode, 0, len(byID))
	for _, c := range byID {
		items = append(items, c)
	}
	sort.Slice(items, func(i, j int) bool { return items[i].ID < items[j].ID })

	return &Catalog{byID: byID, items: items}
}

// Lookup ищет продукт по точному совпадению кода.
func (c *Catalog) Lookup(id string) (model.ProductCode, bool) {
	if c == nil {
		return model.ProductCode{}, false
	}
	p, ok := c.byID[id]
	return p, ok
}

// Len возвращает количество позиций.
func (c *Catalog) Len() int {
	if c == nil {
		return 0
	}
	return len(c.items)
}

// Items возвращает копию позиций, отсортированную по коду.
func (c *Catalog) Items() []model.ProductCode {
	if c == nil {
		return nil
	}
	out := make([]model.ProductCode, len(c.items))
	copy(out, c.items)
	return out
}
