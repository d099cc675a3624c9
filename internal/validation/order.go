// Package validation содержит функции валидации входных данных.
package validation

import (
	"strings"
	"time"

	"github.com/mmeshcher/labelprint/internal/apperr"
	"github.com/mmeshcher/labelprint/internal/model"
)

// ValidateOrder проверяет обязательные поля заказа. Все незаполненные поля
// перечисляются в одной ошибке, а не только первое.
func ValidateOrder(o model.Order) error {
	var missing []string
	if strings.TrimSpace(o.LotNumber) == "" {
		missing = append(missing, "lotNumber")
	}
	if strings.TrimSpace(o.ProductID) == "" {
		missing = append(missing, "productId")
	}
	if strings.TrimSpace(o.ProductionDate) == "" {
		missing = append(missing, "productionDate")
	}
	if o.Quantity == 0 {
		missing = append(missing, "quantity")
	}
	if len(missing) > 0 {
		return apperr.Missing(missing...)
	}

	if !IsDate(o.ProductionDate) {
		return apperr.Validation("productionDate must be a YYYY-MM-DD date")
	}
	if o.OrderDate != "" && !IsDate(o.OrderDate) {
		return apperr.Validation("orderDate must be a YYYY-MM-DD date")
	}
	if o.Quantity < 0 {
		return apperr.Validation("quantity must be positive")
	}

	return nil
}

// IsDate проверяет, что строка содержит дату в формате model.DateLayout.
func IsDate(s string) bool {
	_, err := time.Parse(model.DateLayout, s)
	return err == nil
}

// ConfirmPassword проверяет совпадение пароля и его подтверждения.
func ConfirmPassword(password, confirm string) error {
	if password != confirm {
		return apperr.Validation("password confirmation does not match")
	}
	return nil
}

// ValidateProductCode проверяет позицию справочника перед сохранением.
func ValidateProductCode(p model.ProductCode) error {
	var missing []string
	if strings.TrimSpace(p.ID) == "" {
		missing = append(missing, "id")
	}
	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, "name")
	}
	if len(missing) > 0 {
		return apperr.Missing(missing...)
	}
	return nil
}
