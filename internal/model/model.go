// Package model содержит доменные сущности сервиса печати этикеток.
package model

import "time"

// Форматы дат и времени, в которых поля заказа передаются по сети и хранятся в зеркале.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Role описывает роль пользователя консоли.
type Role string

const (
	// RoleAdmin управляет продукцией, пользователями и заказами.
	RoleAdmin Role = "admin"
	// RoleUser обозначает обычного оператора.
	RoleUser Role = "user"
)

// IsElevated сообщает, обладает ли роль правами администратора.
func (r Role) IsElevated() bool {
	return r == RoleAdmin
}

// User представляет учётную запись оператора или администратора.
type User struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	Role         Role      `json:"role"`
	PasswordHash []byte    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ProductCode представляет позицию справочника продукции (fgcode) со сроком годности в свободной форме.
type ProductCode struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Exp  string `json:"exp"`
}

// Order описывает заказ на печать этикеток для партии продукции.
type Order struct {
	ID            int64      `json:"id"`
	OrderDate     string     `json:"orderDate"`
	OrderTime     string     `json:"orderTime,omitempty"`
	OrderDateTime *time.Time `json:"orderDateTime,omitempty"`

	LotNumber      string `json:"lotNumber"`
	ProductID      string `json:"productId"`
	ProductName    string `json:"productName"`
	ProductExp     string `json:"productExp"`
	ProductionDate string `json:"productionDate"`
	ExpiryDate     string `json:"expiryDate"`
	Quantity       int    `json:"quantity"`

	Notes     string    `json:"notes,omitempty"`
	CreatedBy string    `json:"createdBy,omitempty"`
	CreatedAt time.Time `json:"createdAt"`

	// Поля проверки зарезервированы: хранятся и отдаются, но ни один сценарий их не заполняет.
	VerifiedBy string     `json:"verifiedBy,omitempty"`
	VerifiedAt *time.Time `json:"verifiedAt,omitempty"`
	IsVerified bool       `json:"isVerified,omitempty"`
}

// OrderPatch содержит изменяемые поля заказа; nil означает «не менять».
type OrderPatch struct {
	LotNumber      *string `json:"lotNumber,omitempty"`
	ProductID      *string `json:"productId,omitempty"`
	ProductionDate *string `json:"productionDate,omitempty"`
	Quantity       *int    `json:"quantity,omitempty"`
	Notes          *string `json:"notes,omitempty"`
}

// IsEmpty сообщает, что патч ничего не меняет.
func (p OrderPatch) IsEmpty() bool {
	return p.LotNumber == nil && p.ProductID == nil && p.ProductionDate == nil &&
		p.Quantity == nil && p.Notes == nil
}

// Profile содержит данные о текущем пользователе, которые отдаёт admin-info.
type Profile struct {
	Name  string `json:"name"`
	Role  Role   `json:"role"`
	Email string `json:"email"`
}
