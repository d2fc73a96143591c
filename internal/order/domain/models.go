package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending   Status = "pending"
	StatusPreparing Status = "preparing"
	StatusCanceled  Status = "canceled"
	StatusCompleted Status = "completed"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusPreparing, StatusCanceled, StatusCompleted:
		return true
	}
	return false
}

// Order.TotalAmount always equals the sum of its items' subtotals.
type Order struct {
	ID          snowflake.ID    `gorm:"primaryKey" json:"id"`
	CustomerID  snowflake.ID    `gorm:"not null;index" json:"customer_id"`
	SalesUserID snowflake.ID    `gorm:"not null;index" json:"sales_user_id"`
	Status      Status          `gorm:"type:varchar(16);not null;index" json:"status"`
	TotalAmount decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"total_amount"`
	Notes       string          `json:"notes,omitempty"`
	CreatedAt   time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type OrderItem struct {
	ID                snowflake.ID    `gorm:"primaryKey" json:"id"`
	OrderID           snowflake.ID    `gorm:"not null;index" json:"order_id"`
	RulerID           snowflake.ID    `gorm:"not null" json:"ruler_id"`
	BatchID           snowflake.ID    `gorm:"not null" json:"batch_id"`
	TypeItemID        snowflake.ID    `gorm:"column:type_item" json:"type_item"`
	ConstantWidth     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"constant_width"`
	Length            decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"length"`
	ConstantThickness decimal.Decimal `gorm:"type:numeric(14,2)" json:"constant_thickness"`
	Quantity          int64           `gorm:"not null" json:"quantity"`
	UnitPrice         decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"unit_price"`
	DiscountID        *snowflake.ID   `json:"discount_id,omitempty"`
	DiscountAmount    decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"discount_amount"`
	Subtotal          decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"subtotal"`
	Notes             string          `json:"notes,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// OrderView is an order enriched with its customer and the denormalized
// catalog labels of each item.
type OrderView struct {
	Order
	Customer *CustomerSummary `json:"customer,omitempty"`
	Items    []ItemView       `json:"items"`
}

type CustomerSummary struct {
	ID      snowflake.ID    `json:"id"`
	Name    string          `json:"name"`
	Phone   string          `json:"phone,omitempty"`
	Balance decimal.Decimal `json:"balance"`
}

type ItemView struct {
	OrderItem
	RulerType    string `json:"ruler_type,omitempty"`
	MaterialName string `json:"material_name,omitempty"`
	ColorName    string `json:"color_name,omitempty"`
	ColorCode    string `json:"color_code,omitempty"`
	BatchNumber  string `json:"batch_number,omitempty"`
	TypeItem     string `json:"type_item_label,omitempty"`
}
