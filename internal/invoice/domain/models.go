// Package domain holds the invoice ledger model. Every invoice mirrors its
// remaining amount into the customer's balance.
package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Invoice struct {
	ID              snowflake.ID    `gorm:"primaryKey" json:"id"`
	InvoiceNumber   string          `gorm:"type:varchar(40);not null;uniqueIndex" json:"invoice_number"`
	OrderID         snowflake.ID    `gorm:"not null;uniqueIndex" json:"order_id"`
	CustomerID      snowflake.ID    `gorm:"not null;index" json:"customer_id"`
	IssuedBy        snowflake.ID    `gorm:"index" json:"issued_by"`
	TotalAmount     decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"total_amount"`
	PaidAmount      decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"paid_amount"`
	RemainingAmount decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"remaining_amount"`
	Notes           string          `json:"notes,omitempty"`
	IssuedAt        time.Time       `gorm:"index" json:"issued_at"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

func (Invoice) TableName() string { return "invoices" }
