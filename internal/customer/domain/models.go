package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

// Customer.Balance is the sum of the remaining amounts of the customer's
// invoices. It is only ever changed by relative increments.
type Customer struct {
	ID        snowflake.ID    `gorm:"primaryKey" json:"id"`
	Name      string          `gorm:"not null" json:"name"`
	Phone     string          `json:"phone,omitempty"`
	Address   string          `json:"address,omitempty"`
	Balance   decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"balance"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// BalanceStatement compares the stored balance with the sum of open invoice
// remainders.
type BalanceStatement struct {
	CustomerID  snowflake.ID    `json:"customer_id"`
	Name        string          `json:"name"`
	Balance     decimal.Decimal `json:"balance"`
	Outstanding decimal.Decimal `json:"outstanding"`
	Reconciled  bool            `json:"reconciled"`
}
