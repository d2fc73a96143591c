package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Type string

const (
	TypePercentage Type = "percentage"
	TypeFixed      Type = "fixed"
)

func (t Type) Valid() bool {
	return t == TypePercentage || t == TypeFixed
}

type Condition string

const (
	ConditionLessThan           Condition = "LESS_THAN"
	ConditionGreaterThan        Condition = "GREATER_THAN"
	ConditionLessThanOrEqual    Condition = "LESS_THAN_OR_EQUAL"
	ConditionGreaterThanOrEqual Condition = "GREATER_THAN_OR_EQUAL"
	ConditionEqual              Condition = "EQUAL"
)

func (c Condition) Valid() bool {
	switch c {
	case ConditionLessThan, ConditionGreaterThan, ConditionLessThanOrEqual,
		ConditionGreaterThanOrEqual, ConditionEqual:
		return true
	}
	return false
}

// Holds evaluates the condition with measure on the left and the rule
// threshold on the right.
func (c Condition) Holds(measure, threshold decimal.Decimal) bool {
	switch c {
	case ConditionLessThan:
		return measure.LessThan(threshold)
	case ConditionGreaterThan:
		return measure.GreaterThan(threshold)
	case ConditionLessThanOrEqual:
		return measure.LessThanOrEqual(threshold)
	case ConditionGreaterThanOrEqual:
		return measure.GreaterThanOrEqual(threshold)
	case ConditionEqual:
		return measure.Equal(threshold)
	}
	return false
}

// Discount is a tier rule evaluated against a line's quantity measure
// (length × quantity).
type Discount struct {
	ID                snowflake.ID    `gorm:"primaryKey" json:"id"`
	Name              string          `gorm:"not null" json:"name"`
	Description       string          `json:"description,omitempty"`
	Type              Type            `gorm:"type:varchar(16);not null" json:"type"`
	QuantityCondition Condition       `gorm:"column:quantity_condition;type:varchar(32);not null" json:"quantityCondition"`
	Quantity          decimal.Decimal `gorm:"type:numeric(14,2);not null;index" json:"quantity"`
	Value             decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"value"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Applied is the outcome of resolving a rule for one line.
type Applied struct {
	DiscountID snowflake.ID    `json:"discount_id"`
	Type       Type            `json:"discount_type"`
	Value      decimal.Decimal `json:"discount_value"`
	Amount     decimal.Decimal `json:"discount_amount"`
}
