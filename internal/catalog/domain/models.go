package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
)

type Material struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"not null" json:"name"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

type Color struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Code      string       `gorm:"not null;uniqueIndex" json:"code"`
	Name      string       `gorm:"not null" json:"name"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// Ruler is a product variant: one material in one color.
type Ruler struct {
	ID         snowflake.ID `gorm:"primaryKey" json:"id"`
	MaterialID snowflake.ID `gorm:"not null;index" json:"material_id"`
	ColorID    snowflake.ID `gorm:"not null;index" json:"color_id"`
	Type       string       `gorm:"column:ruler_type" json:"ruler_type"`
	Material   *Material    `gorm:"foreignKey:MaterialID" json:"material,omitempty"`
	Color      *Color       `gorm:"foreignKey:ColorID" json:"color,omitempty"`
	CreatedAt  time.Time    `json:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at"`
}

// Batch is a tracked lot of raw material.
type Batch struct {
	ID          snowflake.ID `gorm:"primaryKey" json:"id"`
	BatchNumber string       `gorm:"not null;uniqueIndex" json:"batch_number"`
	MaterialID  snowflake.ID `gorm:"index" json:"material_id"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}

type ConstantType struct {
	ID        snowflake.ID `gorm:"primaryKey" json:"id"`
	Name      string       `gorm:"not null;uniqueIndex" json:"name"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

// ConstantValue is one entry of a lookup table, e.g. a unit classification
// used as an item's type_item.
type ConstantValue struct {
	ID             snowflake.ID `gorm:"primaryKey" json:"id"`
	ConstantTypeID snowflake.ID `gorm:"not null;index" json:"constant_type_id"`
	Value          string       `gorm:"not null" json:"value"`
	CreatedAt      time.Time    `json:"created_at"`
	UpdatedAt      time.Time    `json:"updated_at"`
}

// PriceColor is the per-meter price of a color for one width tier.
type PriceColor struct {
	ID            snowflake.ID    `gorm:"primaryKey" json:"id"`
	ColorID       snowflake.ID    `gorm:"not null;uniqueIndex:ux_price_colors_color_tier" json:"color_id"`
	PriceColorBy  string          `gorm:"column:price_color_by;not null;uniqueIndex:ux_price_colors_color_tier" json:"price_color_by"`
	PricePerMeter decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"price_per_meter"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}
