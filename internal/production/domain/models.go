package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"gorm.io/datatypes"
)

// ProductionType is a manufacturing stage.
type ProductionType string

const (
	TypeWarehouse ProductionType = "warehouse"
	TypeSlitting  ProductionType = "slitting"
	TypeCutting   ProductionType = "cutting"
	TypeGluing    ProductionType = "gluing"
)

func (t ProductionType) Valid() bool {
	switch t {
	case TypeWarehouse, TypeSlitting, TypeCutting, TypeGluing:
		return true
	}
	return false
}

// Location is where material comes from or goes to between stages.
type Location string

const (
	LocationWarehouse  Location = "warehouse"
	LocationSlitting   Location = "slitting"
	LocationCutting    Location = "cutting"
	LocationGluing     Location = "gluing"
	LocationProduction Location = "production"
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

type ProductionOrder struct {
	ID                snowflake.ID    `gorm:"primaryKey" json:"id"`
	UserID            snowflake.ID    `gorm:"not null;index" json:"user_id"`
	RulerID           snowflake.ID    `gorm:"not null" json:"ruler_id"`
	BatchID           snowflake.ID    `gorm:"not null" json:"batch_id"`
	TypeItemID        snowflake.ID    `gorm:"column:type_item" json:"type_item"`
	ConstantWidth     decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"constant_width"`
	Length            decimal.Decimal `gorm:"type:numeric(14,2);not null" json:"length"`
	ConstantThickness decimal.Decimal `gorm:"type:numeric(14,2)" json:"constant_thickness"`
	Status            Status          `gorm:"type:varchar(16);not null;index" json:"status"`
	Notes             string          `json:"notes,omitempty"`
	CreatedAt         time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// Item is one stage of a production order's route. Route keeps the full
// stage list the item was expanded from.
type Item struct {
	ID                snowflake.ID                        `gorm:"primaryKey" json:"id"`
	ProductionOrderID snowflake.ID                        `gorm:"not null;index" json:"production_order_id"`
	Type              ProductionType                      `gorm:"type:varchar(16);not null;index" json:"type"`
	Source            Location                            `gorm:"type:varchar(16);not null" json:"source"`
	Destination       Location                            `gorm:"type:varchar(16);not null" json:"destination"`
	Status            Status                              `gorm:"type:varchar(16);not null" json:"status"`
	ConstantWidth     decimal.Decimal                     `gorm:"type:numeric(14,2)" json:"constant_width"`
	Length            decimal.Decimal                     `gorm:"type:numeric(14,2)" json:"length"`
	Quantity          int64                               `gorm:"not null" json:"quantity"`
	Notes             string                              `json:"notes,omitempty"`
	Route             datatypes.JSONSlice[ProductionType] `json:"route"`
	CreatedAt         time.Time                           `json:"created_at"`
	UpdatedAt         time.Time                           `json:"updated_at"`
}

func (Item) TableName() string {
	return "production_order_items"
}

type OrderView struct {
	ProductionOrder
	RulerType    string `json:"ruler_type,omitempty"`
	MaterialName string `json:"material_name,omitempty"`
	ColorName    string `json:"color_name,omitempty"`
	BatchNumber  string `json:"batch_number,omitempty"`
	TypeItem     string `json:"type_item_label,omitempty"`
	Items        []Item `json:"items"`
}
