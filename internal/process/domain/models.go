package domain

import (
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	productiondomain "github.com/smallbiznis/millrun/internal/production/domain"
)

// Process records one cutting or gluing run against a production item.
type Process struct {
	ID                    snowflake.ID    `gorm:"primaryKey" json:"id"`
	ProductionOrderItemID snowflake.ID    `gorm:"not null;index" json:"production_order_item_id"`
	UserID                snowflake.ID    `gorm:"not null;index" json:"user_id"`
	InputLength           decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"input_length"`
	OutputLength          decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"output_length"`
	InputWidth            decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"input_width"`
	Waste                 decimal.Decimal `gorm:"type:numeric(14,2);not null;default:0" json:"waste"`
	Barcode               string          `gorm:"type:varchar(64);not null;uniqueIndex" json:"barcode"`
	Notes                 string          `json:"notes,omitempty"`
	CreatedAt             time.Time       `gorm:"index" json:"created_at"`
	UpdatedAt             time.Time       `json:"updated_at"`
}

func (Process) TableName() string {
	return "production_processes"
}

// Slite records a slitting run. The two tier outputs are the lengths cut at
// width 22 and width 44.
type Slite struct {
	ID                    snowflake.ID              `gorm:"primaryKey" json:"id"`
	ProductionOrderItemID snowflake.ID              `gorm:"not null;index" json:"production_order_item_id"`
	UserID                snowflake.ID              `gorm:"not null;index" json:"user_id"`
	InputLength           decimal.Decimal           `gorm:"type:numeric(14,2);not null;default:0" json:"input_length"`
	OutputLength          decimal.Decimal           `gorm:"type:numeric(14,2);not null;default:0" json:"output_length"`
	InputWidth            decimal.Decimal           `gorm:"type:numeric(14,2);not null;default:0" json:"input_width"`
	OutputLength22        decimal.Decimal           `gorm:"column:output_length_22;type:numeric(14,2);not null;default:0" json:"output_length_22"`
	OutputLength44        decimal.Decimal           `gorm:"column:output_length_44;type:numeric(14,2);not null;default:0" json:"output_length_44"`
	Waste                 decimal.Decimal           `gorm:"type:numeric(14,2);not null;default:0" json:"waste"`
	Barcode               string                    `gorm:"type:varchar(64);not null;uniqueIndex" json:"barcode"`
	Destination           productiondomain.Location `gorm:"type:varchar(16)" json:"destination,omitempty"`
	Notes                 string                    `json:"notes,omitempty"`
	CreatedAt             time.Time                 `gorm:"index" json:"created_at"`
	UpdatedAt             time.Time                 `json:"updated_at"`
}

func (Slite) TableName() string {
	return "slites"
}

// ValidSliteDestination reports whether slit output may be sent to loc.
func ValidSliteDestination(loc productiondomain.Location) bool {
	switch loc {
	case productiondomain.LocationSlitting, productiondomain.LocationCutting, productiondomain.LocationProduction:
		return true
	}
	return false
}
