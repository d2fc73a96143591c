package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/millrun/internal/auth"
	productiondomain "github.com/smallbiznis/millrun/internal/production/domain"
	"github.com/smallbiznis/millrun/pkg/db/pagination"
)

type CreateProcessRequest struct {
	ItemID       snowflake.ID
	InputLength  decimal.Decimal
	OutputLength decimal.Decimal
	InputWidth   decimal.Decimal
	Waste        decimal.Decimal
	Barcode      string
	Notes        string
}

type UpdateProcessRequest struct {
	InputLength  *decimal.Decimal
	OutputLength *decimal.Decimal
	InputWidth   *decimal.Decimal
	Waste        *decimal.Decimal
	Barcode      *string
	Notes        *string
}

type CreateSliteRequest struct {
	ItemID         snowflake.ID
	InputLength    decimal.Decimal
	OutputLength   decimal.Decimal
	InputWidth     decimal.Decimal
	OutputLength22 decimal.Decimal
	OutputLength44 decimal.Decimal
	Waste          decimal.Decimal
	Barcode        string
	Destination    productiondomain.Location
	Notes          string
}

type UpdateSliteRequest struct {
	InputLength    *decimal.Decimal
	OutputLength   *decimal.Decimal
	InputWidth     *decimal.Decimal
	OutputLength22 *decimal.Decimal
	OutputLength44 *decimal.Decimal
	Waste          *decimal.Decimal
	Barcode        *string
	Destination    *productiondomain.Location
	Notes          *string
}

type ListProcessResponse struct {
	Processes []Process           `json:"processes"`
	PageInfo  pagination.PageInfo `json:"page_info"`
}

type ListSliteResponse struct {
	Slites   []Slite             `json:"slites"`
	PageInfo pagination.PageInfo `json:"page_info"`
}

type Service interface {
	CreateProcess(ctx context.Context, actor auth.Actor, req CreateProcessRequest) (Process, error)
	GetProcess(ctx context.Context, actor auth.Actor, id snowflake.ID) (Process, error)
	ListProcesses(ctx context.Context, actor auth.Actor, filter ListFilter) (ListProcessResponse, error)
	UpdateProcess(ctx context.Context, actor auth.Actor, id snowflake.ID, req UpdateProcessRequest) (Process, error)
	DeleteProcess(ctx context.Context, actor auth.Actor, id snowflake.ID) error

	CreateSlite(ctx context.Context, actor auth.Actor, req CreateSliteRequest) (Slite, error)
	GetSlite(ctx context.Context, actor auth.Actor, id snowflake.ID) (Slite, error)
	ListSlites(ctx context.Context, actor auth.Actor, filter ListFilter) (ListSliteResponse, error)
	UpdateSlite(ctx context.Context, actor auth.Actor, id snowflake.ID, req UpdateSliteRequest) (Slite, error)
	DeleteSlite(ctx context.Context, actor auth.Actor, id snowflake.ID) error
}

var (
	ErrProcessNotFound    = errors.New("process_not_found")
	ErrSliteNotFound      = errors.New("slite_not_found")
	ErrItemNotPending     = errors.New("item_not_pending")
	ErrWrongItemType      = errors.New("item_type_not_recordable")
	ErrDuplicateBarcode   = errors.New("duplicate_barcode")
	ErrBarcodeRequired    = errors.New("barcode_required")
	ErrInvalidDestination = errors.New("invalid_destination")
	ErrNegativeMeasure    = errors.New("negative_measure")
)
