// Package pricing computes order line prices: the unit price by ruler color
// and width tier, the pre-discount subtotal and the resolved tier discount.
package pricing

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	catalogdomain "github.com/smallbiznis/millrun/internal/catalog/domain"
	discountdomain "github.com/smallbiznis/millrun/internal/discount/domain"
	"github.com/smallbiznis/millrun/internal/errs"
	"go.uber.org/fx"
	"gorm.io/gorm"
)

//go:generate mockgen -source=engine.go -destination=mock_pricing/mock_pricing.go -package=mock_pricing

const (
	TierByMeter22 = "isByMeter22"
	TierByMeter44 = "isByMeter44"
	TierByMeter66 = "isByMeter66"
	TierByBlank   = "isByBlanck"
)

var (
	width22 = decimal.NewFromInt(22)
	width44 = decimal.NewFromInt(44)
	width66 = decimal.NewFromInt(66)
)

// WidthTierKey maps a line width to the price tier it is billed under.
func WidthTierKey(width decimal.Decimal) string {
	switch {
	case width.Equal(width22):
		return TierByMeter22
	case width.Equal(width44):
		return TierByMeter44
	case width.Equal(width66):
		return TierByMeter66
	default:
		return TierByBlank
	}
}

// PriceLookup finds the price row of a ruler's color for a tier. It returns
// (nil, nil) when no row exists.
type PriceLookup interface {
	FindPriceForRuler(ctx context.Context, db *gorm.DB, rulerID snowflake.ID, tier string) (*catalogdomain.PriceColor, error)
}

// DiscountResolver picks the tier discount for a line.
type DiscountResolver interface {
	Resolve(ctx context.Context, db *gorm.DB, measure, amount decimal.Decimal) (*discountdomain.Applied, error)
}

// LineInput describes one priced line. A zero UnitPrice asks the engine to
// resolve it from the price table.
type LineInput struct {
	RulerID   snowflake.ID
	Width     decimal.Decimal
	Length    decimal.Decimal
	Quantity  int64
	UnitPrice decimal.Decimal
}

type LineQuote struct {
	Tier                   string
	UnitPrice              decimal.Decimal
	SubtotalBeforeDiscount decimal.Decimal
	QuantityMeasure        decimal.Decimal
	DiscountAmount         decimal.Decimal
	Subtotal               decimal.Decimal
	Discount               *discountdomain.Applied
}

type Params struct {
	fx.In

	Prices    PriceLookup
	Discounts DiscountResolver
}

type Engine struct {
	prices    PriceLookup
	discounts DiscountResolver
}

func New(p Params) *Engine {
	return NewEngine(p.Prices, p.Discounts)
}

func NewEngine(prices PriceLookup, discounts DiscountResolver) *Engine {
	return &Engine{prices: prices, discounts: discounts}
}

// ResolveUnitPrice returns the per-meter price of the ruler's color for the
// tier derived from width.
func (e *Engine) ResolveUnitPrice(ctx context.Context, db *gorm.DB, rulerID snowflake.ID, width decimal.Decimal) (decimal.Decimal, error) {
	tier := WidthTierKey(width)
	price, err := e.prices.FindPriceForRuler(ctx, db, rulerID, tier)
	if err != nil {
		return decimal.Zero, err
	}
	if price == nil {
		return decimal.Zero, errs.NotFound("price not found for ruler %s with tier %s", rulerID, tier)
	}
	return price.PricePerMeter, nil
}

// PriceLine resolves the unit price when needed and applies the discount.
func (e *Engine) PriceLine(ctx context.Context, db *gorm.DB, in LineInput) (LineQuote, error) {
	unitPrice := in.UnitPrice
	if unitPrice.IsZero() {
		resolved, err := e.ResolveUnitPrice(ctx, db, in.RulerID, in.Width)
		if err != nil {
			return LineQuote{}, err
		}
		unitPrice = resolved
	}

	quote, err := e.Quote(ctx, db, unitPrice, in.Length, in.Quantity)
	if err != nil {
		return LineQuote{}, err
	}
	quote.Tier = WidthTierKey(in.Width)
	return quote, nil
}

// Quote computes the subtotal of a line whose unit price is already known.
func (e *Engine) Quote(ctx context.Context, db *gorm.DB, unitPrice, length decimal.Decimal, quantity int64) (LineQuote, error) {
	qty := decimal.NewFromInt(quantity)
	measure := length.Mul(qty)
	before := unitPrice.Mul(measure)

	applied, err := e.discounts.Resolve(ctx, db, measure, before)
	if err != nil {
		return LineQuote{}, err
	}

	discountAmount := decimal.Zero
	if applied != nil {
		discountAmount = applied.Amount
	}

	return LineQuote{
		UnitPrice:              unitPrice.Round(2),
		SubtotalBeforeDiscount: before.Round(2),
		QuantityMeasure:        measure,
		DiscountAmount:         discountAmount.Round(2),
		Subtotal:               before.Sub(discountAmount).Round(2),
		Discount:               applied,
	}, nil
}
