package service

import (
	"sort"

	"github.com/shopspring/decimal"
	"github.com/smallbiznis/millrun/internal/discount/domain"
)

var hundred = decimal.NewFromInt(100)

// ResolveFrom applies the first rule, in descending threshold order, whose
// condition holds for measure. Only one rule ever applies. The discount
// amount is rounded to cents.
func ResolveFrom(rules []domain.Discount, measure, amount decimal.Decimal) *domain.Applied {
	ordered := make([]domain.Discount, len(rules))
	copy(ordered, rules)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Quantity.GreaterThan(ordered[j].Quantity)
	})

	for _, rule := range ordered {
		if !rule.QuantityCondition.Holds(measure, rule.Quantity) {
			continue
		}

		var discountAmount decimal.Decimal
		switch rule.Type {
		case domain.TypePercentage:
			discountAmount = amount.Mul(rule.Value).Div(hundred)
		case domain.TypeFixed:
			discountAmount = rule.Value
		default:
			continue
		}

		return &domain.Applied{
			DiscountID: rule.ID,
			Type:       rule.Type,
			Value:      rule.Value,
			Amount:     discountAmount.Round(2),
		}
	}
	return nil
}
