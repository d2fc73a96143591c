package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/millrun/internal/errs"
	"github.com/smallbiznis/millrun/internal/order/domain"
	"github.com/smallbiznis/millrun/internal/pricing"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

func (s *Service) AddItem(ctx context.Context, orderID snowflake.ID, in domain.ItemInput) (domain.OrderView, error) {
	if _, err := s.findMutableOrder(ctx, s.db, orderID); err != nil {
		return domain.OrderView{}, err
	}

	item, err := s.buildItem(ctx, s.db, orderID, in)
	if err != nil {
		return domain.OrderView{}, err
	}

	var total decimal.Decimal
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.InsertItems(ctx, tx, []domain.OrderItem{item}); err != nil {
			return err
		}
		recomputed, err := s.recomputeTotal(ctx, tx, orderID)
		total = recomputed
		return err
	})
	if err != nil {
		return domain.OrderView{}, err
	}

	s.metrics.RecordOrderItemMutation(ctx, "add")
	s.log.Info("order item added",
		zap.String("order_id", orderID.String()),
		zap.String("item_id", item.ID.String()),
		zap.String("total_amount", total.StringFixed(2)),
	)
	return s.Get(ctx, orderID)
}

func (s *Service) UpdateItem(ctx context.Context, orderID, itemID snowflake.ID, req domain.UpdateItemRequest) (domain.OrderView, error) {
	if _, err := s.findMutableOrder(ctx, s.db, orderID); err != nil {
		return domain.OrderView{}, err
	}
	current, err := s.findItem(ctx, s.db, orderID, itemID)
	if err != nil {
		return domain.OrderView{}, err
	}

	merged, repriced := mergeItem(*current, req)
	if merged.Quantity < 1 {
		return domain.OrderView{}, errs.Wrap(errs.KindValidation, domain.ErrInvalidQuantity, "quantity must be at least 1")
	}
	if err := s.checkReferences(ctx, s.db, merged.RulerID, merged.BatchID, merged.TypeItemID); err != nil {
		return domain.OrderView{}, err
	}

	in := pricing.LineInput{
		RulerID:   merged.RulerID,
		Width:     merged.ConstantWidth,
		Length:    merged.Length,
		Quantity:  merged.Quantity,
		UnitPrice: merged.UnitPrice,
	}
	if repriced {
		in.UnitPrice = decimal.Zero
	}
	quote, err := s.pricing.PriceLine(ctx, s.db, in)
	if err != nil {
		return domain.OrderView{}, err
	}
	applyQuote(&merged, quote)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := s.repo.SaveItem(ctx, tx, &merged); err != nil {
			return err
		}
		_, err := s.recomputeTotal(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return domain.OrderView{}, err
	}

	s.metrics.RecordOrderItemMutation(ctx, "update")
	return s.Get(ctx, orderID)
}

// DeleteItem removes an item, re-quotes the remaining ones at their stored
// unit price and rewrites the total. The last item of an order is kept.
func (s *Service) DeleteItem(ctx context.Context, orderID, itemID snowflake.ID) (domain.OrderView, error) {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := s.findMutableOrder(ctx, tx, orderID); err != nil {
			return err
		}
		if _, err := s.findItem(ctx, tx, orderID, itemID); err != nil {
			return err
		}

		items, err := s.repo.ListItems(ctx, tx, orderID)
		if err != nil {
			return err
		}
		if len(items) <= 1 {
			return errs.Wrap(errs.KindInvalidState, domain.ErrLastItem, "cannot delete the only item of order %s", orderID)
		}

		if err := s.repo.DeleteItem(ctx, tx, orderID, itemID); err != nil {
			return err
		}

		for i := range items {
			item := items[i]
			if item.ID == itemID {
				continue
			}
			quote, err := s.pricing.Quote(ctx, tx, item.UnitPrice, item.Length, item.Quantity)
			if err != nil {
				return err
			}
			if quote.Subtotal.Equal(item.Subtotal) && sameDiscount(item.DiscountID, quote) {
				continue
			}
			applyQuote(&item, quote)
			if err := s.repo.SaveItem(ctx, tx, &item); err != nil {
				return err
			}
		}

		_, err = s.recomputeTotal(ctx, tx, orderID)
		return err
	})
	if err != nil {
		return domain.OrderView{}, err
	}

	s.metrics.RecordOrderItemMutation(ctx, "delete")
	return s.Get(ctx, orderID)
}

func (s *Service) findItem(ctx context.Context, db *gorm.DB, orderID, itemID snowflake.ID) (*domain.OrderItem, error) {
	item, err := s.repo.FindItem(ctx, db, orderID, itemID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, errs.Wrap(errs.KindNotFound, domain.ErrItemNotFound, "item %s not found in order %s", itemID, orderID)
	}
	return item, nil
}

// buildItem validates references and prices a new line for orderID.
func (s *Service) buildItem(ctx context.Context, db *gorm.DB, orderID snowflake.ID, in domain.ItemInput) (domain.OrderItem, error) {
	if in.Quantity < 1 {
		return domain.OrderItem{}, errs.Wrap(errs.KindValidation, domain.ErrInvalidQuantity, "quantity must be at least 1")
	}
	if err := s.checkReferences(ctx, db, in.RulerID, in.BatchID, in.TypeItemID); err != nil {
		return domain.OrderItem{}, err
	}

	quote, err := s.pricing.PriceLine(ctx, db, pricing.LineInput{
		RulerID:   in.RulerID,
		Width:     in.ConstantWidth,
		Length:    in.Length,
		Quantity:  in.Quantity,
		UnitPrice: in.UnitPrice,
	})
	if err != nil {
		return domain.OrderItem{}, err
	}

	item := domain.OrderItem{
		ID:                s.genID.Generate(),
		OrderID:           orderID,
		RulerID:           in.RulerID,
		BatchID:           in.BatchID,
		TypeItemID:        in.TypeItemID,
		ConstantWidth:     in.ConstantWidth,
		Length:            in.Length,
		ConstantThickness: in.ConstantThickness,
		Quantity:          in.Quantity,
		Notes:             in.Notes,
	}
	applyQuote(&item, quote)
	return item, nil
}

func (s *Service) checkReferences(ctx context.Context, db *gorm.DB, rulerID, batchID, typeItemID snowflake.ID) error {
	ruler, err := s.catalog.FindRuler(ctx, db, rulerID)
	if err != nil {
		return err
	}
	if ruler == nil {
		return errs.NotFound("ruler %s not found", rulerID)
	}
	batch, err := s.catalog.FindBatch(ctx, db, batchID)
	if err != nil {
		return err
	}
	if batch == nil {
		return errs.NotFound("batch %s not found", batchID)
	}
	if typeItemID != 0 {
		value, err := s.catalog.FindConstantValue(ctx, db, typeItemID)
		if err != nil {
			return err
		}
		if value == nil {
			return errs.NotFound("type item %s not found", typeItemID)
		}
	}
	return nil
}

// mergeItem overlays req on item. repriced reports whether the unit price
// must be looked up again: no explicit price was given and either the ruler
// or the width, which select the price row, changed.
func mergeItem(item domain.OrderItem, req domain.UpdateItemRequest) (domain.OrderItem, bool) {
	lookupChanged := false
	if req.RulerID != nil && *req.RulerID != item.RulerID {
		item.RulerID = *req.RulerID
		lookupChanged = true
	}
	if req.ConstantWidth != nil && !req.ConstantWidth.Equal(item.ConstantWidth) {
		item.ConstantWidth = *req.ConstantWidth
		lookupChanged = true
	}
	if req.BatchID != nil {
		item.BatchID = *req.BatchID
	}
	if req.TypeItemID != nil {
		item.TypeItemID = *req.TypeItemID
	}
	if req.Length != nil {
		item.Length = *req.Length
	}
	if req.ConstantThickness != nil {
		item.ConstantThickness = *req.ConstantThickness
	}
	if req.Quantity != nil {
		item.Quantity = *req.Quantity
	}
	if req.Notes != nil {
		item.Notes = *req.Notes
	}

	if req.UnitPrice != nil && !req.UnitPrice.IsZero() {
		item.UnitPrice = *req.UnitPrice
		return item, false
	}
	return item, lookupChanged
}

func applyQuote(item *domain.OrderItem, quote pricing.LineQuote) {
	item.UnitPrice = quote.UnitPrice
	item.DiscountAmount = quote.DiscountAmount
	item.Subtotal = quote.Subtotal
	item.DiscountID = nil
	if quote.Discount != nil {
		id := quote.Discount.DiscountID
		item.DiscountID = &id
	}
}

func sameDiscount(current *snowflake.ID, quote pricing.LineQuote) bool {
	if quote.Discount == nil {
		return current == nil
	}
	return current != nil && *current == quote.Discount.DiscountID
}
