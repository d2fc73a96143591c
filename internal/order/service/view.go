package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/millrun/internal/catalog/domain"
	customerdomain "github.com/smallbiznis/millrun/internal/customer/domain"
	"github.com/smallbiznis/millrun/internal/order/domain"
)

// viewBuilder enriches orders with catalog labels, memoizing lookups across
// the orders of one response.
type viewBuilder struct {
	svc       *Service
	customers map[snowflake.ID]*customerdomain.Customer
	rulers    map[snowflake.ID]*catalogdomain.Ruler
	batches   map[snowflake.ID]*catalogdomain.Batch
	constants map[snowflake.ID]*catalogdomain.ConstantValue
}

func newViewBuilder(svc *Service) *viewBuilder {
	return &viewBuilder{
		svc:       svc,
		customers: map[snowflake.ID]*customerdomain.Customer{},
		rulers:    map[snowflake.ID]*catalogdomain.Ruler{},
		batches:   map[snowflake.ID]*catalogdomain.Batch{},
		constants: map[snowflake.ID]*catalogdomain.ConstantValue{},
	}
}

func (b *viewBuilder) build(ctx context.Context, order domain.Order, items []domain.OrderItem) (domain.OrderView, error) {
	view := domain.OrderView{Order: order, Items: make([]domain.ItemView, 0, len(items))}

	customer, err := b.customer(ctx, order.CustomerID)
	if err != nil {
		return domain.OrderView{}, err
	}
	if customer != nil {
		view.Customer = &domain.CustomerSummary{
			ID:      customer.ID,
			Name:    customer.Name,
			Phone:   customer.Phone,
			Balance: customer.Balance,
		}
	}

	for _, item := range items {
		iv := domain.ItemView{OrderItem: item}

		ruler, err := b.ruler(ctx, item.RulerID)
		if err != nil {
			return domain.OrderView{}, err
		}
		if ruler != nil {
			iv.RulerType = ruler.Type
			if ruler.Material != nil {
				iv.MaterialName = ruler.Material.Name
			}
			if ruler.Color != nil {
				iv.ColorName = ruler.Color.Name
				iv.ColorCode = ruler.Color.Code
			}
		}

		batch, err := b.batch(ctx, item.BatchID)
		if err != nil {
			return domain.OrderView{}, err
		}
		if batch != nil {
			iv.BatchNumber = batch.BatchNumber
		}

		if item.TypeItemID != 0 {
			value, err := b.constant(ctx, item.TypeItemID)
			if err != nil {
				return domain.OrderView{}, err
			}
			if value != nil {
				iv.TypeItem = value.Value
			}
		}

		view.Items = append(view.Items, iv)
	}
	return view, nil
}

func (b *viewBuilder) customer(ctx context.Context, id snowflake.ID) (*customerdomain.Customer, error) {
	if c, ok := b.customers[id]; ok {
		return c, nil
	}
	c, err := b.svc.customers.FindByID(ctx, b.svc.db, id)
	if err != nil {
		return nil, err
	}
	b.customers[id] = c
	return c, nil
}

func (b *viewBuilder) ruler(ctx context.Context, id snowflake.ID) (*catalogdomain.Ruler, error) {
	if r, ok := b.rulers[id]; ok {
		return r, nil
	}
	r, err := b.svc.catalog.FindRuler(ctx, b.svc.db, id)
	if err != nil {
		return nil, err
	}
	b.rulers[id] = r
	return r, nil
}

func (b *viewBuilder) batch(ctx context.Context, id snowflake.ID) (*catalogdomain.Batch, error) {
	if v, ok := b.batches[id]; ok {
		return v, nil
	}
	v, err := b.svc.catalog.FindBatch(ctx, b.svc.db, id)
	if err != nil {
		return nil, err
	}
	b.batches[id] = v
	return v, nil
}

func (b *viewBuilder) constant(ctx context.Context, id snowflake.ID) (*catalogdomain.ConstantValue, error) {
	if v, ok := b.constants[id]; ok {
		return v, nil
	}
	v, err := b.svc.catalog.FindConstantValue(ctx, b.svc.db, id)
	if err != nil {
		return nil, err
	}
	b.constants[id] = v
	return v, nil
}
