package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	catalogdomain "github.com/smallbiznis/millrun/internal/catalog/domain"
	"github.com/smallbiznis/millrun/internal/production/domain"
)

// labeler fills catalog labels on order views, caching lookups per call.
type labeler struct {
	svc       *Service
	rulers    map[snowflake.ID]*catalogdomain.Ruler
	batches   map[snowflake.ID]*catalogdomain.Batch
	constants map[snowflake.ID]*catalogdomain.ConstantValue
}

func newLabeler(svc *Service) *labeler {
	return &labeler{
		svc:       svc,
		rulers:    map[snowflake.ID]*catalogdomain.Ruler{},
		batches:   map[snowflake.ID]*catalogdomain.Batch{},
		constants: map[snowflake.ID]*catalogdomain.ConstantValue{},
	}
}

func (l *labeler) apply(ctx context.Context, view *domain.OrderView) error {
	ruler, ok := l.rulers[view.RulerID]
	if !ok {
		var err error
		if ruler, err = l.svc.catalog.FindRuler(ctx, l.svc.db, view.RulerID); err != nil {
			return err
		}
		l.rulers[view.RulerID] = ruler
	}
	if ruler != nil {
		view.RulerType = ruler.Type
		if ruler.Material != nil {
			view.MaterialName = ruler.Material.Name
		}
		if ruler.Color != nil {
			view.ColorName = ruler.Color.Name
		}
	}

	batch, ok := l.batches[view.BatchID]
	if !ok {
		var err error
		if batch, err = l.svc.catalog.FindBatch(ctx, l.svc.db, view.BatchID); err != nil {
			return err
		}
		l.batches[view.BatchID] = batch
	}
	if batch != nil {
		view.BatchNumber = batch.BatchNumber
	}

	if view.TypeItemID == 0 {
		return nil
	}
	value, ok := l.constants[view.TypeItemID]
	if !ok {
		var err error
		if value, err = l.svc.catalog.FindConstantValue(ctx, l.svc.db, view.TypeItemID); err != nil {
			return err
		}
		l.constants[view.TypeItemID] = value
	}
	if value != nil {
		view.TypeItem = value.Value
	}
	return nil
}
