package service

import (
	"context"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/shopspring/decimal"
	"github.com/smallbiznis/millrun/internal/discount/domain"
	"github.com/smallbiznis/millrun/internal/errs"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB    *gorm.DB
	Log   *zap.Logger
	GenID *snowflake.Node
	Repo  domain.Repository
}

type Service struct {
	db    *gorm.DB
	log   *zap.Logger
	genID *snowflake.Node
	repo  domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:    p.DB,
		log:   p.Log.Named("discount.service"),
		genID: p.GenID,
		repo:  p.Repo,
	}
}

// Resolve loads the rule table through db and applies ResolveFrom.
func (s *Service) Resolve(ctx context.Context, db *gorm.DB, measure, amount decimal.Decimal) (*domain.Applied, error) {
	if db == nil {
		db = s.db
	}
	rules, err := s.repo.ListRules(ctx, db)
	if err != nil {
		return nil, err
	}
	return ResolveFrom(rules, measure, amount), nil
}

func (s *Service) List(ctx context.Context, filter domain.ListDiscountFilter) (domain.ListDiscountResponse, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	discounts, total, err := s.repo.List(ctx, s.db, filter)
	if err != nil {
		return domain.ListDiscountResponse{}, err
	}
	return domain.ListDiscountResponse{Discounts: discounts, Total: total}, nil
}

func (s *Service) Get(ctx context.Context, id snowflake.ID) (domain.Discount, error) {
	discount, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Discount{}, err
	}
	if discount == nil {
		return domain.Discount{}, errs.Wrap(errs.KindNotFound, domain.ErrNotFound, "discount %s not found", id)
	}
	return *discount, nil
}

func (s *Service) Create(ctx context.Context, req domain.CreateDiscountRequest) (domain.Discount, error) {
	discount := domain.Discount{
		ID:                s.genID.Generate(),
		Name:              strings.TrimSpace(req.Name),
		Description:       strings.TrimSpace(req.Description),
		Type:              req.Type,
		QuantityCondition: req.QuantityCondition,
		Quantity:          req.Quantity.Round(2),
		Value:             req.Value.Round(2),
	}
	if err := validate(discount); err != nil {
		return domain.Discount{}, err
	}

	if err := s.repo.Insert(ctx, s.db, &discount); err != nil {
		return domain.Discount{}, err
	}

	s.log.Info("discount created",
		zap.String("discount_id", discount.ID.String()),
		zap.String("type", string(discount.Type)),
	)
	return discount, nil
}

func (s *Service) Update(ctx context.Context, id snowflake.ID, req domain.UpdateDiscountRequest) (domain.Discount, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return domain.Discount{}, err
	}

	merged := current
	fields := map[string]any{}
	if req.Name != nil {
		merged.Name = strings.TrimSpace(*req.Name)
		fields["name"] = merged.Name
	}
	if req.Description != nil {
		merged.Description = strings.TrimSpace(*req.Description)
		fields["description"] = merged.Description
	}
	if req.Type != nil {
		merged.Type = *req.Type
		fields["type"] = merged.Type
	}
	if req.QuantityCondition != nil {
		merged.QuantityCondition = *req.QuantityCondition
		fields["quantity_condition"] = merged.QuantityCondition
	}
	if req.Quantity != nil {
		merged.Quantity = req.Quantity.Round(2)
		fields["quantity"] = merged.Quantity
	}
	if req.Value != nil {
		merged.Value = req.Value.Round(2)
		fields["value"] = merged.Value
	}
	if err := validate(merged); err != nil {
		return domain.Discount{}, err
	}

	if err := s.repo.Update(ctx, s.db, id, fields); err != nil {
		return domain.Discount{}, err
	}
	return s.Get(ctx, id)
}

func (s *Service) Delete(ctx context.Context, id snowflake.ID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, s.db, id)
}

func validate(d domain.Discount) error {
	if d.Name == "" {
		return errs.Wrap(errs.KindValidation, domain.ErrInvalidName, "discount name is required")
	}
	if !d.Type.Valid() {
		return errs.Wrap(errs.KindValidation, domain.ErrInvalidType, "discount type %q is not supported", d.Type)
	}
	if !d.QuantityCondition.Valid() {
		return errs.Wrap(errs.KindValidation, domain.ErrInvalidCondition, "quantity condition %q is not supported", d.QuantityCondition)
	}
	if d.Quantity.IsNegative() {
		return errs.Wrap(errs.KindValidation, domain.ErrInvalidQuantity, "quantity threshold must not be negative")
	}
	if d.Value.IsNegative() {
		return errs.Wrap(errs.KindValidation, domain.ErrInvalidValue, "discount value must not be negative")
	}
	if d.Type == domain.TypePercentage && d.Value.GreaterThan(hundred) {
		return errs.Wrap(errs.KindValidation, domain.ErrInvalidValue, "percentage discount cannot exceed 100")
	}
	return nil
}
