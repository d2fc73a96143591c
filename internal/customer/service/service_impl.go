package service

import (
	"context"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/millrun/internal/customer/domain"
	"github.com/smallbiznis/millrun/internal/errs"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB   *gorm.DB
	Log  *zap.Logger
	Repo domain.Repository
}

type Service struct {
	db   *gorm.DB
	log  *zap.Logger
	repo domain.Repository
}

func New(p Params) domain.Service {
	return &Service{
		db:   p.DB,
		log:  p.Log.Named("customer.service"),
		repo: p.Repo,
	}
}

func (s *Service) GetByID(ctx context.Context, id snowflake.ID) (domain.Customer, error) {
	customer, err := s.repo.FindByID(ctx, s.db, id)
	if err != nil {
		return domain.Customer{}, err
	}
	if customer == nil {
		return domain.Customer{}, errs.Wrap(errs.KindNotFound, domain.ErrNotFound, "customer %s not found", id)
	}
	return *customer, nil
}

func (s *Service) Statement(ctx context.Context, id snowflake.ID) (domain.BalanceStatement, error) {
	customer, err := s.GetByID(ctx, id)
	if err != nil {
		return domain.BalanceStatement{}, err
	}
	outstanding, err := s.repo.OutstandingBalance(ctx, s.db, id)
	if err != nil {
		return domain.BalanceStatement{}, err
	}

	balance := customer.Balance.Round(2)
	stmt := domain.BalanceStatement{
		CustomerID:  customer.ID,
		Name:        customer.Name,
		Balance:     balance,
		Outstanding: outstanding,
		Reconciled:  balance.Equal(outstanding),
	}
	if !stmt.Reconciled {
		s.log.Warn("customer balance drift",
			zap.String("customer_id", id.String()),
			zap.String("balance", balance.String()),
			zap.String("outstanding", outstanding.String()),
		)
	}
	return stmt, nil
}
