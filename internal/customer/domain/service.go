package domain

import (
	"context"
	"errors"

	"github.com/bwmarrin/snowflake"
)

type Service interface {
	GetByID(ctx context.Context, id snowflake.ID) (Customer, error)
	Statement(ctx context.Context, id snowflake.ID) (BalanceStatement, error)
}

var ErrNotFound = errors.New("customer_not_found")
