// Package authorization evaluates the role tables in policy.go through a
// casbin enforcer. Every route guard and production-type check goes through
// Authorize or CanAccessProductionType.
package authorization

import (
	"context"
	_ "embed"
	"strings"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"
	gormadapter "github.com/casbin/gorm-adapter/v3"
	"github.com/smallbiznis/millrun/internal/errs"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

//go:embed model.conf
var modelText string

type Service interface {
	Authorize(ctx context.Context, role, object, action string) error
	AllowedProductionTypes(role string) []string
	CanAccessProductionType(role, productionType string) bool
}

type Params struct {
	fx.In

	Log      *zap.Logger
	Enforcer *casbin.SyncedEnforcer
}

type ServiceImpl struct {
	log      *zap.Logger
	enforcer *casbin.SyncedEnforcer
}

// NewEnforcer persists the policy through the gorm adapter and makes sure
// the seeded tables are present.
func NewEnforcer(db *gorm.DB) (*casbin.SyncedEnforcer, error) {
	adapter, err := gormadapter.NewAdapterByDB(db)
	if err != nil {
		return nil, err
	}
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m, adapter)
	if err != nil {
		return nil, err
	}
	enforcer.EnableAutoSave(true)
	if err := enforcer.LoadPolicy(); err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	if err := enforcer.BuildRoleLinks(); err != nil {
		return nil, err
	}
	return enforcer, nil
}

// NewMemoryEnforcer builds an enforcer with the seeded tables and no storage.
func NewMemoryEnforcer() (*casbin.SyncedEnforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, err
	}
	enforcer, err := casbin.NewSyncedEnforcer(m)
	if err != nil {
		return nil, err
	}
	if err := seedPolicies(enforcer); err != nil {
		return nil, err
	}
	return enforcer, nil
}

func NewService(p Params) Service {
	return &ServiceImpl{
		log:      p.Log.Named("authorization.service"),
		enforcer: p.Enforcer,
	}
}

func (s *ServiceImpl) Authorize(ctx context.Context, role, object, action string) error {
	role = strings.TrimSpace(role)
	if role == "" {
		return errs.Wrap(errs.KindForbidden, ErrInvalidActor, "no role on request")
	}
	object = strings.TrimSpace(object)
	if object == "" {
		return errs.Wrap(errs.KindForbidden, ErrInvalidObject, "authorization object is required")
	}
	action = strings.TrimSpace(action)
	if action == "" {
		return errs.Wrap(errs.KindForbidden, ErrInvalidAction, "authorization action is required")
	}

	allowed, err := s.enforcer.Enforce(subject(role), object, action)
	if err != nil {
		return err
	}
	if !allowed {
		s.log.Debug("authorization denied",
			zap.String("role", role),
			zap.String("object", object),
			zap.String("action", action),
		)
		return errs.Wrap(errs.KindForbidden, ErrForbidden, "role %s may not %s %s", role, action, object)
	}
	return nil
}

func (s *ServiceImpl) AllowedProductionTypes(role string) []string {
	allowed := make([]string, 0, len(ProductionTypes))
	for _, t := range ProductionTypes {
		if s.CanAccessProductionType(role, t) {
			allowed = append(allowed, t)
		}
	}
	return allowed
}

func (s *ServiceImpl) CanAccessProductionType(role, productionType string) bool {
	role = strings.TrimSpace(role)
	if role == "" {
		return false
	}
	ok, err := s.enforcer.Enforce(subject(role), ObjectProductionType, productionType)
	if err != nil {
		s.log.Warn("production type check failed", zap.Error(err))
		return false
	}
	return ok
}

func seedPolicies(enforcer *casbin.SyncedEnforcer) error {
	for _, rule := range rules() {
		has, err := enforcer.HasPolicy(rule)
		if err != nil {
			return err
		}
		if has {
			continue
		}
		if _, err := enforcer.AddPolicy(rule); err != nil {
			return err
		}
	}
	return nil
}
