package config

import (
	"errors"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// Policy holds business switches that operators may change without a deploy.
type Policy struct {
	Orders   OrderPolicy   `mapstructure:"orders"`
	Invoices InvoicePolicy `mapstructure:"invoices"`
}

type OrderPolicy struct {
	// BlockOnOutstandingBalance rejects new orders for customers whose
	// balance is positive.
	BlockOnOutstandingBalance bool     `mapstructure:"blockOnOutstandingBalance"`
	MutableStatuses           []string `mapstructure:"mutableStatuses"`
}

type InvoicePolicy struct {
	RequireCompletedOrder bool `mapstructure:"requireCompletedOrder"`
}

func DefaultPolicy() Policy {
	return Policy{
		Orders: OrderPolicy{
			BlockOnOutstandingBalance: true,
			MutableStatuses:           []string{"pending", "preparing"},
		},
		Invoices: InvoicePolicy{
			RequireCompletedOrder: true,
		},
	}
}

// IsMutableStatus reports whether items of an order in status may change.
func (p OrderPolicy) IsMutableStatus(status string) bool {
	for _, s := range p.MutableStatuses {
		if strings.EqualFold(strings.TrimSpace(s), status) {
			return true
		}
	}
	return false
}

type PolicyHolder struct {
	current atomic.Value // holds Policy
}

// NewStaticPolicyHolder returns a holder that never reloads.
func NewStaticPolicyHolder(p Policy) *PolicyHolder {
	holder := &PolicyHolder{}
	holder.current.Store(p)
	return holder
}

func NewPolicyHolder(log *zap.Logger) (*PolicyHolder, error) {
	log = log.Named("policy")

	v := viper.New()
	v.SetConfigName("policy")
	v.SetConfigType("yml")
	v.AddConfigPath("/etc/millrun")
	v.AddConfigPath(".")

	v.SetEnvPrefix("MILLRUN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	defaults := DefaultPolicy()
	v.SetDefault("orders.blockOnOutstandingBalance", defaults.Orders.BlockOnOutstandingBalance)
	v.SetDefault("orders.mutableStatuses", defaults.Orders.MutableStatuses)
	v.SetDefault("invoices.requireCompletedOrder", defaults.Invoices.RequireCompletedOrder)

	watch := true
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		watch = false
		log.Info("policy file not found, using defaults")
	}

	var policy Policy
	if err := v.Unmarshal(&policy); err != nil {
		return nil, err
	}
	if err := validatePolicy(policy); err != nil {
		return nil, err
	}

	holder := NewStaticPolicyHolder(policy)

	if watch {
		v.OnConfigChange(func(e fsnotify.Event) {
			var updated Policy
			if err := v.Unmarshal(&updated); err != nil {
				log.Warn("policy reload failed", zap.Error(err))
				return
			}
			if err := validatePolicy(updated); err != nil {
				log.Warn("invalid policy ignored", zap.Error(err))
				return
			}
			holder.current.Store(updated)
			log.Info("policy reloaded", zap.String("file", e.Name))
		})
		v.WatchConfig()
	}

	return holder, nil
}

func (h *PolicyHolder) Get() Policy {
	return h.current.Load().(Policy)
}

func validatePolicy(p Policy) error {
	if len(p.Orders.MutableStatuses) == 0 {
		return errors.New("orders.mutableStatuses cannot be empty")
	}
	for _, s := range p.Orders.MutableStatuses {
		switch strings.ToLower(strings.TrimSpace(s)) {
		case "pending", "preparing", "canceled", "completed":
		default:
			return errors.New("orders.mutableStatuses contains unknown status " + s)
		}
	}
	if !p.Invoices.RequireCompletedOrder {
		return errors.New("invoices.requireCompletedOrder cannot be disabled")
	}
	return nil
}
