package service

import (
	"fmt"

	"wallet-settlement-gateway/config"
	"wallet-settlement-gateway/internal/core/domain"
	"wallet-settlement-gateway/pkg/apperror"
)

// ConfigBankRegistry implements ports.BankRegistry over the bank catalog in
// the application config. The catalog is materialized once at startup and
// held for the process lifetime; Resolve is a pure lookup.
type ConfigBankRegistry struct {
	defaultID string
	banks     map[string]*domain.BankConfig
}

// NewBankRegistry builds the registry from provider configuration.
func NewBankRegistry(cfg config.ProviderConfig) (*ConfigBankRegistry, error) {
	banks := make(map[string]*domain.BankConfig, len(cfg.Banks))
	for _, b := range cfg.Banks {
		if b.ID == "" {
			return nil, fmt.Errorf("bank entry without id")
		}
		if b.PassKey == "" {
			return nil, fmt.Errorf("bank %q: missing pass_key", b.ID)
		}
		if _, dup := banks[b.ID]; dup {
			return nil, fmt.Errorf("bank %q: duplicate entry", b.ID)
		}
		banks[b.ID] = &domain.BankConfig{
			ID:              b.ID,
			PassKey:         b.PassKey,
			DefaultCurrency: b.Currency,
			Dialect:         b.Dialect,
		}
	}
	if cfg.DefaultBankID != "" {
		if _, ok := banks[cfg.DefaultBankID]; !ok {
			return nil, fmt.Errorf("default bank %q not in catalog", cfg.DefaultBankID)
		}
	}
	return &ConfigBankRegistry{defaultID: cfg.DefaultBankID, banks: banks}, nil
}

// Resolve returns the bank config for bankID, falling back to the configured
// default bank when bankID is empty.
func (r *ConfigBankRegistry) Resolve(bankID string) (*domain.BankConfig, error) {
	id := bankID
	if id == "" {
		id = r.defaultID
	}
	if id == "" {
		return nil, apperror.ErrUnknownBank(bankID)
	}
	bank, ok := r.banks[id]
	if !ok {
		return nil, apperror.ErrUnknownBank(id)
	}
	return bank, nil
}
