package service

import (
	"testing"

	"wallet-settlement-gateway/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBankRegistry_Resolve(t *testing.T) {
	reg, err := NewBankRegistry(config.ProviderConfig{
		DefaultBankID: "bank1",
		Banks: []config.BankEntry{
			{ID: "bank1", PassKey: "pk1", Currency: "USD"},
			{ID: "bank2", PassKey: "pk2", Currency: "EUR", Dialect: "xml"},
		},
	})
	require.NoError(t, err)

	b, err := reg.Resolve("bank2")
	require.NoError(t, err)
	assert.Equal(t, "pk2", b.PassKey)
	assert.Equal(t, "EUR", b.Currency())

	// Empty bank id falls back to the default bank.
	b, err = reg.Resolve("")
	require.NoError(t, err)
	assert.Equal(t, "bank1", b.ID)

	_, err = reg.Resolve("bank3")
	assert.Error(t, err)
}

func TestBankRegistry_NoDefault(t *testing.T) {
	reg, err := NewBankRegistry(config.ProviderConfig{
		Banks: []config.BankEntry{{ID: "bank1", PassKey: "pk1"}},
	})
	require.NoError(t, err)

	_, err = reg.Resolve("")
	assert.Error(t, err)
}

func TestBankRegistry_InvalidCatalog(t *testing.T) {
	_, err := NewBankRegistry(config.ProviderConfig{
		Banks: []config.BankEntry{{ID: "", PassKey: "pk"}},
	})
	assert.Error(t, err)

	_, err = NewBankRegistry(config.ProviderConfig{
		Banks: []config.BankEntry{{ID: "bank1", PassKey: ""}},
	})
	assert.Error(t, err)

	_, err = NewBankRegistry(config.ProviderConfig{
		Banks: []config.BankEntry{
			{ID: "bank1", PassKey: "a"},
			{ID: "bank1", PassKey: "b"},
		},
	})
	assert.Error(t, err)

	_, err = NewBankRegistry(config.ProviderConfig{
		DefaultBankID: "ghost",
		Banks:         []config.BankEntry{{ID: "bank1", PassKey: "a"}},
	})
	assert.Error(t, err)
}

func TestBankRegistry_DefaultCurrency(t *testing.T) {
	reg, err := NewBankRegistry(config.ProviderConfig{
		Banks: []config.BankEntry{{ID: "bank1", PassKey: "pk1"}},
	})
	require.NoError(t, err)

	b, err := reg.Resolve("bank1")
	require.NoError(t, err)
	assert.Equal(t, "USD", b.Currency())
}
