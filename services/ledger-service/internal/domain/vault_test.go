package domain

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestVaultConfigLifecycle(t *testing.T) {
	params := map[string]string{"region": "eu-west-1"}
	v, err := NewVaultConfig(uuid.New(), "corr-1", "primary", VaultCloudKMS, params)
	require.NoError(t, err)

	params["region"] = "changed"
	assert.Equal(t, "eu-west-1", v.Parameters["region"])

	events := v.Drain()
	require.Len(t, events, 1)
	assert.Equal(t, EventVaultCreated, events[0].EventType())

	v.Deactivate("corr-2")
	v.Deactivate("corr-2")
	v.Activate("corr-3")
	events = v.Drain()
	require.Len(t, events, 2)
	assert.Equal(t, VaultInactive, events[0].(VaultStatusChanged).NewStatus)
	assert.Equal(t, VaultActive, events[1].(VaultStatusChanged).NewStatus)
	assert.True(t, v.IsAvailable())
}

func TestNewVaultConfigValidation(t *testing.T) {
	_, err := NewVaultConfig(uuid.New(), "corr", "", VaultHSM, nil)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = NewVaultConfig(uuid.New(), "corr", "x", VaultType("TPM"), nil)
	assert.ErrorIs(t, err, ErrValidation)
}
