package domain

import (
	"maps"
	"strings"

	"github.com/google/uuid"
)

type VaultType string

const (
	VaultHSM      VaultType = "HSM"
	VaultSoftware VaultType = "SOFTWARE"
	VaultCloudKMS VaultType = "CLOUD_KMS"
)

func ParseVaultType(raw string) (VaultType, error) {
	switch v := VaultType(strings.ToUpper(strings.TrimSpace(raw))); v {
	case VaultHSM, VaultSoftware, VaultCloudKMS:
		return v, nil
	default:
		return "", Validationf("unknown vault type %q", raw)
	}
}

type VaultStatus string

const (
	VaultActive   VaultStatus = "ACTIVE"
	VaultInactive VaultStatus = "INACTIVE"
)

// VaultConfig describes a key-custody backend. Parameters are opaque
// backend-specific settings.
type VaultConfig struct {
	AggregateRoot
	Name       string
	Type       VaultType
	Parameters map[string]string
	Status     VaultStatus
}

func NewVaultConfig(id uuid.UUID, correlationID, name string, typ VaultType, params map[string]string) (*VaultConfig, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, Validationf("vault name must be provided")
	}
	if _, err := ParseVaultType(string(typ)); err != nil {
		return nil, err
	}

	v := RehydrateVaultConfig(id, name, typ, params, VaultActive)
	v.Append(VaultCreated{
		Metadata:  NewMetadata(correlationID),
		VaultID:   id,
		VaultType: typ,
	})
	return v, nil
}

func RehydrateVaultConfig(id uuid.UUID, name string, typ VaultType, params map[string]string, status VaultStatus) *VaultConfig {
	p := make(map[string]string, len(params))
	maps.Copy(p, params)
	return &VaultConfig{
		AggregateRoot: NewAggregateRoot(id),
		Name:          name,
		Type:          typ,
		Parameters:    p,
		Status:        status,
	}
}

func (v *VaultConfig) AggregateType() string { return "vault" }

func (v *VaultConfig) Activate(correlationID string)   { v.changeStatus(correlationID, VaultActive) }
func (v *VaultConfig) Deactivate(correlationID string) { v.changeStatus(correlationID, VaultInactive) }

func (v *VaultConfig) changeStatus(correlationID string, next VaultStatus) {
	if v.Status == next {
		return
	}
	old := v.Status
	v.Status = next
	v.Append(VaultStatusChanged{
		Metadata:  NewMetadata(correlationID),
		VaultID:   v.ID(),
		OldStatus: old,
		NewStatus: next,
	})
}

func (v *VaultConfig) IsAvailable() bool { return v.Status == VaultActive }
