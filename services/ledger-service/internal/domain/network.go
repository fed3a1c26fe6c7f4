package domain

import (
	"strings"

	"github.com/google/uuid"
)

type NetworkStatus string

const (
	NetworkActive      NetworkStatus = "ACTIVE"
	NetworkInactive    NetworkStatus = "INACTIVE"
	NetworkMaintenance NetworkStatus = "MAINTENANCE"
)

func ParseNetworkStatus(raw string) (NetworkStatus, error) {
	switch s := NetworkStatus(strings.ToUpper(strings.TrimSpace(raw))); s {
	case NetworkActive, NetworkInactive, NetworkMaintenance:
		return s, nil
	default:
		return "", Validationf("unknown network status %q", raw)
	}
}

// Network is a blockchain network the wallet can operate on. ChainID is unique
// across networks.
type Network struct {
	AggregateRoot
	Name        string
	ChainID     string
	RPCURL      string
	ExplorerURL string
	Status      NetworkStatus
}

func NewNetwork(id uuid.UUID, correlationID, name, chainID, rpcURL, explorerURL string) (*Network, error) {
	name = strings.TrimSpace(name)
	chainID = strings.TrimSpace(chainID)
	rpcURL = strings.TrimSpace(rpcURL)
	explorerURL = strings.TrimSpace(explorerURL)

	switch {
	case name == "":
		return nil, Validationf("network name must be provided")
	case chainID == "":
		return nil, Validationf("chain id must be provided")
	case rpcURL == "":
		return nil, Validationf("rpc url must be provided")
	case explorerURL == "":
		return nil, Validationf("explorer url must be provided")
	case !isHTTPURL(rpcURL):
		return nil, Validationf("rpc url must be a valid http/https url")
	case !isHTTPURL(explorerURL):
		return nil, Validationf("explorer url must be a valid http/https url")
	}

	n := &Network{
		AggregateRoot: NewAggregateRoot(id),
		Name:          name,
		ChainID:       chainID,
		RPCURL:        rpcURL,
		ExplorerURL:   explorerURL,
		Status:        NetworkActive,
	}
	n.Append(NetworkCreated{
		Metadata:  NewMetadata(correlationID),
		NetworkID: id,
		Name:      name,
		ChainID:   chainID,
	})
	return n, nil
}

// RehydrateNetwork rebuilds a stored network without raising events.
func RehydrateNetwork(id uuid.UUID, name, chainID, rpcURL, explorerURL string, status NetworkStatus) *Network {
	return &Network{
		AggregateRoot: NewAggregateRoot(id),
		Name:          name,
		ChainID:       chainID,
		RPCURL:        rpcURL,
		ExplorerURL:   explorerURL,
		Status:        status,
	}
}

func (n *Network) AggregateType() string { return "network" }

// ChangeStatus moves the network to status, raising NetworkStatusChanged only
// when the status actually changes.
func (n *Network) ChangeStatus(correlationID string, next NetworkStatus) {
	if n.Status == next {
		return
	}
	old := n.Status
	n.Status = next
	n.Append(NetworkStatusChanged{
		Metadata:  NewMetadata(correlationID),
		NetworkID: n.ID(),
		OldStatus: old,
		NewStatus: next,
	})
}

func (n *Network) IsAvailable() bool { return n.Status == NetworkActive }

func isHTTPURL(s string) bool {
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}
