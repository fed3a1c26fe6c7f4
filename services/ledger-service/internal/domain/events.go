package domain

import "github.com/google/uuid"

// Event type discriminators. They double as the bus channel prefix.
const (
	EventNetworkCreated           = "NetworkCreated"
	EventNetworkStatusChanged     = "NetworkStatusChanged"
	EventTokenCreated             = "TokenCreated"
	EventTransactionCreated       = "TransactionCreated"
	EventTransactionStatusChanged = "TransactionStatusChanged"
	EventVaultCreated             = "VaultCreated"
	EventVaultStatusChanged       = "VaultStatusChanged"
)

type NetworkCreated struct {
	Metadata
	NetworkID uuid.UUID `json:"networkId"`
	Name      string    `json:"name"`
	ChainID   string    `json:"chainId"`
}

func (NetworkCreated) EventType() string { return EventNetworkCreated }

type NetworkStatusChanged struct {
	Metadata
	NetworkID uuid.UUID     `json:"networkId"`
	OldStatus NetworkStatus `json:"oldStatus"`
	NewStatus NetworkStatus `json:"newStatus"`
}

func (NetworkStatusChanged) EventType() string { return EventNetworkStatusChanged }

type TokenCreated struct {
	Metadata
	TokenID         uuid.UUID `json:"tokenId"`
	NetworkID       uuid.UUID `json:"networkId"`
	ContractAddress string    `json:"contractAddress"`
	Symbol          string    `json:"symbol"`
	TokenType       TokenType `json:"tokenType"`
}

func (TokenCreated) EventType() string { return EventTokenCreated }

type TransactionCreated struct {
	Metadata
	TransactionID   uuid.UUID `json:"transactionId"`
	NetworkID       uuid.UUID `json:"networkId"`
	TransactionHash string    `json:"transactionHash"`
	FromAddress     string    `json:"fromAddress"`
	ToAddress       string    `json:"toAddress"`
}

func (TransactionCreated) EventType() string { return EventTransactionCreated }

type TransactionStatusChanged struct {
	Metadata
	TransactionID uuid.UUID         `json:"transactionId"`
	OldStatus     TransactionStatus `json:"oldStatus"`
	NewStatus     TransactionStatus `json:"newStatus"`
	Reason        string            `json:"reason,omitempty"`
}

func (TransactionStatusChanged) EventType() string { return EventTransactionStatusChanged }

type VaultCreated struct {
	Metadata
	VaultID   uuid.UUID `json:"vaultId"`
	VaultType VaultType `json:"vaultType"`
}

func (VaultCreated) EventType() string { return EventVaultCreated }

type VaultStatusChanged struct {
	Metadata
	VaultID   uuid.UUID   `json:"vaultId"`
	OldStatus VaultStatus `json:"oldStatus"`
	NewStatus VaultStatus `json:"newStatus"`
}

func (VaultStatusChanged) EventType() string { return EventVaultStatusChanged }
