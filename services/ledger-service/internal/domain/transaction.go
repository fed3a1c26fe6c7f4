package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type TransactionStatus string

const (
	TransactionPending   TransactionStatus = "PENDING"
	TransactionConfirmed TransactionStatus = "CONFIRMED"
	TransactionFailed    TransactionStatus = "FAILED"
)

// Transaction is an on-chain transfer tracked from submission to its final
// status. Hash is unique per network.
type Transaction struct {
	AggregateRoot
	NetworkID   uuid.UUID
	Hash        string
	FromAddress string
	ToAddress   string
	Value       decimal.Decimal
	GasPrice    decimal.NullDecimal
	GasLimit    decimal.NullDecimal
	GasUsed     decimal.NullDecimal
	Data        string
	Timestamp   time.Time
	BlockNumber *int64
	BlockHash   string
	Status      TransactionStatus
	FailReason  string
}

func NewTransaction(id uuid.UUID, correlationID string, networkID uuid.UUID, hash, from, to string, value decimal.Decimal, data string) (*Transaction, error) {
	hash = strings.TrimSpace(hash)
	from = strings.TrimSpace(from)
	to = strings.TrimSpace(to)

	switch {
	case networkID == uuid.Nil:
		return nil, Validationf("network id must be provided")
	case hash == "":
		return nil, Validationf("transaction hash cannot be blank")
	case from == "":
		return nil, Validationf("from address must be provided")
	case to == "":
		return nil, Validationf("to address must be provided")
	case value.IsNegative():
		return nil, Validationf("transaction value must not be negative")
	}

	tx := &Transaction{
		AggregateRoot: NewAggregateRoot(id),
		NetworkID:     networkID,
		Hash:          hash,
		FromAddress:   from,
		ToAddress:     to,
		Value:         value,
		Data:          data,
		Timestamp:     time.Now().UTC(),
		Status:        TransactionPending,
	}
	tx.Append(TransactionCreated{
		Metadata:        NewMetadata(correlationID),
		TransactionID:   id,
		NetworkID:       networkID,
		TransactionHash: hash,
		FromAddress:     from,
		ToAddress:       to,
	})
	return tx, nil
}

// RehydrateTransaction returns a zero-event aggregate around stored state.
func RehydrateTransaction(t Transaction) *Transaction {
	t.AggregateRoot = NewAggregateRoot(t.AggregateRoot.ID())
	return &t
}

func (t *Transaction) AggregateType() string { return "transaction" }

// SetGasInfo records the gas price and limit the transaction was submitted with.
func (t *Transaction) SetGasInfo(price, limit decimal.Decimal) error {
	if price.IsNegative() || limit.IsNegative() {
		return Validationf("gas price and gas limit must not be negative")
	}
	t.GasPrice = decimal.NewNullDecimal(price)
	t.GasLimit = decimal.NewNullDecimal(limit)
	return nil
}

// Confirm records block inclusion. Only pending transactions can be confirmed.
func (t *Transaction) Confirm(correlationID string, blockNumber int64, blockHash string, gasUsed decimal.Decimal) error {
	if t.Status != TransactionPending {
		return InvalidStatef("transaction %s is %s, only PENDING can be confirmed", t.ID(), t.Status)
	}
	if blockNumber < 0 || strings.TrimSpace(blockHash) == "" {
		return Validationf("block number and block hash must be provided")
	}
	t.BlockNumber = &blockNumber
	t.BlockHash = strings.TrimSpace(blockHash)
	t.GasUsed = decimal.NewNullDecimal(gasUsed)
	t.transition(correlationID, TransactionConfirmed, "")
	return nil
}

// Fail marks a pending transaction as failed with reason.
func (t *Transaction) Fail(correlationID, reason string) error {
	if t.Status != TransactionPending {
		return InvalidStatef("transaction %s is %s, only PENDING can fail", t.ID(), t.Status)
	}
	t.FailReason = strings.TrimSpace(reason)
	t.transition(correlationID, TransactionFailed, t.FailReason)
	return nil
}

func (t *Transaction) transition(correlationID string, next TransactionStatus, reason string) {
	old := t.Status
	t.Status = next
	t.Append(TransactionStatusChanged{
		Metadata:      NewMetadata(correlationID),
		TransactionID: t.ID(),
		OldStatus:     old,
		NewStatus:     next,
		Reason:        reason,
	})
}
