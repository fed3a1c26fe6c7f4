package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bloco/wallethub/services/ledger-service/internal/domain"
	"github.com/bloco/wallethub/services/ledger-service/internal/outbox"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service is the application-service layer: each method loads or creates an
// aggregate, applies one business operation, and persists the new state
// together with the events it raised.
type Service struct {
	uow    UnitOfWork
	logger *slog.Logger
	newID  func() uuid.UUID
}

func New(uow UnitOfWork, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{uow: uow, logger: logger, newID: uuid.New}
}

// commit stages every pending event of agg through tx. Callers write the
// aggregate state first, in the same transaction.
func commit(ctx context.Context, tx Tx, agg domain.Aggregate) error {
	if _, err := outbox.StageEvents(ctx, tx.Outbox(), agg); err != nil {
		return fmt.Errorf("%s %s: %w", agg.AggregateType(), agg.ID(), err)
	}
	return nil
}

func requireCorrelation(correlationID string) error {
	if strings.TrimSpace(correlationID) == "" {
		return domain.Validationf("correlation id must be provided")
	}
	return nil
}

type AddNetworkInput struct {
	CorrelationID string
	Name          string
	ChainID       string
	RPCURL        string
	ExplorerURL   string
}

func (s *Service) AddNetwork(ctx context.Context, in AddNetworkInput) (*domain.Network, error) {
	if err := requireCorrelation(in.CorrelationID); err != nil {
		return nil, err
	}
	n, err := domain.NewNetwork(s.newID(), in.CorrelationID, in.Name, in.ChainID, in.RPCURL, in.ExplorerURL)
	if err != nil {
		return nil, err
	}
	err = s.uow.Do(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.Networks().Insert(ctx, n); err != nil {
			return err
		}
		return commit(ctx, tx, n)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("network added", "network_id", n.ID(), "chain_id", n.ChainID, "correlation_id", in.CorrelationID)
	return n, nil
}

func (s *Service) ChangeNetworkStatus(ctx context.Context, correlationID string, id uuid.UUID, status domain.NetworkStatus) (*domain.Network, error) {
	if err := requireCorrelation(correlationID); err != nil {
		return nil, err
	}
	if _, err := domain.ParseNetworkStatus(string(status)); err != nil {
		return nil, err
	}
	var n *domain.Network
	err := s.uow.Do(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		if n, err = tx.Networks().Get(ctx, id); err != nil {
			return err
		}
		n.ChangeStatus(correlationID, status)
		if n.PendingCount() == 0 {
			return nil
		}
		if err := tx.Networks().Update(ctx, n); err != nil {
			return err
		}
		return commit(ctx, tx, n)
	})
	if err != nil {
		return nil, err
	}
	return n, nil
}

type CreateTokenInput struct {
	CorrelationID   string
	NetworkID       uuid.UUID
	Name            string
	Symbol          string
	Decimals        int
	Type            domain.TokenType
	ContractAddress string
}

func (s *Service) CreateToken(ctx context.Context, in CreateTokenInput) (*domain.Token, error) {
	if err := requireCorrelation(in.CorrelationID); err != nil {
		return nil, err
	}
	t, err := domain.NewToken(s.newID(), in.CorrelationID, in.NetworkID, in.Name, in.Symbol, in.Decimals, in.Type, in.ContractAddress)
	if err != nil {
		return nil, err
	}
	err = s.uow.Do(ctx, func(ctx context.Context, tx Tx) error {
		network, err := tx.Networks().Get(ctx, in.NetworkID)
		if err != nil {
			return err
		}
		if !network.IsAvailable() {
			return domain.InvalidStatef("network %s is %s", network.ID(), network.Status)
		}
		if err := tx.Tokens().Insert(ctx, t); err != nil {
			return err
		}
		return commit(ctx, tx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

type CreateTransactionInput struct {
	CorrelationID string
	NetworkID     uuid.UUID
	Hash          string
	FromAddress   string
	ToAddress     string
	Value         decimal.Decimal
	Data          string
	// GasPrice and GasLimit are optional; both must be set to be recorded.
	GasPrice decimal.NullDecimal
	GasLimit decimal.NullDecimal
}

func (s *Service) CreateTransaction(ctx context.Context, in CreateTransactionInput) (*domain.Transaction, error) {
	if err := requireCorrelation(in.CorrelationID); err != nil {
		return nil, err
	}
	t, err := domain.NewTransaction(s.newID(), in.CorrelationID, in.NetworkID, in.Hash, in.FromAddress, in.ToAddress, in.Value, in.Data)
	if err != nil {
		return nil, err
	}
	if in.GasPrice.Valid != in.GasLimit.Valid {
		return nil, domain.Validationf("gas price and gas limit must be provided together")
	}
	if in.GasPrice.Valid {
		if err := t.SetGasInfo(in.GasPrice.Decimal, in.GasLimit.Decimal); err != nil {
			return nil, err
		}
	}
	err = s.uow.Do(ctx, func(ctx context.Context, tx Tx) error {
		network, err := tx.Networks().Get(ctx, in.NetworkID)
		if err != nil {
			return err
		}
		if !network.IsAvailable() {
			return domain.InvalidStatef("network %s is %s", network.ID(), network.Status)
		}
		if err := tx.Transactions().Insert(ctx, t); err != nil {
			return err
		}
		return commit(ctx, tx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

type ConfirmTransactionInput struct {
	CorrelationID string
	TransactionID uuid.UUID
	BlockNumber   int64
	BlockHash     string
	GasUsed       decimal.Decimal
}

func (s *Service) ConfirmTransaction(ctx context.Context, in ConfirmTransactionInput) (*domain.Transaction, error) {
	if err := requireCorrelation(in.CorrelationID); err != nil {
		return nil, err
	}
	return s.updateTransaction(ctx, in.TransactionID, func(t *domain.Transaction) error {
		return t.Confirm(in.CorrelationID, in.BlockNumber, in.BlockHash, in.GasUsed)
	})
}

func (s *Service) FailTransaction(ctx context.Context, correlationID string, id uuid.UUID, reason string) (*domain.Transaction, error) {
	if err := requireCorrelation(correlationID); err != nil {
		return nil, err
	}
	return s.updateTransaction(ctx, id, func(t *domain.Transaction) error {
		return t.Fail(correlationID, reason)
	})
}

func (s *Service) updateTransaction(ctx context.Context, id uuid.UUID, apply func(*domain.Transaction) error) (*domain.Transaction, error) {
	var t *domain.Transaction
	err := s.uow.Do(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		if t, err = tx.Transactions().Get(ctx, id); err != nil {
			return err
		}
		if err := apply(t); err != nil {
			return err
		}
		if err := tx.Transactions().Update(ctx, t); err != nil {
			return err
		}
		return commit(ctx, tx, t)
	})
	if err != nil {
		return nil, err
	}
	return t, nil
}

type CreateVaultConfigInput struct {
	CorrelationID string
	Name          string
	Type          domain.VaultType
	Parameters    map[string]string
}

func (s *Service) CreateVaultConfig(ctx context.Context, in CreateVaultConfigInput) (*domain.VaultConfig, error) {
	if err := requireCorrelation(in.CorrelationID); err != nil {
		return nil, err
	}
	v, err := domain.NewVaultConfig(s.newID(), in.CorrelationID, in.Name, in.Type, in.Parameters)
	if err != nil {
		return nil, err
	}
	err = s.uow.Do(ctx, func(ctx context.Context, tx Tx) error {
		if err := tx.Vaults().Insert(ctx, v); err != nil {
			return err
		}
		return commit(ctx, tx, v)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}

func (s *Service) ChangeVaultStatus(ctx context.Context, correlationID string, id uuid.UUID, active bool) (*domain.VaultConfig, error) {
	if err := requireCorrelation(correlationID); err != nil {
		return nil, err
	}
	var v *domain.VaultConfig
	err := s.uow.Do(ctx, func(ctx context.Context, tx Tx) error {
		var err error
		if v, err = tx.Vaults().Get(ctx, id); err != nil {
			return err
		}
		if active {
			v.Activate(correlationID)
		} else {
			v.Deactivate(correlationID)
		}
		if v.PendingCount() == 0 {
			return nil
		}
		if err := tx.Vaults().Update(ctx, v); err != nil {
			return err
		}
		return commit(ctx, tx, v)
	})
	if err != nil {
		return nil, err
	}
	return v, nil
}
