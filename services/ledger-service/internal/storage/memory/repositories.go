package memory

import (
	"context"
	"maps"
	"strings"

	"github.com/bloco/wallethub/services/ledger-service/internal/domain"
	"github.com/google/uuid"
)

type networkRepo struct{ st *state }

func (r networkRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Network, error) {
	n, ok := r.st.networks[id]
	if !ok {
		return nil, domain.NotFoundf("network %s", id)
	}
	return domain.RehydrateNetwork(id, n.Name, n.ChainID, n.RPCURL, n.ExplorerURL, n.Status), nil
}

func (r networkRepo) Insert(ctx context.Context, n *domain.Network) error {
	if _, ok := r.st.networks[n.ID()]; ok {
		return domain.Conflictf("network %s already exists", n.ID())
	}
	for _, other := range r.st.networks {
		if other.ChainID == n.ChainID {
			return domain.Conflictf("chain id %s already registered", n.ChainID)
		}
	}
	r.st.networks[n.ID()] = *domain.RehydrateNetwork(n.ID(), n.Name, n.ChainID, n.RPCURL, n.ExplorerURL, n.Status)
	return nil
}

func (r networkRepo) Update(ctx context.Context, n *domain.Network) error {
	if _, ok := r.st.networks[n.ID()]; !ok {
		return domain.NotFoundf("network %s", n.ID())
	}
	r.st.networks[n.ID()] = *domain.RehydrateNetwork(n.ID(), n.Name, n.ChainID, n.RPCURL, n.ExplorerURL, n.Status)
	return nil
}

type tokenRepo struct{ st *state }

func (r tokenRepo) Insert(ctx context.Context, t *domain.Token) error {
	if _, ok := r.st.tokens[t.ID()]; ok {
		return domain.Conflictf("token %s already exists", t.ID())
	}
	for _, other := range r.st.tokens {
		if other.NetworkID != t.NetworkID {
			continue
		}
		if t.IsNative() && other.IsNative() {
			return domain.Conflictf("network %s already has a native token", t.NetworkID)
		}
		if !t.IsNative() && strings.EqualFold(other.ContractAddress, t.ContractAddress) {
			return domain.Conflictf("token contract %s already registered on network %s", t.ContractAddress, t.NetworkID)
		}
	}
	r.st.tokens[t.ID()] = *domain.RehydrateToken(t.ID(), t.NetworkID, t.Name, t.Symbol, t.Decimals, t.Type, t.ContractAddress)
	return nil
}

type transactionRepo struct{ st *state }

func (r transactionRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	t, ok := r.st.transactions[id]
	if !ok {
		return nil, domain.NotFoundf("transaction %s", id)
	}
	return domain.RehydrateTransaction(t), nil
}

func (r transactionRepo) Insert(ctx context.Context, t *domain.Transaction) error {
	if _, ok := r.st.transactions[t.ID()]; ok {
		return domain.Conflictf("transaction %s already exists", t.ID())
	}
	for _, other := range r.st.transactions {
		if other.NetworkID == t.NetworkID && other.Hash == t.Hash {
			return domain.Conflictf("transaction hash %s already recorded on network %s", t.Hash, t.NetworkID)
		}
	}
	r.st.transactions[t.ID()] = snapshotTransaction(t)
	return nil
}

func (r transactionRepo) Update(ctx context.Context, t *domain.Transaction) error {
	if _, ok := r.st.transactions[t.ID()]; !ok {
		return domain.NotFoundf("transaction %s", t.ID())
	}
	r.st.transactions[t.ID()] = snapshotTransaction(t)
	return nil
}

func snapshotTransaction(t *domain.Transaction) domain.Transaction {
	snap := *domain.RehydrateTransaction(*t)
	if t.BlockNumber != nil {
		bn := *t.BlockNumber
		snap.BlockNumber = &bn
	}
	return snap
}

type vaultRepo struct{ st *state }

func (r vaultRepo) Get(ctx context.Context, id uuid.UUID) (*domain.VaultConfig, error) {
	v, ok := r.st.vaults[id]
	if !ok {
		return nil, domain.NotFoundf("vault %s", id)
	}
	return domain.RehydrateVaultConfig(id, v.Name, v.Type, v.Parameters, v.Status), nil
}

func (r vaultRepo) Insert(ctx context.Context, v *domain.VaultConfig) error {
	if _, ok := r.st.vaults[v.ID()]; ok {
		return domain.Conflictf("vault %s already exists", v.ID())
	}
	r.st.vaults[v.ID()] = *domain.RehydrateVaultConfig(v.ID(), v.Name, v.Type, maps.Clone(v.Parameters), v.Status)
	return nil
}

func (r vaultRepo) Update(ctx context.Context, v *domain.VaultConfig) error {
	if _, ok := r.st.vaults[v.ID()]; !ok {
		return domain.NotFoundf("vault %s", v.ID())
	}
	r.st.vaults[v.ID()] = *domain.RehydrateVaultConfig(v.ID(), v.Name, v.Type, v.Parameters, v.Status)
	return nil
}
