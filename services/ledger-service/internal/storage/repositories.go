package storage

import (
	"context"
	"fmt"

	"github.com/bloco/wallethub/services/ledger-service/internal/domain"
	"github.com/google/uuid"
)

type networkRepo struct{ q querier }

func (r networkRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Network, error) {
	var (
		name, chainID, rpcURL, explorerURL string
		status                             domain.NetworkStatus
	)
	err := r.q.QueryRow(ctx, `
		SELECT name, chain_id, rpc_url, explorer_url, status
		FROM networks
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&name, &chainID, &rpcURL, &explorerURL, &status)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("network %s", id))
	}
	return domain.RehydrateNetwork(id, name, chainID, rpcURL, explorerURL, status), nil
}

func (r networkRepo) Insert(ctx context.Context, n *domain.Network) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO networks (id, name, chain_id, rpc_url, explorer_url, status)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, n.ID(), n.Name, n.ChainID, n.RPCURL, n.ExplorerURL, n.Status)
	return translate(err, fmt.Sprintf("network %s", n.ID()))
}

func (r networkRepo) Update(ctx context.Context, n *domain.Network) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE networks
		SET name = $2, rpc_url = $3, explorer_url = $4, status = $5, updated_at = now()
		WHERE id = $1
	`, n.ID(), n.Name, n.RPCURL, n.ExplorerURL, n.Status)
	if err != nil {
		return translate(err, fmt.Sprintf("network %s", n.ID()))
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("network %s", n.ID())
	}
	return nil
}

type tokenRepo struct{ q querier }

func (r tokenRepo) Insert(ctx context.Context, t *domain.Token) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO tokens (id, network_id, contract_address, name, symbol, decimals, token_type)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, t.ID(), t.NetworkID, t.ContractAddress, t.Name, t.Symbol, t.Decimals, t.Type)
	return translate(err, fmt.Sprintf("token %s", t.ID()))
}

type transactionRepo struct{ q querier }

func (r transactionRepo) Get(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	t := domain.Transaction{AggregateRoot: domain.NewAggregateRoot(id)}
	err := r.q.QueryRow(ctx, `
		SELECT network_id, hash, from_address, to_address, value, gas_price, gas_limit, gas_used,
		       data, occurred_at, block_number, block_hash, status, fail_reason
		FROM transactions
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(
		&t.NetworkID, &t.Hash, &t.FromAddress, &t.ToAddress, &t.Value, &t.GasPrice, &t.GasLimit, &t.GasUsed,
		&t.Data, &t.Timestamp, &t.BlockNumber, &t.BlockHash, &t.Status, &t.FailReason,
	)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("transaction %s", id))
	}
	return domain.RehydrateTransaction(t), nil
}

func (r transactionRepo) Insert(ctx context.Context, t *domain.Transaction) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO transactions (
			id, network_id, hash, from_address, to_address, value, gas_price, gas_limit, gas_used,
			data, occurred_at, block_number, block_hash, status, fail_reason
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`, t.ID(), t.NetworkID, t.Hash, t.FromAddress, t.ToAddress, t.Value, t.GasPrice, t.GasLimit, t.GasUsed,
		t.Data, t.Timestamp, t.BlockNumber, t.BlockHash, t.Status, t.FailReason)
	return translate(err, fmt.Sprintf("transaction %s", t.ID()))
}

func (r transactionRepo) Update(ctx context.Context, t *domain.Transaction) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE transactions
		SET gas_price = $2, gas_limit = $3, gas_used = $4, block_number = $5, block_hash = $6,
		    status = $7, fail_reason = $8, updated_at = now()
		WHERE id = $1
	`, t.ID(), t.GasPrice, t.GasLimit, t.GasUsed, t.BlockNumber, t.BlockHash, t.Status, t.FailReason)
	if err != nil {
		return translate(err, fmt.Sprintf("transaction %s", t.ID()))
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("transaction %s", t.ID())
	}
	return nil
}

type vaultRepo struct{ q querier }

func (r vaultRepo) Get(ctx context.Context, id uuid.UUID) (*domain.VaultConfig, error) {
	var (
		name   string
		typ    domain.VaultType
		params map[string]string
		status domain.VaultStatus
	)
	err := r.q.QueryRow(ctx, `
		SELECT name, vault_type, parameters, status
		FROM vault_configs
		WHERE id = $1
		FOR UPDATE
	`, id).Scan(&name, &typ, &params, &status)
	if err != nil {
		return nil, translate(err, fmt.Sprintf("vault config %s", id))
	}
	return domain.RehydrateVaultConfig(id, name, typ, params, status), nil
}

func (r vaultRepo) Insert(ctx context.Context, v *domain.VaultConfig) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO vault_configs (id, name, vault_type, parameters, status)
		VALUES ($1, $2, $3, $4, $5)
	`, v.ID(), v.Name, v.Type, nonNilParams(v.Parameters), v.Status)
	return translate(err, fmt.Sprintf("vault config %s", v.ID()))
}

func (r vaultRepo) Update(ctx context.Context, v *domain.VaultConfig) error {
	tag, err := r.q.Exec(ctx, `
		UPDATE vault_configs
		SET name = $2, parameters = $3, status = $4, updated_at = now()
		WHERE id = $1
	`, v.ID(), v.Name, nonNilParams(v.Parameters), v.Status)
	if err != nil {
		return translate(err, fmt.Sprintf("vault config %s", v.ID()))
	}
	if tag.RowsAffected() == 0 {
		return domain.NotFoundf("vault config %s", v.ID())
	}
	return nil
}

func nonNilParams(p map[string]string) map[string]string {
	if p == nil {
		return map[string]string{}
	}
	return p
}
