package storage

import (
	"errors"

	"github.com/bloco/wallethub/services/ledger-service/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const (
	pgUniqueViolation     = "23505"
	pgForeignKeyViolation = "23503"
)

var constraintMessages = map[string]string{
	"networks_pkey":                 "network already exists",
	"networks_chain_id_key":         "chain id already registered",
	"tokens_pkey":                   "token already exists",
	"tokens_network_contract_key":   "token contract already registered on this network",
	"tokens_network_native_key":     "network already has a native token",
	"transactions_pkey":             "transaction already exists",
	"transactions_network_hash_key": "transaction hash already recorded on this network",
	"vault_configs_pkey":            "vault config already exists",
}

// translate maps driver errors onto domain error kinds. Anything it does not
// recognize is returned unchanged and treated as an infrastructure failure.
func translate(err error, what string) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.NotFoundf("%s", what)
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation:
			if msg, ok := constraintMessages[pgErr.ConstraintName]; ok {
				return domain.Conflictf("%s", msg)
			}
			return domain.Conflictf("%s conflicts with an existing row", what)
		case pgForeignKeyViolation:
			return domain.NotFoundf("%s references a missing row", what)
		}
	}
	return err
}
