package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/bloco/wallethub/libs/httpx"
	"github.com/bloco/wallethub/services/ledger-service/internal/domain"
	"github.com/bloco/wallethub/services/ledger-service/internal/usecase"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LedgerService is the subset of usecase.Service the HTTP layer drives.
type LedgerService interface {
	AddNetwork(ctx context.Context, in usecase.AddNetworkInput) (*domain.Network, error)
	ChangeNetworkStatus(ctx context.Context, correlationID string, id uuid.UUID, status domain.NetworkStatus) (*domain.Network, error)
	CreateToken(ctx context.Context, in usecase.CreateTokenInput) (*domain.Token, error)
	CreateTransaction(ctx context.Context, in usecase.CreateTransactionInput) (*domain.Transaction, error)
	ConfirmTransaction(ctx context.Context, in usecase.ConfirmTransactionInput) (*domain.Transaction, error)
	FailTransaction(ctx context.Context, correlationID string, id uuid.UUID, reason string) (*domain.Transaction, error)
	CreateVaultConfig(ctx context.Context, in usecase.CreateVaultConfigInput) (*domain.VaultConfig, error)
	ChangeVaultStatus(ctx context.Context, correlationID string, id uuid.UUID, active bool) (*domain.VaultConfig, error)
}

// LedgerHandler maps ledger commands onto use cases. The request's
// correlation id (see httpx.WithCorrelationID) is stamped on every event the
// command raises.
type LedgerHandler struct {
	svc    LedgerService
	logger *slog.Logger
}

func NewLedgerHandler(svc LedgerService, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{svc: svc, logger: logger}
}

func (h *LedgerHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/networks", h.AddNetwork)
	mux.HandleFunc("POST /api/v1/networks/{id}/status", h.ChangeNetworkStatus)
	mux.HandleFunc("POST /api/v1/tokens", h.CreateToken)
	mux.HandleFunc("POST /api/v1/transactions", h.CreateTransaction)
	mux.HandleFunc("POST /api/v1/transactions/{id}/confirm", h.ConfirmTransaction)
	mux.HandleFunc("POST /api/v1/transactions/{id}/fail", h.FailTransaction)
	mux.HandleFunc("POST /api/v1/vaults", h.CreateVaultConfig)
	mux.HandleFunc("POST /api/v1/vaults/{id}/status", h.ChangeVaultStatus)
}

type networkRequest struct {
	Name        string `json:"name"`
	ChainID     string `json:"chain_id"`
	RPCURL      string `json:"rpc_url"`
	ExplorerURL string `json:"explorer_url"`
}

type networkResponse struct {
	ID          uuid.UUID `json:"id"`
	Name        string    `json:"name"`
	ChainID     string    `json:"chain_id"`
	RPCURL      string    `json:"rpc_url"`
	ExplorerURL string    `json:"explorer_url"`
	Status      string    `json:"status"`
}

func toNetworkResponse(n *domain.Network) networkResponse {
	return networkResponse{
		ID:          n.ID(),
		Name:        n.Name,
		ChainID:     n.ChainID,
		RPCURL:      n.RPCURL,
		ExplorerURL: n.ExplorerURL,
		Status:      string(n.Status),
	}
}

func (h *LedgerHandler) AddNetwork(w http.ResponseWriter, r *http.Request) {
	var req networkRequest
	if !decodeBody(w, r, &req) {
		return
	}
	n, err := h.svc.AddNetwork(r.Context(), usecase.AddNetworkInput{
		CorrelationID: httpx.CorrelationIDFromContext(r.Context()),
		Name:          req.Name,
		ChainID:       req.ChainID,
		RPCURL:        req.RPCURL,
		ExplorerURL:   req.ExplorerURL,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toNetworkResponse(n))
}

type statusRequest struct {
	Status string `json:"status"`
}

func (h *LedgerHandler) ChangeNetworkStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req statusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	status, err := domain.ParseNetworkStatus(req.Status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	n, err := h.svc.ChangeNetworkStatus(r.Context(), httpx.CorrelationIDFromContext(r.Context()), id, status)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toNetworkResponse(n))
}

type tokenRequest struct {
	NetworkID       uuid.UUID `json:"network_id"`
	Name            string    `json:"name"`
	Symbol          string    `json:"symbol"`
	Decimals        int       `json:"decimals"`
	Type            string    `json:"type"`
	ContractAddress string    `json:"contract_address"`
}

type tokenResponse struct {
	ID              uuid.UUID `json:"id"`
	NetworkID       uuid.UUID `json:"network_id"`
	Name            string    `json:"name"`
	Symbol          string    `json:"symbol"`
	Decimals        int       `json:"decimals"`
	Type            string    `json:"type"`
	ContractAddress string    `json:"contract_address,omitempty"`
}

func (h *LedgerHandler) CreateToken(w http.ResponseWriter, r *http.Request) {
	var req tokenRequest
	if !decodeBody(w, r, &req) {
		return
	}
	typ, err := domain.ParseTokenType(req.Type)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	t, err := h.svc.CreateToken(r.Context(), usecase.CreateTokenInput{
		CorrelationID:   httpx.CorrelationIDFromContext(r.Context()),
		NetworkID:       req.NetworkID,
		Name:            req.Name,
		Symbol:          req.Symbol,
		Decimals:        req.Decimals,
		Type:            typ,
		ContractAddress: req.ContractAddress,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, tokenResponse{
		ID:              t.ID(),
		NetworkID:       t.NetworkID,
		Name:            t.Name,
		Symbol:          t.Symbol,
		Decimals:        t.Decimals,
		Type:            string(t.Type),
		ContractAddress: t.ContractAddress,
	})
}

type transactionRequest struct {
	NetworkID   uuid.UUID           `json:"network_id"`
	Hash        string              `json:"hash"`
	FromAddress string              `json:"from_address"`
	ToAddress   string              `json:"to_address"`
	Value       decimal.Decimal     `json:"value"`
	Data        string              `json:"data"`
	GasPrice    decimal.NullDecimal `json:"gas_price"`
	GasLimit    decimal.NullDecimal `json:"gas_limit"`
}

type transactionResponse struct {
	ID          uuid.UUID           `json:"id"`
	NetworkID   uuid.UUID           `json:"network_id"`
	Hash        string              `json:"hash"`
	FromAddress string              `json:"from_address"`
	ToAddress   string              `json:"to_address"`
	Value       decimal.Decimal     `json:"value"`
	GasPrice    decimal.NullDecimal `json:"gas_price"`
	GasLimit    decimal.NullDecimal `json:"gas_limit"`
	GasUsed     decimal.NullDecimal `json:"gas_used"`
	BlockNumber *int64              `json:"block_number,omitempty"`
	BlockHash   string              `json:"block_hash,omitempty"`
	Status      string              `json:"status"`
	FailReason  string              `json:"fail_reason,omitempty"`
}

func toTransactionResponse(t *domain.Transaction) transactionResponse {
	return transactionResponse{
		ID:          t.ID(),
		NetworkID:   t.NetworkID,
		Hash:        t.Hash,
		FromAddress: t.FromAddress,
		ToAddress:   t.ToAddress,
		Value:       t.Value,
		GasPrice:    t.GasPrice,
		GasLimit:    t.GasLimit,
		GasUsed:     t.GasUsed,
		BlockNumber: t.BlockNumber,
		BlockHash:   t.BlockHash,
		Status:      string(t.Status),
		FailReason:  t.FailReason,
	}
}

func (h *LedgerHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req transactionRequest
	if !decodeBody(w, r, &req) {
		return
	}
	t, err := h.svc.CreateTransaction(r.Context(), usecase.CreateTransactionInput{
		CorrelationID: httpx.CorrelationIDFromContext(r.Context()),
		NetworkID:     req.NetworkID,
		Hash:          req.Hash,
		FromAddress:   req.FromAddress,
		ToAddress:     req.ToAddress,
		Value:         req.Value,
		Data:          req.Data,
		GasPrice:      req.GasPrice,
		GasLimit:      req.GasLimit,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTransactionResponse(t))
}

type confirmRequest struct {
	BlockNumber int64           `json:"block_number"`
	BlockHash   string          `json:"block_hash"`
	GasUsed     decimal.Decimal `json:"gas_used"`
}

func (h *LedgerHandler) ConfirmTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req confirmRequest
	if !decodeBody(w, r, &req) {
		return
	}
	t, err := h.svc.ConfirmTransaction(r.Context(), usecase.ConfirmTransactionInput{
		CorrelationID: httpx.CorrelationIDFromContext(r.Context()),
		TransactionID: id,
		BlockNumber:   req.BlockNumber,
		BlockHash:     req.BlockHash,
		GasUsed:       req.GasUsed,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}

type failRequest struct {
	Reason string `json:"reason"`
}

func (h *LedgerHandler) FailTransaction(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req failRequest
	if !decodeBody(w, r, &req) {
		return
	}
	t, err := h.svc.FailTransaction(r.Context(), httpx.CorrelationIDFromContext(r.Context()), id, req.Reason)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toTransactionResponse(t))
}

type vaultRequest struct {
	Name       string            `json:"name"`
	Type       string            `json:"type"`
	Parameters map[string]string `json:"parameters"`
}

type vaultResponse struct {
	ID     uuid.UUID `json:"id"`
	Name   string    `json:"name"`
	Type   string    `json:"type"`
	Status string    `json:"status"`
}

func toVaultResponse(v *domain.VaultConfig) vaultResponse {
	// Parameters may hold credentials and are never echoed.
	return vaultResponse{ID: v.ID(), Name: v.Name, Type: string(v.Type), Status: string(v.Status)}
}

func (h *LedgerHandler) CreateVaultConfig(w http.ResponseWriter, r *http.Request) {
	var req vaultRequest
	if !decodeBody(w, r, &req) {
		return
	}
	typ, err := domain.ParseVaultType(req.Type)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	v, err := h.svc.CreateVaultConfig(r.Context(), usecase.CreateVaultConfigInput{
		CorrelationID: httpx.CorrelationIDFromContext(r.Context()),
		Name:          req.Name,
		Type:          typ,
		Parameters:    req.Parameters,
	})
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toVaultResponse(v))
}

type vaultStatusRequest struct {
	Active bool `json:"active"`
}

func (h *LedgerHandler) ChangeVaultStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req vaultStatusRequest
	if !decodeBody(w, r, &req) {
		return
	}
	v, err := h.svc.ChangeVaultStatus(r.Context(), httpx.CorrelationIDFromContext(r.Context()), id, req.Active)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toVaultResponse(v))
}

func decodeBody(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		http.Error(w, "invalid json body", http.StatusBadRequest)
		return false
	}
	return true
}

func pathID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(r.PathValue("id")))
	if err != nil {
		http.Error(w, "invalid id", http.StatusBadRequest)
		return uuid.Nil, false
	}
	return id, true
}

// writeError answers business-rule violations with their message and hides
// infrastructure failures behind a 500.
func (h *LedgerHandler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var status int
	switch {
	case errors.Is(err, domain.ErrValidation):
		status = http.StatusBadRequest
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrConflict):
		status = http.StatusConflict
	case errors.Is(err, domain.ErrInvalidState):
		status = http.StatusUnprocessableEntity
	default:
		h.logger.Error("ledger command failed",
			"err", err,
			"path", r.URL.Path,
			"correlation_id", httpx.CorrelationIDFromContext(r.Context()),
		)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
