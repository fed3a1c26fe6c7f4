package domain

import (
	"strings"

	"github.com/google/uuid"
)

type TokenType string

const (
	TokenNative  TokenType = "NATIVE"
	TokenERC20   TokenType = "ERC20"
	TokenERC721  TokenType = "ERC721"
	TokenERC1155 TokenType = "ERC1155"
)

func ParseTokenType(raw string) (TokenType, error) {
	switch t := TokenType(strings.ToUpper(strings.TrimSpace(raw))); t {
	case TokenNative, TokenERC20, TokenERC721, TokenERC1155:
		return t, nil
	default:
		return "", Validationf("unknown token type %q", raw)
	}
}

const maxTokenDecimals = 36

// Token is an asset on a network. A non-native token is identified by its
// contract address within its network.
type Token struct {
	AggregateRoot
	NetworkID       uuid.UUID
	ContractAddress string
	Name            string
	Symbol          string
	Decimals        int
	Type            TokenType
}

func NewToken(id uuid.UUID, correlationID string, networkID uuid.UUID, name, symbol string, decimals int, typ TokenType, contractAddress string) (*Token, error) {
	name = strings.TrimSpace(name)
	symbol = strings.TrimSpace(symbol)
	contractAddress = strings.TrimSpace(contractAddress)

	switch {
	case networkID == uuid.Nil:
		return nil, Validationf("network id must be provided")
	case name == "":
		return nil, Validationf("token name must be provided")
	case symbol == "":
		return nil, Validationf("token symbol must be provided")
	case decimals < 0 || decimals > maxTokenDecimals:
		return nil, Validationf("token decimals must be between 0 and %d", maxTokenDecimals)
	case typ != TokenNative && contractAddress == "":
		return nil, Validationf("contract address must be provided for %s tokens", typ)
	}
	if _, err := ParseTokenType(string(typ)); err != nil {
		return nil, err
	}

	t := RehydrateToken(id, networkID, name, symbol, decimals, typ, contractAddress)
	t.Append(TokenCreated{
		Metadata:        NewMetadata(correlationID),
		TokenID:         id,
		NetworkID:       networkID,
		ContractAddress: contractAddress,
		Symbol:          symbol,
		TokenType:       typ,
	})
	return t, nil
}

func RehydrateToken(id, networkID uuid.UUID, name, symbol string, decimals int, typ TokenType, contractAddress string) *Token {
	return &Token{
		AggregateRoot:   NewAggregateRoot(id),
		NetworkID:       networkID,
		ContractAddress: contractAddress,
		Name:            name,
		Symbol:          symbol,
		Decimals:        decimals,
		Type:            typ,
	}
}

func (t *Token) AggregateType() string { return "token" }

func (t *Token) IsNative() bool { return t.Type == TokenNative }
