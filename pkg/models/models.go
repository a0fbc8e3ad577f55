package models

import (
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum/common"
)

// UnknownCollectionName is shown for contracts with no cached name.
const UnknownCollectionName = "Unknown Collection"

// ConnectionState holds the wallet connection status.
type ConnectionState struct {
	Connected bool   `json:"connected"`
	Address   string `json:"address"`
}

// ContractInfo holds display info for an NFT contract.
type ContractInfo struct {
	Name    string `json:"name"`
	IconURI string `json:"icon_uri"`
}

// CollectionInfo is the derived view of a ContractInfo handed to the UI.
type CollectionInfo struct {
	Name    string `json:"name"`
	IconURL string `json:"icon_url"`
}

// TokenInfo contains fungible token metadata.
type TokenInfo struct {
	Name     string `json:"name"`
	Symbol   string `json:"symbol"`
	Decimals int    `json:"decimals"`
}

// TokenKey identifies a single token of an NFT contract.
type TokenKey struct {
	Contract string
	TokenID  string
}

// NewTokenKey builds a TokenKey from a contract address and token id.
func NewTokenKey(contract string, tokenID *big.Int) TokenKey {
	id := "0"
	if tokenID != nil {
		id = tokenID.String()
	}
	return TokenKey{Contract: NormalizeAddress(contract), TokenID: id}
}

// NormalizeAddress returns the checksummed form of a hex address.
// Anything that is not a hex address is only trimmed.
func NormalizeAddress(addr string) string {
	addr = strings.TrimSpace(addr)
	if common.IsHexAddress(addr) {
		return common.HexToAddress(addr).Hex()
	}
	return addr
}

// NFTMetadata is the JSON document a tokenURI points at.
type NFTMetadata struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Image       string         `json:"image"`
	Attributes  []NFTAttribute `json:"attributes"`
}

// NFTAttribute is a single trait of an NFT.
type NFTAttribute struct {
	TraitType string `json:"trait_type"`
	Value     any    `json:"value"`
}

// RPCResult holds test results for the RPC endpoint.
type RPCResult struct {
	URL     string `json:"url"`
	Status  string `json:"status"` // "ok" or "error"
	ChainID int64  `json:"chain_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

// TestReport holds the results of the configuration test.
type TestReport struct {
	ConfigPath      string    `json:"config_path"`
	ValidStructure  bool      `json:"valid_structure"`
	StructureErrors []string  `json:"structure_errors,omitempty"`
	RPC             RPCResult `json:"rpc"`
	MarketDeployed  bool      `json:"market_deployed"`
	MarketError     string    `json:"market_error,omitempty"`
	OrderCount      int       `json:"order_count"`
	WalletAvailable bool      `json:"wallet_available"`
	WalletAccounts  []string  `json:"wallet_accounts,omitempty"`
	WalletError     string    `json:"wallet_error,omitempty"`
}
