package rpc

import (
	"context"
	"fmt"
	"math/big"

	"nftmarket/pkg/models"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

const nftABIJSON = `[
	{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"tokenIconURI","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"tokenURI","stateMutability":"view","inputs":[{"name":"tokenId","type":"uint256"}],"outputs":[{"name":"","type":"string"}]}
]`

const erc20ABIJSON = `[
	{"type":"function","name":"name","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"symbol","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"string"}]},
	{"type":"function","name":"decimals","stateMutability":"view","inputs":[],"outputs":[{"name":"","type":"uint8"}]}
]`

var (
	nftABI   = mustParseABI(nftABIJSON)
	erc20ABI = mustParseABI(erc20ABIJSON)
)

// CollectionReader reads ERC-721 and ERC-20 metadata via eth_call.
type CollectionReader struct {
	client *ethclient.Client
}

// NewCollectionReader wraps an existing client.
func NewCollectionReader(client *ethclient.Client) *CollectionReader {
	return &CollectionReader{client: client}
}

func (r *CollectionReader) callString(ctx context.Context, contractABI abi.ABI, address, method string, args ...any) (string, error) {
	addr, err := parseContractAddress(address)
	if err != nil {
		return "", err
	}
	values, err := callMethod(ctx, r.client, contractABI, addr, method, args...)
	if err != nil {
		return "", err
	}
	s, ok := values[0].(string)
	if !ok {
		return "", fmt.Errorf("%s: unexpected result type %T", method, values[0])
	}
	return s, nil
}

// CollectionName returns the ERC-721 name().
func (r *CollectionReader) CollectionName(ctx context.Context, address string) (string, error) {
	return r.callString(ctx, nftABI, address, "name")
}

// CollectionIconURI returns the marketplace-specific tokenIconURI().
func (r *CollectionReader) CollectionIconURI(ctx context.Context, address string) (string, error) {
	return r.callString(ctx, nftABI, address, "tokenIconURI")
}

// TokenURI returns the ERC-721 tokenURI(tokenID).
func (r *CollectionReader) TokenURI(ctx context.Context, address string, tokenID *big.Int) (string, error) {
	if tokenID == nil {
		tokenID = new(big.Int)
	}
	return r.callString(ctx, nftABI, address, "tokenURI", tokenID)
}

// TokenInfo reads name, symbol and decimals of an ERC-20 token. Tokens that
// return bytes32 symbols are handled too.
func (r *CollectionReader) TokenInfo(ctx context.Context, address string) (models.TokenInfo, error) {
	addr, err := parseContractAddress(address)
	if err != nil {
		return models.TokenInfo{}, err
	}

	var info models.TokenInfo
	values, err := callMethod(ctx, r.client, erc20ABI, addr, "decimals")
	if err != nil {
		return models.TokenInfo{}, err
	}
	if d, ok := values[0].(uint8); ok {
		info.Decimals = int(d)
	}

	if info.Symbol, err = r.callRawString(ctx, addr, "symbol"); err != nil {
		return models.TokenInfo{}, err
	}
	if info.Name, err = r.callRawString(ctx, addr, "name"); err != nil {
		return models.TokenInfo{}, err
	}
	return info, nil
}

// callRawString calls a no-argument ERC-20 string getter without unpacking, so
// bytes32 returns decode too.
func (r *CollectionReader) callRawString(ctx context.Context, addr common.Address, method string) (string, error) {
	data, err := erc20ABI.Pack(method)
	if err != nil {
		return "", fmt.Errorf("pack %s: %w", method, err)
	}
	res, err := r.client.CallContract(ctx, ethereum.CallMsg{To: &addr, Data: data}, nil)
	if err != nil {
		return "", fmt.Errorf("call %s: %w", method, err)
	}
	return decodeStringResult(res), nil
}
