package rpc

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

var (
	ErrProviderUnavailable = errors.New("wallet provider not available")
	ErrNoContractCode      = errors.New("no contract code at address")
	ErrInvalidAddress      = errors.New("invalid contract address")
)

// ChainIDTimeout bounds the chain id lookup used by the config test.
var ChainIDTimeout = 10 * time.Second

func mustParseABI(def string) abi.ABI {
	parsed, err := abi.JSON(strings.NewReader(def))
	if err != nil {
		panic(fmt.Sprintf("invalid embedded ABI: %v", err))
	}
	return parsed
}

func parseContractAddress(address string) (common.Address, error) {
	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return common.HexToAddress(address), nil
}

// callMethod packs, calls and unpacks a read-only contract method.
func callMethod(ctx context.Context, client *ethclient.Client, contractABI abi.ABI, to common.Address, method string, args ...any) ([]any, error) {
	data, err := contractABI.Pack(method, args...)
	if err != nil {
		return nil, fmt.Errorf("pack %s: %w", method, err)
	}
	msg := ethereum.CallMsg{To: &to, Data: data}
	result, err := client.CallContract(ctx, msg, nil)
	if err != nil {
		return nil, fmt.Errorf("call %s: %w", method, err)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("call %s: empty result", method)
	}
	values, err := contractABI.Unpack(method, result)
	if err != nil {
		return nil, fmt.Errorf("unpack %s: %w", method, err)
	}
	return values, nil
}

// decodeStringResult handles both ABI strings and legacy bytes32 returns.
func decodeStringResult(res []byte) string {
	if len(res) == 32 {
		return string(bytes.TrimRight(res, "\x00"))
	}
	if len(res) >= 64 {
		word := new(big.Int).SetBytes(res[32:64])
		if !word.IsInt64() {
			return ""
		}
		length := word.Int64()
		if length > 0 && length <= int64(len(res)-64) {
			return string(res[64 : 64+length])
		}
	}
	return ""
}

// FetchChainID dials rpcURL and returns its chain id.
func FetchChainID(rpcURL string) (*big.Int, error) {
	ctx, cancel := context.WithTimeout(context.Background(), ChainIDTimeout)
	defer cancel()

	client, err := ethclient.DialContext(ctx, rpcURL)
	if err != nil {
		return nil, err
	}
	defer client.Close()
	return client.ChainID(ctx)
}
