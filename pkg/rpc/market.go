package rpc

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"nftmarket/pkg/models"

	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/ethclient"
)

const marketABIJSON = `[
	{"type":"function","name":"getOrders","stateMutability":"view","inputs":[],
	 "outputs":[{"name":"","type":"tuple[]","components":[
		{"name":"nft","type":"address"},
		{"name":"tokenId","type":"uint256"},
		{"name":"token","type":"address"},
		{"name":"price","type":"uint256"},
		{"name":"seller","type":"address"},
		{"name":"status","type":"uint256"}
	 ]}]}
]`

var marketABI = mustParseABI(marketABIJSON)

// rawOrder mirrors the getOrders tuple. Field order matters for unpacking.
type rawOrder struct {
	Nft     common.Address `abi:"nft"`
	TokenId *big.Int       `abi:"tokenId"`
	Token   common.Address `abi:"token"`
	Price   *big.Int       `abi:"price"`
	Seller  common.Address `abi:"seller"`
	Status  *big.Int       `abi:"status"`
}

// MarketClient reads orders from the marketplace contract.
type MarketClient struct {
	client  *ethclient.Client
	address common.Address
	abi     abi.ABI

	mu          sync.RWMutex
	chainID     *big.Int
	initialized bool
}

// NewMarketClient connects to rpcURL for the market contract at address.
func NewMarketClient(rpcURL, address string) (*MarketClient, error) {
	addr, err := parseContractAddress(address)
	if err != nil {
		return nil, err
	}
	client, err := ethclient.Dial(rpcURL)
	if err != nil {
		return nil, fmt.Errorf("dial %s: %w", rpcURL, err)
	}
	return &MarketClient{client: client, address: addr, abi: marketABI}, nil
}

// Close releases the RPC connection.
func (c *MarketClient) Close() {
	c.client.Close()
}

// Address returns the market contract address.
func (c *MarketClient) Address() common.Address {
	return c.address
}

// Eth exposes the underlying client so metadata readers can share it.
func (c *MarketClient) Eth() *ethclient.Client {
	return c.client
}

// FetchOrders returns every order the contract knows about.
func (c *MarketClient) FetchOrders(ctx context.Context) ([]models.Order, error) {
	values, err := callMethod(ctx, c.client, c.abi, c.address, "getOrders")
	if err != nil {
		return nil, err
	}

	raw := *abi.ConvertType(values[0], new([]rawOrder)).(*[]rawOrder)
	orders := make([]models.Order, 0, len(raw))
	for i, r := range raw {
		orders = append(orders, toOrder(uint64(i), r))
	}
	return orders, nil
}

func toOrder(id uint64, r rawOrder) models.Order {
	status := models.OrderStatusInactive
	if r.Status != nil && r.Status.IsUint64() && r.Status.Uint64() <= 255 {
		status = models.OrderStatus(r.Status.Uint64())
	}
	return models.Order{
		ID:                 id,
		NFTContractAddress: r.Nft.Hex(),
		TokenID:            r.TokenId,
		TokenAddress:       r.Token.Hex(),
		Price:              r.Price,
		Seller:             r.Seller.Hex(),
		Status:             status,
	}
}

// InitContract checks that the market contract is deployed on the
// connected chain and records the chain id. The client is read-only, so
// withSigner is ignored.
func (c *MarketClient) InitContract(ctx context.Context, withSigner bool) error {
	chainID, err := c.client.ChainID(ctx)
	if err != nil {
		return fmt.Errorf("chain id: %w", err)
	}
	code, err := c.client.CodeAt(ctx, c.address, nil)
	if err != nil {
		return fmt.Errorf("code at %s: %w", c.address.Hex(), err)
	}
	if len(code) == 0 {
		return fmt.Errorf("%w: %s", ErrNoContractCode, c.address.Hex())
	}

	c.mu.Lock()
	c.chainID = chainID
	c.initialized = true
	c.mu.Unlock()
	return nil
}

// ChainID returns the chain id recorded by InitContract, or nil.
func (c *MarketClient) ChainID() *big.Int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.chainID == nil {
		return nil
	}
	return new(big.Int).Set(c.chainID)
}

// Initialized reports whether InitContract has succeeded.
func (c *MarketClient) Initialized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initialized
}
