package rpc

import (
	"context"
	"fmt"
	"strings"
	"sync"

	gethrpc "github.com/ethereum/go-ethereum/rpc"
)

// WalletClient is a wallet provider reached over JSON-RPC, e.g. a local
// signer or a node with unlocked accounts. An empty URL means no wallet.
type WalletClient struct {
	url string

	mu     sync.Mutex
	client *gethrpc.Client
}

// NewWalletClient creates a wallet provider for url. It dials lazily.
func NewWalletClient(url string) *WalletClient {
	return &WalletClient{url: strings.TrimSpace(url)}
}

// Available reports whether a wallet endpoint is configured.
func (w *WalletClient) Available() bool {
	return w != nil && w.url != ""
}

func (w *WalletClient) conn(ctx context.Context) (*gethrpc.Client, error) {
	if !w.Available() {
		return nil, ErrProviderUnavailable
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.client != nil {
		return w.client, nil
	}
	client, err := gethrpc.DialContext(ctx, w.url)
	if err != nil {
		return nil, fmt.Errorf("dial wallet: %w", err)
	}
	w.client = client
	return client, nil
}

func (w *WalletClient) accounts(ctx context.Context, method string) ([]string, error) {
	client, err := w.conn(ctx)
	if err != nil {
		return nil, err
	}
	var accounts []string
	if err := client.CallContext(ctx, &accounts, method); err != nil {
		return nil, fmt.Errorf("%s: %w", method, err)
	}
	return accounts, nil
}

// ListAccounts returns the accounts the wallet has already authorized.
func (w *WalletClient) ListAccounts(ctx context.Context) ([]string, error) {
	return w.accounts(ctx, "eth_accounts")
}

// RequestAccounts asks the wallet to authorize accounts.
func (w *WalletClient) RequestAccounts(ctx context.Context) ([]string, error) {
	return w.accounts(ctx, "eth_requestAccounts")
}

// SignerAddress returns the first authorized account.
func (w *WalletClient) SignerAddress(ctx context.Context) (string, error) {
	accounts, err := w.ListAccounts(ctx)
	if err != nil {
		return "", err
	}
	if len(accounts) == 0 {
		return "", fmt.Errorf("wallet has no authorized account")
	}
	return accounts[0], nil
}

// Close releases the connection, if any.
func (w *WalletClient) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.client != nil {
		w.client.Close()
		w.client = nil
	}
}
