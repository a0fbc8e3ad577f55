// Package store holds the client-side marketplace state: wallet connection,
// metadata caches, the order snapshot and the views derived from them.
package store

import (
	"context"
	"sync"

	"nftmarket/pkg/models"

	"go.uber.org/zap"
)

// WalletProvider is the wallet the user connects with.
type WalletProvider interface {
	// Available reports whether a wallet is present at all.
	Available() bool
	// ListAccounts returns already-authorized accounts without prompting.
	ListAccounts(ctx context.Context) ([]string, error)
	// RequestAccounts asks the user to authorize accounts. It may be rejected.
	RequestAccounts(ctx context.Context) ([]string, error)
	// SignerAddress returns the address of the active signer.
	SignerAddress(ctx context.Context) (string, error)
}

// ContractClient talks to the marketplace contract.
type ContractClient interface {
	FetchOrders(ctx context.Context) ([]models.Order, error)
	InitContract(ctx context.Context, withSigner bool) error
}

// Store is the state container. Every entity sits behind its own lock and
// every write is committed in one step, so readers never see half of a
// transition.
type Store struct {
	provider WalletProvider
	client   ContractClient
	logger   *zap.Logger

	connMu sync.RWMutex
	conn   models.ConnectionState

	contractsMu sync.RWMutex
	contracts   map[string]models.ContractInfo

	imagesMu sync.RWMutex
	images   map[models.TokenKey]string

	urisMu sync.RWMutex
	uris   map[models.TokenKey]string

	tokenInfoMu sync.RWMutex
	tokenInfo   map[string]models.TokenInfo

	ordersMu sync.RWMutex
	orders   []models.Order

	subMu       sync.RWMutex
	subscribers []Subscriber
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger used for degraded collaborator failures.
func WithLogger(l *zap.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// New creates a Store. provider may be nil when no wallet is installed.
func New(provider WalletProvider, client ContractClient, opts ...Option) *Store {
	s := &Store{
		provider:  provider,
		client:    client,
		logger:    zap.NewNop(),
		contracts: make(map[string]models.ContractInfo),
		images:    make(map[models.TokenKey]string),
		uris:      make(map[models.TokenKey]string),
		tokenInfo: make(map[string]models.TokenInfo),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Subscribe adds a new subscriber and returns a channel to receive events.
func (s *Store) Subscribe() Subscriber {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	ch := make(Subscriber, 100)
	s.subscribers = append(s.subscribers, ch)
	return ch
}

// Unsubscribe removes a subscriber and closes its channel.
func (s *Store) Unsubscribe(ch Subscriber) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for i, sub := range s.subscribers {
		if sub == ch {
			s.subscribers = append(s.subscribers[:i], s.subscribers[i+1:]...)
			close(ch)
			break
		}
	}
}

// Notify broadcasts an event to all subscribers. Slow subscribers miss it.
func (s *Store) Notify(event Event) {
	s.subMu.RLock()
	defer s.subMu.RUnlock()
	for _, sub := range s.subscribers {
		select {
		case sub <- event:
		default:
		}
	}
}
