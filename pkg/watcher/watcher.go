package watcher

import (
	"context"
	"math/big"
	"sync"
	"time"

	"nftmarket/pkg/config"
	"nftmarket/pkg/models"
	"nftmarket/pkg/rpc"
	"nftmarket/pkg/store"
	"nftmarket/pkg/utils"

	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"
)

// maxInFlight caps concurrent metadata lookups per cycle.
const maxInFlight = 8

// MetadataSource defines the interface for fetching collection metadata.
type MetadataSource interface {
	CollectionName(ctx context.Context, address string) (string, error)
	CollectionIconURI(ctx context.Context, address string) (string, error)
	TokenURI(ctx context.Context, address string, tokenID *big.Int) (string, error)
	TokenInfo(ctx context.Context, address string) (models.TokenInfo, error)
	FetchNFTMetadata(ctx context.Context, uri string) (models.NFTMetadata, error)
}

// RealMetadataSource implements MetadataSource using the rpc package.
type RealMetadataSource struct {
	reader *rpc.CollectionReader
}

// NewRealMetadataSource reads metadata through client.
func NewRealMetadataSource(client *ethclient.Client) *RealMetadataSource {
	return &RealMetadataSource{reader: rpc.NewCollectionReader(client)}
}

func (d *RealMetadataSource) CollectionName(ctx context.Context, address string) (string, error) {
	return d.reader.CollectionName(ctx, address)
}

func (d *RealMetadataSource) CollectionIconURI(ctx context.Context, address string) (string, error) {
	return d.reader.CollectionIconURI(ctx, address)
}

func (d *RealMetadataSource) TokenURI(ctx context.Context, address string, tokenID *big.Int) (string, error) {
	return d.reader.TokenURI(ctx, address, tokenID)
}

func (d *RealMetadataSource) TokenInfo(ctx context.Context, address string) (models.TokenInfo, error) {
	return d.reader.TokenInfo(ctx, address)
}

func (d *RealMetadataSource) FetchNFTMetadata(ctx context.Context, uri string) (models.NFTMetadata, error) {
	return rpc.FetchNFTMetadata(ctx, uri)
}

// Watcher keeps the store's order snapshot fresh and fills the metadata
// caches for every collection and token the snapshot mentions.
type Watcher struct {
	store  *store.Store
	source MetadataSource
	config config.Config
	logger *zap.Logger

	stopOnce sync.Once
	stopChan chan struct{}
	trigger  chan struct{}
}

// NewWatcher creates a new Watcher instance. source may be nil, in which
// case only orders are refreshed.
func NewWatcher(s *store.Store, source MetadataSource, cfg config.Config, logger *zap.Logger) *Watcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Watcher{
		store:    s,
		source:   source,
		config:   cfg,
		logger:   logger,
		stopChan: make(chan struct{}),
		trigger:  make(chan struct{}, 1),
	}
}

// Start begins the sync loop.
func (w *Watcher) Start(ctx context.Context) {
	go w.pollingLoop(ctx)
}

// Stop stops the sync loop.
func (w *Watcher) Stop() {
	w.stopOnce.Do(func() { close(w.stopChan) })
}

// Trigger requests an immediate sync cycle.
func (w *Watcher) Trigger() {
	select {
	case w.trigger <- struct{}{}:
	default:
	}
}

func (w *Watcher) pollingLoop(ctx context.Context) {
	w.loadTokenInfo(ctx)
	w.syncOnce(ctx)

	interval := w.config.RefreshInterval()
	if interval <= 0 {
		interval = 30 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.syncOnce(ctx)
		case <-w.trigger:
			w.syncOnce(ctx)
		case <-w.stopChan:
			return
		case <-ctx.Done():
			return
		}
	}
}

func (w *Watcher) cycleContext(ctx context.Context) (context.Context, context.CancelFunc) {
	if t := w.config.RequestTimeout(); t > 0 {
		return context.WithTimeout(ctx, t)
	}
	return context.WithCancel(ctx)
}

// syncOnce refreshes orders and then enriches metadata. A failed refresh
// skips enrichment; the previous snapshot stays in place.
func (w *Watcher) syncOnce(ctx context.Context) {
	cctx, cancel := w.cycleContext(ctx)
	defer cancel()

	orders, err := w.store.Refresh(cctx)
	if err != nil {
		w.logger.Warn("refreshing orders failed", zap.Error(err))
		return
	}
	w.logger.Debug("orders refreshed", zap.Int("count", len(orders)))

	if w.source != nil {
		w.enrich(cctx, orders)
	}
}

func (w *Watcher) loadTokenInfo(ctx context.Context) {
	if w.source == nil || w.config.RexAddress == "" {
		return
	}
	cctx, cancel := w.cycleContext(ctx)
	defer cancel()

	info, err := w.source.TokenInfo(cctx, w.config.RexAddress)
	if err != nil {
		w.logger.Warn("loading token info failed", zap.String("address", w.config.RexAddress), zap.Error(err))
		return
	}
	w.store.SetTokenInfo(w.config.RexAddress, info)
}

func (w *Watcher) enrich(ctx context.Context, orders []models.Order) {
	var wg sync.WaitGroup
	sem := make(chan struct{}, maxInFlight)
	run := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			defer func() { <-sem }()
			fn()
		}()
	}

	seenContracts := make(map[string]bool)
	seenTokens := make(map[models.TokenKey]bool)
	for _, o := range orders {
		addr := o.NFTContractAddress
		if !seenContracts[addr] {
			seenContracts[addr] = true
			if info, _ := w.store.ContractInfo(addr); info.Name == "" || info.IconURI == "" {
				run(func() { w.loadCollection(ctx, addr, info) })
			}
		}

		key := models.NewTokenKey(addr, o.TokenID)
		if seenTokens[key] {
			continue
		}
		seenTokens[key] = true
		if w.store.TokenImage(key, "") == "" {
			tokenID := o.TokenID
			run(func() { w.loadToken(ctx, key, tokenID) })
		}
	}
	wg.Wait()
}

// loadCollection fills the fields of cached that are still empty.
func (w *Watcher) loadCollection(ctx context.Context, address string, cached models.ContractInfo) {
	if cached.Name == "" {
		name, err := w.source.CollectionName(ctx, address)
		if err != nil {
			w.logger.Warn("reading collection name failed", zap.String("address", address), zap.Error(err))
		} else {
			w.store.SetContractField(address, store.FieldName, name)
		}
	}
	if cached.IconURI != "" {
		return
	}

	icon, err := w.source.CollectionIconURI(ctx, address)
	if err != nil {
		w.logger.Debug("reading collection icon failed", zap.String("address", address), zap.Error(err))
		return
	}
	w.store.SetContractField(address, store.FieldIconURI, utils.ResolveURI(icon, w.config.IPFSGateway))
}

// loadToken resolves the token image, reusing a cached tokenURI.
func (w *Watcher) loadToken(ctx context.Context, key models.TokenKey, tokenID *big.Int) {
	uri := w.store.TokenURI(key, "")
	if uri == "" {
		var err error
		uri, err = w.source.TokenURI(ctx, key.Contract, tokenID)
		if err != nil {
			w.logger.Warn("reading token uri failed",
				zap.String("address", key.Contract),
				zap.String("token_id", key.TokenID),
				zap.Error(err))
			return
		}
		w.store.SetTokenURI(key, uri)
	}

	meta, err := w.source.FetchNFTMetadata(ctx, utils.ResolveURI(uri, w.config.IPFSGateway))
	if err != nil {
		w.logger.Warn("fetching token metadata failed",
			zap.String("address", key.Contract),
			zap.String("token_id", key.TokenID),
			zap.Error(err))
		return
	}
	if meta.Image != "" {
		w.store.SetTokenImage(key, utils.ResolveURI(meta.Image, w.config.IPFSGateway))
	}
}
