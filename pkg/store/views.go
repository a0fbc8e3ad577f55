package store

import (
	"math/big"
	"sort"
	"strings"

	"nftmarket/pkg/models"
)

// Views are recomputed on every call from a snapshot of the order set.
// They do not lock the metadata caches at the same time, so a view may be
// combined with a cache value written just after the snapshot was taken.

func (s *Store) snapshot() []models.Order {
	s.ordersMu.RLock()
	defer s.ordersMu.RUnlock()
	return s.orders
}

// FloorPrice returns the lowest price among active orders for nftAddress.
// ok is false when the collection has no active order.
func (s *Store) FloorPrice(nftAddress string) (price *big.Int, ok bool) {
	return floorPrice(s.snapshot(), models.NormalizeAddress(nftAddress))
}

func floorPrice(orders []models.Order, nftAddress string) (*big.Int, bool) {
	var floor *big.Int
	for _, o := range orders {
		if o.NFTContractAddress != nftAddress || !o.IsActive() || o.Price == nil {
			continue
		}
		if floor == nil || o.Price.Cmp(floor) < 0 {
			floor = o.Price
		}
	}
	if floor == nil {
		return nil, false
	}
	return new(big.Int).Set(floor), true
}

// FloorPrices returns the floor of every collection with an active order.
func (s *Store) FloorPrices() map[string]*big.Int {
	orders := s.snapshot()
	floors := make(map[string]*big.Int)
	for _, o := range orders {
		if !o.IsActive() || o.Price == nil {
			continue
		}
		if cur, ok := floors[o.NFTContractAddress]; !ok || o.Price.Cmp(cur) < 0 {
			floors[o.NFTContractAddress] = o.Price
		}
	}
	for k, v := range floors {
		floors[k] = new(big.Int).Set(v)
	}
	return floors
}

// CollectionInfo returns display info for a contract, falling back to
// UnknownCollectionName when nothing is cached.
func (s *Store) CollectionInfo(address string) models.CollectionInfo {
	info, ok := s.ContractInfo(address)
	if !ok {
		return models.CollectionInfo{Name: models.UnknownCollectionName}
	}
	name := info.Name
	if name == "" {
		name = models.UnknownCollectionName
	}
	return models.CollectionInfo{Name: name, IconURL: info.IconURI}
}

// ActiveOrders returns the active orders of a collection in snapshot order.
func (s *Store) ActiveOrders(nftAddress string) []models.Order {
	nftAddress = models.NormalizeAddress(nftAddress)
	var res []models.Order
	for _, o := range s.snapshot() {
		if o.NFTContractAddress == nftAddress && o.IsActive() {
			res = append(res, o.Clone())
		}
	}
	return res
}

// ListingPrices returns the active listing prices of a collection, lowest first.
func (s *Store) ListingPrices(nftAddress string) []*big.Int {
	active := s.ActiveOrders(nftAddress)
	prices := make([]*big.Int, 0, len(active))
	for _, o := range active {
		if o.Price != nil {
			prices = append(prices, new(big.Int).Set(o.Price))
		}
	}
	sort.Slice(prices, func(i, j int) bool { return prices[i].Cmp(prices[j]) < 0 })
	return prices
}

// Collections returns the distinct NFT contracts in the snapshot, sorted.
func (s *Store) Collections() []string {
	seen := make(map[string]bool)
	var res []string
	for _, o := range s.snapshot() {
		if !seen[o.NFTContractAddress] {
			seen[o.NFTContractAddress] = true
			res = append(res, o.NFTContractAddress)
		}
	}
	sort.Strings(res)
	return res
}

// ListingsBySeller returns the active orders placed by seller.
func (s *Store) ListingsBySeller(seller string) []models.Order {
	if seller == "" {
		return nil
	}
	var res []models.Order
	for _, o := range s.snapshot() {
		if o.IsActive() && strings.EqualFold(o.Seller, seller) {
			res = append(res, o.Clone())
		}
	}
	return res
}
