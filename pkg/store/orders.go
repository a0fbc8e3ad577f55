package store

import (
	"context"
	"fmt"

	"nftmarket/pkg/models"
)

// ReplaceOrders swaps the whole order snapshot.
func (s *Store) ReplaceOrders(orders []models.Order) {
	s.commitOrders(orders)
}

func (s *Store) commitOrders(orders []models.Order) []models.Order {
	snapshot := make([]models.Order, len(orders))
	for i, o := range orders {
		o = o.Clone()
		o.NFTContractAddress = models.NormalizeAddress(o.NFTContractAddress)
		snapshot[i] = o
	}

	s.ordersMu.Lock()
	s.orders = snapshot
	s.ordersMu.Unlock()

	s.Notify(Event{Type: EventOrdersReplaced, Data: len(snapshot)})
	return snapshot
}

// Orders returns a copy of the current snapshot.
func (s *Store) Orders() []models.Order {
	s.ordersMu.RLock()
	defer s.ordersMu.RUnlock()
	return cloneOrders(s.orders)
}

func cloneOrders(orders []models.Order) []models.Order {
	cp := make([]models.Order, len(orders))
	for i, o := range orders {
		cp[i] = o.Clone()
	}
	return cp
}

// Refresh fetches the order list from the contract and commits it.
// On failure the previous snapshot is kept and the error is returned.
func (s *Store) Refresh(ctx context.Context) ([]models.Order, error) {
	if s.client == nil {
		return nil, fmt.Errorf("fetch orders: no contract client")
	}
	orders, err := s.client.FetchOrders(ctx)
	if err != nil {
		s.Notify(Event{Type: EventRefreshFailed, Data: err.Error()})
		return nil, fmt.Errorf("fetch orders: %w", err)
	}
	return cloneOrders(s.commitOrders(orders)), nil
}
