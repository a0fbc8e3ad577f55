package store

import (
	"context"

	"nftmarket/pkg/models"

	"go.uber.org/zap"
)

// Connection returns the current wallet connection state.
func (s *Store) Connection() models.ConnectionState {
	s.connMu.RLock()
	defer s.connMu.RUnlock()
	return s.conn
}

func (s *Store) commitConnection(state models.ConnectionState) {
	if !state.Connected {
		state.Address = ""
	}
	s.connMu.Lock()
	s.conn = state
	s.connMu.Unlock()
	s.Notify(Event{Type: EventConnectionChanged, Data: state})
}

func (s *Store) providerAvailable() bool {
	return s.provider != nil && s.provider.Available()
}

// CheckConnection checks for already-authorized accounts without prompting
// the user. Any failure degrades to Disconnected; it never returns an error.
func (s *Store) CheckConnection(ctx context.Context) bool {
	if !s.providerAvailable() {
		s.logger.Debug("wallet provider not available")
		s.commitConnection(models.ConnectionState{})
		return false
	}

	accounts, err := s.provider.ListAccounts(ctx)
	if err != nil {
		s.logger.Warn("checking wallet connection failed", zap.Error(err))
		s.commitConnection(models.ConnectionState{})
		return false
	}
	if len(accounts) == 0 {
		s.commitConnection(models.ConnectionState{})
		return false
	}

	s.commitConnection(models.ConnectionState{Connected: true, Address: accounts[0]})
	s.initContract(ctx)
	return true
}

// RequestConnection asks the wallet to authorize an account. On failure
// nothing is committed: an existing session survives a rejected request.
func (s *Store) RequestConnection(ctx context.Context) bool {
	if !s.providerAvailable() {
		s.logger.Warn("no wallet provider detected")
		return false
	}

	if _, err := s.provider.RequestAccounts(ctx); err != nil {
		s.logger.Warn("wallet connection request failed", zap.Error(err))
		return false
	}
	address, err := s.provider.SignerAddress(ctx)
	if err != nil {
		s.logger.Warn("resolving signer address failed", zap.Error(err))
		return false
	}
	if address == "" {
		s.logger.Warn("wallet returned an empty signer address")
		return false
	}

	s.commitConnection(models.ConnectionState{Connected: true, Address: address})
	s.initContract(ctx)
	return true
}

// Disconnect clears the session. It is idempotent.
func (s *Store) Disconnect() {
	s.commitConnection(models.ConnectionState{})
	s.logger.Info("signed out of wallet session")
}

func (s *Store) initContract(ctx context.Context) {
	if s.client == nil {
		return
	}
	if err := s.client.InitContract(ctx, true); err != nil {
		s.logger.Warn("contract initialization failed", zap.Error(err))
	}
}
