package store

import (
	"nftmarket/pkg/models"
)

// ContractField selects which ContractInfo field SetContractField writes.
type ContractField int

const (
	FieldName ContractField = iota + 1
	FieldIconURI
)

func (f ContractField) String() string {
	switch f {
	case FieldName:
		return "name"
	case FieldIconURI:
		return "iconURI"
	}
	return "unknown"
}

// SetContractField upserts one field of the contract's info, leaving the
// other as it was. Unknown fields are ignored.
func (s *Store) SetContractField(address string, field ContractField, value string) {
	address = models.NormalizeAddress(address)

	s.contractsMu.Lock()
	info := s.contracts[address]
	switch field {
	case FieldName:
		info.Name = value
	case FieldIconURI:
		info.IconURI = value
	default:
		s.contractsMu.Unlock()
		return
	}
	s.contracts[address] = info
	s.contractsMu.Unlock()

	s.Notify(Event{Type: EventContractUpdated, Data: map[string]any{
		"address": address,
		"info":    info,
	}})
}

// ContractInfo returns the cached info for a contract.
func (s *Store) ContractInfo(address string) (models.ContractInfo, bool) {
	s.contractsMu.RLock()
	defer s.contractsMu.RUnlock()
	info, ok := s.contracts[models.NormalizeAddress(address)]
	return info, ok
}

// SetTokenImage caches the image URL of a token.
func (s *Store) SetTokenImage(key models.TokenKey, imageURL string) {
	key.Contract = models.NormalizeAddress(key.Contract)
	s.imagesMu.Lock()
	s.images[key] = imageURL
	s.imagesMu.Unlock()
	s.Notify(Event{Type: EventTokenUpdated, Data: map[string]any{
		"contract": key.Contract,
		"token_id": key.TokenID,
		"image":    imageURL,
	}})
}

// TokenImage returns the cached image URL, or fallback when absent.
func (s *Store) TokenImage(key models.TokenKey, fallback string) string {
	key.Contract = models.NormalizeAddress(key.Contract)
	s.imagesMu.RLock()
	defer s.imagesMu.RUnlock()
	if v, ok := s.images[key]; ok {
		return v
	}
	return fallback
}

// SetTokenURI caches the metadata URI of a token.
func (s *Store) SetTokenURI(key models.TokenKey, tokenURI string) {
	key.Contract = models.NormalizeAddress(key.Contract)
	s.urisMu.Lock()
	s.uris[key] = tokenURI
	s.urisMu.Unlock()
	s.Notify(Event{Type: EventTokenUpdated, Data: map[string]any{
		"contract":  key.Contract,
		"token_id":  key.TokenID,
		"token_uri": tokenURI,
	}})
}

// TokenURI returns the cached token URI, or fallback when absent.
func (s *Store) TokenURI(key models.TokenKey, fallback string) string {
	key.Contract = models.NormalizeAddress(key.Contract)
	s.urisMu.RLock()
	defer s.urisMu.RUnlock()
	if v, ok := s.uris[key]; ok {
		return v
	}
	return fallback
}

// SetTokenInfo replaces the fungible token info stored for address.
func (s *Store) SetTokenInfo(address string, info models.TokenInfo) {
	address = models.NormalizeAddress(address)
	s.tokenInfoMu.Lock()
	s.tokenInfo[address] = info
	s.tokenInfoMu.Unlock()
	s.Notify(Event{Type: EventTokenInfoUpdated, Data: map[string]any{
		"address": address,
		"info":    info,
	}})
}

// TokenInfo returns the cached token info, or fallback when absent.
func (s *Store) TokenInfo(address string, fallback models.TokenInfo) models.TokenInfo {
	s.tokenInfoMu.RLock()
	defer s.tokenInfoMu.RUnlock()
	if v, ok := s.tokenInfo[models.NormalizeAddress(address)]; ok {
		return v
	}
	return fallback
}
