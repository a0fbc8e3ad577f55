package models

import (
	"encoding/json"
	"fmt"
	"math/big"
	"strings"
)

// OrderStatus is the lifecycle state of a marketplace order.
type OrderStatus uint8

const (
	OrderStatusInactive  OrderStatus = 0
	OrderStatusActive    OrderStatus = 1
	OrderStatusCancelled OrderStatus = 2
)

func (s OrderStatus) String() string {
	switch s {
	case OrderStatusInactive:
		return "inactive"
	case OrderStatusActive:
		return "active"
	case OrderStatusCancelled:
		return "cancelled"
	}
	return fmt.Sprintf("status(%d)", uint8(s))
}

// Order is a single marketplace listing.
type Order struct {
	ID                 uint64
	NFTContractAddress string
	TokenID            *big.Int
	TokenAddress       string // payment token, zero address for native
	Price              *big.Int
	Seller             string
	Status             OrderStatus
}

// Clone returns a copy that shares no big.Int with o.
func (o Order) Clone() Order {
	o.TokenID = cloneBig(o.TokenID)
	o.Price = cloneBig(o.Price)
	return o
}

func cloneBig(v *big.Int) *big.Int {
	if v == nil {
		return nil
	}
	return new(big.Int).Set(v)
}

// IsActive reports whether the order is currently listed.
func (o Order) IsActive() bool {
	return o.Status == OrderStatusActive
}

type orderJSON struct {
	ID                 uint64      `json:"id"`
	NFTContractAddress string      `json:"nft_contract_address"`
	TokenID            bigString   `json:"token_id"`
	TokenAddress       string      `json:"token_address,omitempty"`
	Price              bigString   `json:"price"`
	Seller             string      `json:"seller,omitempty"`
	Status             OrderStatus `json:"status"`
}

// MarshalJSON encodes big integers as decimal strings so that consumers
// with float-only number types don't lose precision.
func (o Order) MarshalJSON() ([]byte, error) {
	return json.Marshal(orderJSON{
		ID:                 o.ID,
		NFTContractAddress: o.NFTContractAddress,
		TokenID:            bigString{o.TokenID},
		TokenAddress:       o.TokenAddress,
		Price:              bigString{o.Price},
		Seller:             o.Seller,
		Status:             o.Status,
	})
}

func (o *Order) UnmarshalJSON(data []byte) error {
	var raw orderJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*o = Order{
		ID:                 raw.ID,
		NFTContractAddress: raw.NFTContractAddress,
		TokenID:            raw.TokenID.Int,
		TokenAddress:       raw.TokenAddress,
		Price:              raw.Price.Int,
		Seller:             raw.Seller,
		Status:             raw.Status,
	}
	return nil
}

// ParseBigInt parses a decimal or 0x-prefixed hex string.
func ParseBigInt(s string) (*big.Int, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty integer")
	}
	base := 10
	if strings.HasPrefix(s, "0x") || strings.HasPrefix(s, "0X") {
		s, base = s[2:], 16
	}
	v, ok := new(big.Int).SetString(s, base)
	if !ok {
		return nil, fmt.Errorf("invalid integer %q", s)
	}
	if v.Sign() < 0 {
		return nil, fmt.Errorf("negative integer %q", s)
	}
	return v, nil
}

type bigString struct {
	*big.Int
}

func (b bigString) MarshalJSON() ([]byte, error) {
	if b.Int == nil {
		return []byte(`"0"`), nil
	}
	return json.Marshal(b.Int.String())
}

func (b *bigString) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "null" {
		b.Int = nil
		return nil
	}
	v, err := ParseBigInt(s)
	if err != nil {
		return err
	}
	b.Int = v
	return nil
}
