package store

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"nftmarket/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

type MockWallet struct {
	mock.Mock
	available bool
}

func (m *MockWallet) Available() bool { return m.available }

func (m *MockWallet) ListAccounts(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockWallet) RequestAccounts(ctx context.Context) ([]string, error) {
	args := m.Called(ctx)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockWallet) SignerAddress(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

type MockContract struct {
	mock.Mock
}

func (m *MockContract) FetchOrders(ctx context.Context) ([]models.Order, error) {
	args := m.Called(ctx)
	orders, _ := args.Get(0).([]models.Order)
	return orders, args.Error(1)
}

func (m *MockContract) InitContract(ctx context.Context, withSigner bool) error {
	args := m.Called(ctx, withSigner)
	return args.Error(0)
}

func price(t *testing.T, s string) *big.Int {
	t.Helper()
	v, ok := new(big.Int).SetString(s, 10)
	require.True(t, ok, "bad price %q", s)
	return v
}

func order(t *testing.T, addr, p string, status models.OrderStatus) models.Order {
	return models.Order{NFTContractAddress: addr, Price: price(t, p), Status: status, TokenID: big.NewInt(1)}
}

func TestCheckConnection_Connected(t *testing.T) {
	wallet := &MockWallet{available: true}
	contract := new(MockContract)
	s := New(wallet, contract, WithLogger(zaptest.NewLogger(t)))

	wallet.On("ListAccounts", mock.Anything).Return([]string{"0xabc", "0xdef"}, nil)
	contract.On("InitContract", mock.Anything, true).Return(nil)

	assert.True(t, s.CheckConnection(context.Background()))
	assert.Equal(t, models.ConnectionState{Connected: true, Address: "0xabc"}, s.Connection())
	wallet.AssertExpectations(t)
	contract.AssertExpectations(t)
}

func TestCheckConnection_Degrades(t *testing.T) {
	tests := []struct {
		name     string
		accounts []string
		err      error
	}{
		{"query failure", []string{}, errors.New("boom")},
		{"no accounts", []string{}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wallet := &MockWallet{available: true}
			contract := new(MockContract)
			s := New(wallet, contract)
			s.conn = models.ConnectionState{Connected: true, Address: "0xold"}

			wallet.On("ListAccounts", mock.Anything).Return(tt.accounts, tt.err)

			assert.False(t, s.CheckConnection(context.Background()))
			assert.Equal(t, models.ConnectionState{}, s.Connection())
			contract.AssertNotCalled(t, "InitContract", mock.Anything, mock.Anything)
		})
	}
}

func TestCheckConnection_NoProvider(t *testing.T) {
	s := New(nil, nil)
	s.conn = models.ConnectionState{Connected: true, Address: "0xold"}
	assert.False(t, s.CheckConnection(context.Background()))
	assert.Equal(t, models.ConnectionState{}, s.Connection())

	unavailable := New(&MockWallet{available: false}, nil)
	assert.False(t, unavailable.CheckConnection(context.Background()))
}

func TestCheckConnection_InitFailureKeepsSession(t *testing.T) {
	wallet := &MockWallet{available: true}
	contract := new(MockContract)
	s := New(wallet, contract)

	wallet.On("ListAccounts", mock.Anything).Return([]string{"0xabc"}, nil)
	contract.On("InitContract", mock.Anything, true).Return(errors.New("no code"))

	assert.True(t, s.CheckConnection(context.Background()))
	assert.True(t, s.Connection().Connected)
}

func TestRequestConnection_Success(t *testing.T) {
	wallet := &MockWallet{available: true}
	contract := new(MockContract)
	s := New(wallet, contract)

	wallet.On("RequestAccounts", mock.Anything).Return([]string{"0xabc"}, nil)
	wallet.On("SignerAddress", mock.Anything).Return("0xsigner", nil)
	contract.On("InitContract", mock.Anything, true).Return(nil)

	assert.True(t, s.RequestConnection(context.Background()))
	assert.Equal(t, models.ConnectionState{Connected: true, Address: "0xsigner"}, s.Connection())
	contract.AssertExpectations(t)
}

func TestRequestConnection_FailureLeavesStateUntouched(t *testing.T) {
	prior := []models.ConnectionState{
		{},
		{Connected: true, Address: "0xexisting"},
	}

	for _, before := range prior {
		wallet := &MockWallet{available: true}
		contract := new(MockContract)
		s := New(wallet, contract)
		s.conn = before

		wallet.On("RequestAccounts", mock.Anything).Return([]string(nil), errors.New("user rejected request"))

		assert.False(t, s.RequestConnection(context.Background()))
		assert.Equal(t, before, s.Connection())
		wallet.AssertNotCalled(t, "SignerAddress", mock.Anything)
		contract.AssertNotCalled(t, "InitContract", mock.Anything, mock.Anything)
	}

	wallet := &MockWallet{available: true}
	s := New(wallet, new(MockContract))
	s.conn = models.ConnectionState{Connected: true, Address: "0xexisting"}
	wallet.On("RequestAccounts", mock.Anything).Return([]string{"0xabc"}, nil)
	wallet.On("SignerAddress", mock.Anything).Return("", errors.New("locked"))
	assert.False(t, s.RequestConnection(context.Background()))
	assert.Equal(t, "0xexisting", s.Connection().Address)

	absent := New(nil, nil)
	absent.conn = models.ConnectionState{Connected: true, Address: "0xexisting"}
	assert.False(t, absent.RequestConnection(context.Background()))
	assert.True(t, absent.Connection().Connected)
}

func TestDisconnect_Idempotent(t *testing.T) {
	s := New(nil, nil)
	s.conn = models.ConnectionState{Connected: true, Address: "0xabc"}

	for i := 0; i < 3; i++ {
		s.Disconnect()
		assert.Equal(t, models.ConnectionState{Connected: false, Address: ""}, s.Connection())
	}
}

func TestSetContractField_Independent(t *testing.T) {
	s := New(nil, nil)
	addr := "0xab5801a7d398351b8be11c439e05c5b3259aec9b"

	_, ok := s.ContractInfo(addr)
	assert.False(t, ok)

	s.SetContractField(addr, FieldName, "Rex Punks")
	info, ok := s.ContractInfo(addr)
	require.True(t, ok)
	assert.Equal(t, models.ContractInfo{Name: "Rex Punks"}, info)

	s.SetContractField(addr, FieldIconURI, "ipfs://icon")
	s.SetContractField(addr, FieldName, "Rex Punks II")
	info, _ = s.ContractInfo(addr)
	assert.Equal(t, models.ContractInfo{Name: "Rex Punks II", IconURI: "ipfs://icon"}, info)

	s.SetContractField(addr, FieldIconURI, "ipfs://icon2")
	info, _ = s.ContractInfo(addr)
	assert.Equal(t, "Rex Punks II", info.Name)
	assert.Equal(t, "ipfs://icon2", info.IconURI)

	s.SetContractField(addr, ContractField(42), "ignored")
	info, _ = s.ContractInfo(addr)
	assert.Equal(t, models.ContractInfo{Name: "Rex Punks II", IconURI: "ipfs://icon2"}, info)

	s.SetContractField("0xdead", ContractField(0), "ignored")
	_, ok = s.ContractInfo("0xdead")
	assert.False(t, ok)
}

func TestTokenCaches(t *testing.T) {
	s := New(nil, nil)
	key := models.NewTokenKey("0xab5801a7d398351b8be11c439e05c5b3259aec9b", big.NewInt(7))

	assert.Equal(t, "unknown", s.TokenImage(key, "unknown"))
	assert.Equal(t, "", s.TokenURI(key, ""))

	s.SetTokenImage(key, "https://img/7.png")
	s.SetTokenURI(key, "ipfs://meta/7")

	other := models.NewTokenKey("0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B", big.NewInt(7))
	assert.Equal(t, "https://img/7.png", s.TokenImage(other, "unknown"))
	assert.Equal(t, "ipfs://meta/7", s.TokenURI(other, ""))

	s.SetTokenImage(key, "https://img/7b.png")
	assert.Equal(t, "https://img/7b.png", s.TokenImage(key, "unknown"))

	collide := models.NewTokenKey("a-1", big.NewInt(2))
	s.SetTokenImage(models.NewTokenKey("a", big.NewInt(12)), "a12")
	assert.Equal(t, "none", s.TokenImage(collide, "none"))
}

func TestTokenInfo(t *testing.T) {
	s := New(nil, nil)
	fallback := models.TokenInfo{Symbol: "?"}
	assert.Equal(t, fallback, s.TokenInfo("0x1", fallback))

	info := models.TokenInfo{Name: "Rex", Symbol: "REX", Decimals: 18}
	s.SetTokenInfo("0x1", info)
	assert.Equal(t, info, s.TokenInfo("0x1", fallback))

	s.SetTokenInfo("0x1", models.TokenInfo{Symbol: "REX2"})
	assert.Equal(t, models.TokenInfo{Symbol: "REX2"}, s.TokenInfo("0x1", fallback))
}

func TestFloorPrice_EndToEnd(t *testing.T) {
	s := New(nil, nil)
	s.ReplaceOrders([]models.Order{
		order(t, "addrA", "100", models.OrderStatusActive),
		order(t, "addrA", "50", models.OrderStatusActive),
		order(t, "addrA", "10", models.OrderStatusInactive),
	})

	floor, ok := s.FloorPrice("addrA")
	require.True(t, ok)
	assert.Equal(t, "50", floor.String())
}

func TestFloorPrice_None(t *testing.T) {
	s := New(nil, nil)
	_, ok := s.FloorPrice("addrA")
	assert.False(t, ok)

	s.ReplaceOrders([]models.Order{
		order(t, "addrA", "10", models.OrderStatusInactive),
		order(t, "addrA", "5", models.OrderStatusCancelled),
		order(t, "addrB", "1", models.OrderStatusActive),
	})
	floor, ok := s.FloorPrice("addrA")
	assert.False(t, ok)
	assert.Nil(t, floor)
}

func TestFloorPrice_ExactBigIntComparison(t *testing.T) {
	// Both prices round to the same float64.
	a := "1000000000000000000000000001"
	b := "1000000000000000000000000000"
	fa, _ := new(big.Float).SetString(a)
	fb, _ := new(big.Float).SetString(b)
	xa, _ := fa.Float64()
	xb, _ := fb.Float64()
	require.Equal(t, xa, xb)

	s := New(nil, nil)
	s.ReplaceOrders([]models.Order{
		order(t, "addrA", a, models.OrderStatusActive),
		order(t, "addrA", b, models.OrderStatusActive),
		order(t, "addrA", a, models.OrderStatusActive),
	})
	floor, ok := s.FloorPrice("addrA")
	require.True(t, ok)
	assert.Equal(t, b, floor.String())

	// Mutating the result must not leak into the snapshot.
	floor.SetInt64(1)
	again, _ := s.FloorPrice("addrA")
	assert.Equal(t, b, again.String())
}

func TestFloorPrice_DuplicatesAndAddressCase(t *testing.T) {
	s := New(nil, nil)
	lower := "0xab5801a7d398351b8be11c439e05c5b3259aec9b"
	s.ReplaceOrders([]models.Order{
		order(t, lower, "7", models.OrderStatusActive),
		order(t, lower, "7", models.OrderStatusActive),
		order(t, "0xAB5801A7D398351B8BE11C439E05C5B3259AEC9B", "9", models.OrderStatusActive),
	})
	floor, ok := s.FloorPrice("0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B")
	require.True(t, ok)
	assert.Equal(t, int64(7), floor.Int64())
}

func TestFloorPrices(t *testing.T) {
	s := New(nil, nil)
	s.ReplaceOrders([]models.Order{
		order(t, "addrA", "100", models.OrderStatusActive),
		order(t, "addrA", "50", models.OrderStatusActive),
		order(t, "addrB", "3", models.OrderStatusInactive),
		order(t, "addrC", "8", models.OrderStatusActive),
	})
	floors := s.FloorPrices()
	assert.Len(t, floors, 2)
	assert.Equal(t, "50", floors["addrA"].String())
	assert.Equal(t, "8", floors["addrC"].String())
}

func TestCollectionInfo(t *testing.T) {
	s := New(nil, nil)
	assert.Equal(t, models.CollectionInfo{Name: models.UnknownCollectionName}, s.CollectionInfo("addrA"))

	s.SetContractField("addrA", FieldIconURI, "https://icon")
	assert.Equal(t, models.CollectionInfo{Name: models.UnknownCollectionName, IconURL: "https://icon"}, s.CollectionInfo("addrA"))

	s.SetContractField("addrA", FieldName, "Apes")
	assert.Equal(t, models.CollectionInfo{Name: "Apes", IconURL: "https://icon"}, s.CollectionInfo("addrA"))
}

func TestDerivedViews(t *testing.T) {
	s := New(nil, nil)
	s.ReplaceOrders([]models.Order{
		{NFTContractAddress: "addrB", Price: big.NewInt(30), Status: models.OrderStatusActive, Seller: "0xSeller"},
		{NFTContractAddress: "addrA", Price: big.NewInt(20), Status: models.OrderStatusActive, Seller: "0xseller"},
		{NFTContractAddress: "addrA", Price: big.NewInt(10), Status: models.OrderStatusActive, Seller: "0xother"},
		{NFTContractAddress: "addrA", Price: big.NewInt(5), Status: models.OrderStatusInactive, Seller: "0xseller"},
	})

	assert.Equal(t, []string{"addrA", "addrB"}, s.Collections())
	assert.Len(t, s.ActiveOrders("addrA"), 2)

	prices := s.ListingPrices("addrA")
	require.Len(t, prices, 2)
	assert.Equal(t, int64(10), prices[0].Int64())
	assert.Equal(t, int64(20), prices[1].Int64())

	assert.Len(t, s.ListingsBySeller("0xSELLER"), 2)
	assert.Nil(t, s.ListingsBySeller(""))
}

func TestReplaceOrders_CopiesInput(t *testing.T) {
	s := New(nil, nil)
	input := []models.Order{order(t, "addrA", "1", models.OrderStatusActive)}
	s.ReplaceOrders(input)
	input[0].Status = models.OrderStatusInactive

	assert.Equal(t, models.OrderStatusActive, s.Orders()[0].Status)
	out := s.Orders()
	out[0].NFTContractAddress = "changed"
	assert.Equal(t, "addrA", s.Orders()[0].NFTContractAddress)
}

func TestOrderPrices_NotShared(t *testing.T) {
	contract := new(MockContract)
	s := New(nil, contract)

	floorIs := func(want string) {
		t.Helper()
		floor, ok := s.FloorPrice("addrA")
		require.True(t, ok)
		assert.Equal(t, want, floor.String())
	}

	input := []models.Order{
		order(t, "addrA", "50", models.OrderStatusActive),
		order(t, "addrA", "70", models.OrderStatusActive),
	}
	input[0].Seller = "0xseller"
	s.ReplaceOrders(input)

	input[0].Price.SetInt64(1)
	input[0].TokenID.SetInt64(99)
	floorIs("50")
	assert.Equal(t, "1", s.Orders()[0].TokenID.String())

	s.Orders()[0].Price.SetInt64(2)
	floorIs("50")

	s.ActiveOrders("addrA")[0].Price.SetInt64(4)
	s.ListingsBySeller("0xseller")[0].Price.SetInt64(5)
	floorIs("50")

	fetched := []models.Order{order(t, "addrA", "50", models.OrderStatusActive)}
	contract.On("FetchOrders", mock.Anything).Return(fetched, nil).Once()
	refreshed, err := s.Refresh(context.Background())
	require.NoError(t, err)
	refreshed[0].Price.SetInt64(3)
	fetched[0].Price.SetInt64(6)
	floorIs("50")
}

func TestRefresh(t *testing.T) {
	contract := new(MockContract)
	s := New(nil, contract)
	fetched := []models.Order{order(t, "addrA", "5", models.OrderStatusActive)}
	contract.On("FetchOrders", mock.Anything).Return(fetched, nil).Once()

	orders, err := s.Refresh(context.Background())
	require.NoError(t, err)
	assert.Len(t, orders, 1)
	assert.Len(t, s.Orders(), 1)
}

func TestRefresh_FailureKeepsSnapshot(t *testing.T) {
	contract := new(MockContract)
	s := New(nil, contract)
	s.ReplaceOrders([]models.Order{order(t, "addrA", "5", models.OrderStatusActive)})

	fetchErr := errors.New("rpc down")
	contract.On("FetchOrders", mock.Anything).Return(nil, fetchErr)

	sub := s.Subscribe()
	orders, err := s.Refresh(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, fetchErr)
	assert.Nil(t, orders)
	assert.Len(t, s.Orders(), 1)

	select {
	case ev := <-sub:
		assert.Equal(t, EventRefreshFailed, ev.Type)
	case <-time.After(time.Second):
		t.Fatal("expected refresh failure event")
	}

	_, err = New(nil, nil).Refresh(context.Background())
	assert.Error(t, err)
}

func TestReplaceOrders_Atomic(t *testing.T) {
	s := New(nil, nil)
	makeSet := func(addr string, n int) []models.Order {
		res := make([]models.Order, n)
		for i := range res {
			res[i] = models.Order{NFTContractAddress: addr, Price: big.NewInt(int64(i + 1)), Status: models.OrderStatusActive}
		}
		return res
	}
	oldSet := makeSet("old", 50)
	newSet := makeSet("new", 80)
	s.ReplaceOrders(oldSet)

	var wg sync.WaitGroup
	stop := make(chan struct{})
	errs := make(chan string, 1)

	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-stop:
					return
				default:
				}
				snap := s.Orders()
				want := "old"
				if len(snap) == 80 {
					want = "new"
				} else if len(snap) != 50 {
					select {
					case errs <- "unexpected snapshot length":
					default:
					}
					return
				}
				for _, o := range snap {
					if o.NFTContractAddress != want {
						select {
						case errs <- "mixed snapshot":
						default:
						}
						return
					}
				}
			}
		}()
	}

	for i := 0; i < 200; i++ {
		if i%2 == 0 {
			s.ReplaceOrders(newSet)
		} else {
			s.ReplaceOrders(oldSet)
		}
	}
	close(stop)
	wg.Wait()

	select {
	case msg := <-errs:
		t.Fatal(msg)
	default:
	}
}

func TestSubscribeUnsubscribe(t *testing.T) {
	s := New(nil, nil)
	sub := s.Subscribe()

	s.subMu.RLock()
	assert.Equal(t, 1, len(s.subscribers))
	s.subMu.RUnlock()

	s.Disconnect()
	select {
	case ev := <-sub:
		assert.Equal(t, EventConnectionChanged, ev.Type)
		assert.Equal(t, models.ConnectionState{}, ev.Data)
	case <-time.After(time.Second):
		t.Fatal("expected connection event")
	}

	s.Unsubscribe(sub)
	s.subMu.RLock()
	assert.Equal(t, 0, len(s.subscribers))
	s.subMu.RUnlock()
	_, open := <-sub
	assert.False(t, open)
}
