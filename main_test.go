package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"nftmarket/pkg/config"
	"nftmarket/pkg/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testMarket = "0xFDFF13B8b4C3DD752A57fEC5dD4DC9E2f23EDE64"
	testWallet = "0xAb5801a7D398351b8bE11C439e05C5B3259aeC9B"

	// ABI encoding of an empty dynamic array.
	emptyOrders = "0x" +
		"0000000000000000000000000000000000000000000000000000000000000020" +
		"0000000000000000000000000000000000000000000000000000000000000000"
)

type fakeNode struct {
	undeployed atomic.Bool
	locked     atomic.Bool
}

func (n *fakeNode) serve(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			ID     json.RawMessage `json:"id"`
			Method string          `json:"method"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}

		resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
		switch req.Method {
		case "eth_chainId":
			resp["result"] = "0xaa36a7"
		case "eth_getCode":
			if n.undeployed.Load() {
				resp["result"] = "0x"
			} else {
				resp["result"] = "0x6080604052"
			}
		case "eth_call":
			resp["result"] = emptyOrders
		case "eth_accounts":
			if n.locked.Load() {
				resp["error"] = map[string]any{"code": 4100, "message": "wallet locked"}
			} else {
				resp["result"] = []string{testWallet}
			}
		default:
			resp["error"] = map[string]any{"code": -32601, "message": "method not found"}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(server.Close)
	return server
}

func testConfig(url string) config.Config {
	cfg := config.Default()
	cfg.RPCURL = url
	cfg.WalletRPCURL = url
	cfg.MarketAddress = testMarket
	return cfg
}

func TestRunSelfTest(t *testing.T) {
	node := &fakeNode{}
	server := node.serve(t)

	var out bytes.Buffer
	report := runSelfTest(testConfig(server.URL), "/tmp/cfg.json", &out)

	assert.True(t, report.ValidStructure)
	assert.Equal(t, "ok", report.RPC.Status)
	assert.Equal(t, int64(11155111), report.RPC.ChainID)
	assert.True(t, report.MarketDeployed)
	assert.Empty(t, report.MarketError)
	assert.Equal(t, 0, report.OrderCount)
	assert.True(t, report.WalletAvailable)
	assert.Equal(t, []string{testWallet}, report.WalletAccounts)
	assert.True(t, selfTestPassed(report))

	assert.Contains(t, out.String(), "Testing configuration at: /tmp/cfg.json")
	assert.Contains(t, out.String(), "OK (ChainID: 11155111)")
}

func TestRunSelfTest_Undeployed(t *testing.T) {
	node := &fakeNode{}
	node.undeployed.Store(true)
	node.locked.Store(true)
	server := node.serve(t)

	report := runSelfTest(testConfig(server.URL), "cfg.json", nil)

	assert.False(t, report.MarketDeployed)
	assert.Contains(t, report.MarketError, "no contract code")
	assert.Contains(t, report.WalletError, "wallet locked")
	assert.False(t, selfTestPassed(report))
}

func TestRunSelfTest_NoWallet(t *testing.T) {
	server := (&fakeNode{}).serve(t)
	cfg := testConfig(server.URL)
	cfg.WalletRPCURL = ""

	report := runSelfTest(cfg, "cfg.json", nil)
	assert.False(t, report.WalletAvailable)
	assert.True(t, selfTestPassed(report))
}

func TestRunSelfTest_InvalidStructure(t *testing.T) {
	cfg := config.Default()
	cfg.MarketAddress = "nope"

	var out bytes.Buffer
	report := runSelfTest(cfg, "cfg.json", &out)

	assert.False(t, report.ValidStructure)
	require.Len(t, report.StructureErrors, 1)
	assert.Contains(t, report.StructureErrors[0], "market_address")
	assert.Empty(t, report.RPC.Status)
	assert.Contains(t, out.String(), "Error: market_address")
}

func TestRunSelfTest_RPCDown(t *testing.T) {
	server := (&fakeNode{}).serve(t)
	url := server.URL
	server.Close()

	report := runSelfTest(testConfig(url), "cfg.json", nil)
	assert.Equal(t, "error", report.RPC.Status)
	assert.NotEmpty(t, report.RPC.Error)
	assert.False(t, report.MarketDeployed)
	assert.False(t, selfTestPassed(report))
}

func TestSelfTestReportJSON(t *testing.T) {
	report := models.TestReport{
		ConfigPath:     "cfg.json",
		ValidStructure: true,
		RPC:            models.RPCResult{URL: "http://node", Status: "ok", ChainID: 1},
	}
	data, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"rpc":{"url":"http://node","status":"ok","chain_id":1}`)
	assert.NotContains(t, string(data), "wallet_error")
}

func TestNewLogger_File(t *testing.T) {
	logFile := filepath.Join(t.TempDir(), "nftmarket.log")

	logger, err := newLogger(false, logFile)
	require.NoError(t, err)
	logger.Info("hello from test")
	_ = logger.Sync()

	data, err := os.ReadFile(logFile)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(data), "hello from test"))

	debugLogger, err := newLogger(true, logFile)
	require.NoError(t, err)
	assert.True(t, debugLogger.Core().Enabled(-1))
}
