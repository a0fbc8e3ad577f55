package main

import (
	"context"
	"fmt"
	"io"

	"nftmarket/pkg/config"
	"nftmarket/pkg/models"
	"nftmarket/pkg/rpc"
)

// runSelfTest checks the configured endpoints and the market contract.
// Progress is written to out unless it is nil.
func runSelfTest(cfg config.Config, path string, out io.Writer) models.TestReport {
	say := func(format string, args ...any) {
		if out != nil {
			_, _ = fmt.Fprintf(out, format, args...)
		}
	}

	report := models.TestReport{ConfigPath: path, ValidStructure: true}
	say("Testing configuration at: %s\n", path)

	if errs := cfg.Validate(); len(errs) > 0 {
		report.ValidStructure = false
		report.StructureErrors = errs
		for _, e := range errs {
			say("Error: %s\n", e)
		}
		return report
	}

	report.RPC = models.RPCResult{URL: cfg.RPCURL}
	say("RPC: %s ... ", cfg.RPCURL)
	id, err := rpc.FetchChainID(cfg.RPCURL)
	if err != nil {
		report.RPC.Status = "error"
		report.RPC.Error = err.Error()
		say("Failed: %v\n", err)
		return report
	}
	report.RPC.Status = "ok"
	report.RPC.ChainID = id.Int64()
	say("OK (ChainID: %s)\n", id.String())

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RequestTimeout())
	defer cancel()

	say("Market: %s ... ", cfg.MarketAddress)
	market, err := rpc.NewMarketClient(cfg.RPCURL, cfg.MarketAddress)
	if err != nil {
		report.MarketError = err.Error()
		say("Failed: %v\n", err)
		return report
	}
	defer market.Close()

	if err := market.InitContract(ctx, false); err != nil {
		report.MarketError = err.Error()
		say("Failed: %v\n", err)
	} else {
		report.MarketDeployed = true
		orders, err := market.FetchOrders(ctx)
		if err != nil {
			report.MarketError = err.Error()
			say("Deployed, but fetching orders failed: %v\n", err)
		} else {
			report.OrderCount = len(orders)
			say("OK (%d orders)\n", len(orders))
		}
	}

	wallet := rpc.NewWalletClient(cfg.WalletRPCURL)
	defer wallet.Close()
	report.WalletAvailable = wallet.Available()
	if !report.WalletAvailable {
		say("Wallet: not configured\n")
		return report
	}
	say("Wallet: %s ... ", cfg.WalletRPCURL)
	accounts, err := wallet.ListAccounts(ctx)
	if err != nil {
		report.WalletError = err.Error()
		say("Failed: %v\n", err)
		return report
	}
	report.WalletAccounts = accounts
	say("OK (%d authorized accounts)\n", len(accounts))
	return report
}

// selfTestPassed reports whether the market is usable. A missing or
// locked wallet is not a failure.
func selfTestPassed(r models.TestReport) bool {
	return r.ValidStructure && r.RPC.Status == "ok" && r.MarketDeployed && r.MarketError == ""
}
