package server

import (
	"context"
	"fmt"
	nethttp "net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/novaluna/payment-engine/internal/chainrpc"
	"github.com/novaluna/payment-engine/internal/chainrpc/btcrpc"
	"github.com/novaluna/payment-engine/internal/chainrpc/evmrpc"
	"github.com/novaluna/payment-engine/internal/chainrpc/solanarpc"
	"github.com/novaluna/payment-engine/internal/chainrpc/tronrpc"
	"github.com/novaluna/payment-engine/internal/events"
	"github.com/novaluna/payment-engine/internal/ledger"
	"github.com/novaluna/payment-engine/internal/model"
	"github.com/novaluna/payment-engine/internal/reconciler"
	"github.com/novaluna/payment-engine/internal/registry"
	"github.com/novaluna/payment-engine/internal/scanner"
	"github.com/novaluna/payment-engine/internal/store"
	pgstore "github.com/novaluna/payment-engine/internal/store/postgres"
	"github.com/novaluna/payment-engine/internal/transport/http"
	"github.com/novaluna/payment-engine/internal/utils/config"
	"github.com/novaluna/payment-engine/internal/utils/logger"
	"github.com/novaluna/payment-engine/internal/verify"
)

func Init() {
	appConfig := config.New()
	logger := logger.New(appConfig.Environment)

	db := pgstore.New(appConfig, logger)
	s := store.New()

	reg, err := registry.New(appConfig)
	if err != nil {
		logger.Fatal("failed to build merchant registry", map[string]string{
			"error": err.Error(),
		})
		return
	}

	adapters := map[model.Chain]chainrpc.Adapter{}
	sources := map[model.Chain]chainrpc.BlockSource{}

	evmEndpoints := map[model.Chain]string{
		model.ChainEthereum: appConfig.Chains.EthereumRPCEndpoint,
		model.ChainBSC:      appConfig.Chains.BSCRPCEndpoint,
		model.ChainPolygon:  appConfig.Chains.PolygonRPCEndpoint,
	}

	for _, chain := range reg.Chains() {
		switch {
		case chain.IsEVM():
			rpc, err := evmrpc.New(chain, evmEndpoints[chain], reg, logger)
			if err != nil {
				logger.Fatal("failed to dial rpc endpoint", map[string]string{
					"chain": string(chain),
					"error": err.Error(),
				})
				return
			}
			adapters[chain] = rpc
			sources[chain] = rpc
		case chain == model.ChainBitcoin:
			adapters[chain] = btcrpc.New(appConfig, reg, logger)
		case chain == model.ChainSolana:
			adapters[chain] = solanarpc.New(logger)
		case chain == model.ChainTron:
			adapters[chain] = tronrpc.New(logger)
		}
	}

	gateway := ledger.New(s, logger)
	publisher := events.New(appConfig, logger)

	rpcTimeout := time.Duration(appConfig.Payment.RPCTimeoutSeconds) * time.Second
	orchestrator := verify.New(db, s, gateway, adapters, reg, publisher, logger, rpcTimeout)

	rec := reconciler.New(db, s, gateway, orchestrator, reg, publisher, logger)

	c := cron.New(cron.WithChain(
		cron.SkipIfStillRunning(cron.DiscardLogger),
	))

	interval := fmt.Sprintf("@every %ds", appConfig.Payment.PollIntervalSeconds)
	c.AddFunc(interval, func() {
		rec.Run(context.Background())
	})

	for chain, source := range sources {
		sc := scanner.New(chain, db, s, source, orchestrator, logger, appConfig.Payment.MaxBlockRangePerScan)
		c.AddFunc(interval, func() {
			sc.Run(context.Background())
		})
	}

	c.Start()

	httpServer := http.NewHttpServer(appConfig, logger, db, s, orchestrator)

	srv := &nethttp.Server{
		Addr:    ":" + appConfig.ApiServer.Port,
		Handler: httpServer,
	}

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != nethttp.ErrServerClosed {
			logger.Fatal("http server stopped", map[string]string{
				"error": err.Error(),
			})
		}
	}()

	logger.Info("payment engine started", map[string]string{
		"port": appConfig.ApiServer.Port,
	})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()

	logger.Info("shutting down")

	cronCtx := c.Stop()
	<-cronCtx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("http server shutdown failed", map[string]string{
			"error": err.Error(),
		})
	}
}
