package main

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"

	"github.com/openpay-labs/x402-facilitator/facilitator"
	"github.com/openpay-labs/x402-facilitator/ledger"
	"github.com/openpay-labs/x402-facilitator/logger"
	"github.com/openpay-labs/x402-facilitator/metrics"
	"github.com/openpay-labs/x402-facilitator/scheme"
	"github.com/openpay-labs/x402-facilitator/scheme/exactevm"
	"github.com/openpay-labs/x402-facilitator/server"
	"github.com/openpay-labs/x402-facilitator/signer"
	"github.com/openpay-labs/x402-facilitator/types"
)

type config struct {
	port        string
	privateKey  string
	rpcURL      string
	network     types.Network
	databaseURL string
	logLevel    string
}

func loadConfig() config {
	// A missing .env file is fine; the environment may be set directly.
	_ = godotenv.Load()

	cfg := config{
		port:        envOr("PORT", "4022"),
		privateKey:  os.Getenv("EVM_PRIVATE_KEY"),
		rpcURL:      envOr("EVM_RPC_URL", "https://sepolia.base.org"),
		network:     types.Network(envOr("NETWORK", types.NetworkBaseSepolia.String())),
		databaseURL: os.Getenv("DATABASE_URL"),
		logLevel:    envOr("LOG_LEVEL", "info"),
	}

	if cfg.privateKey == "" {
		log.Fatal("EVM_PRIVATE_KEY is not set; the facilitator cannot settle without a controlling account")
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func main() {
	cfg := loadConfig()
	lg := logger.NewZapLogger(cfg.logLevel)

	evmSigner, err := signer.NewEVMSigner(cfg.network, cfg.rpcURL, cfg.privateKey)
	if err != nil {
		lg.Error("signer initialization failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	defer evmSigner.Close()

	lg.Info("controlling account bound", map[string]any{
		"address": evmSigner.Address().Hex(),
		"network": cfg.network.String(),
	})

	registry := scheme.NewRegistry()
	registry.Register(exactevm.New(evmSigner, cfg.network, lg))

	recorder := metrics.NewPrometheusRecorder()

	pipeline := facilitator.New(registry,
		facilitator.WithLogger(lg),
		facilitator.WithMetrics(recorder),
		facilitator.WithHooks(auditHooks(lg)),
	)

	reconciler := buildReconciler(cfg, lg)

	srv := server.New(":"+cfg.port, pipeline, reconciler, lg)
	if err := srv.Run(); err != nil {
		lg.Error("server stopped", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
}

// buildReconciler wires the settlement ledger. Without a DATABASE_URL
// the service still runs, settling payments with an in-memory ledger.
func buildReconciler(cfg config, lg logger.Logger) server.Reconciler {
	if cfg.databaseURL == "" {
		lg.Warn("DATABASE_URL not set, using in-memory ledger", nil)
		store := ledger.NewMemoryStore()
		return ledger.NewReconciler(store, store, lg)
	}

	pool, err := ledger.NewPool(context.Background(), cfg.databaseURL)
	if err != nil {
		lg.Error("database connection failed", map[string]any{"error": err.Error()})
		os.Exit(1)
	}
	lg.Info("database connection pool established", nil)

	store := ledger.NewPostgresStore(pool)
	return ledger.NewReconciler(store, store, lg)
}

// auditHooks logs each pipeline transition. Hook failures are isolated
// by the pipeline, so these observers can never break payment
// processing.
func auditHooks(lg logger.Logger) facilitator.Hooks {
	return facilitator.Hooks{
		BeforeVerify: []facilitator.Hook{func(_ context.Context, hc *facilitator.HookContext) error {
			lg.Debug("verify requested", map[string]any{
				"scheme":  hc.Requirements.Scheme,
				"network": hc.Requirements.Network,
			})
			return nil
		}},
		AfterVerify: []facilitator.Hook{func(_ context.Context, hc *facilitator.HookContext) error {
			lg.Info("verify completed", map[string]any{
				"network": hc.Requirements.Network,
				"isValid": hc.VerifyResponse.IsValid,
				"reason":  hc.VerifyResponse.InvalidReason,
			})
			return nil
		}},
		BeforeSettle: []facilitator.Hook{func(_ context.Context, hc *facilitator.HookContext) error {
			lg.Info("settle requested", map[string]any{
				"scheme":   hc.Requirements.Scheme,
				"network":  hc.Requirements.Network,
				"resource": hc.Requirements.Resource,
			})
			return nil
		}},
		AfterSettle: []facilitator.Hook{func(_ context.Context, hc *facilitator.HookContext) error {
			lg.Info("settle completed", map[string]any{
				"network": hc.SettleResponse.Network,
				"success": hc.SettleResponse.Success,
				"txHash":  hc.SettleResponse.TransactionHash,
			})
			return nil
		}},
	}
}
