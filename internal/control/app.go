package control

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"golang.org/x/sync/errgroup"

	"github.com/vietddude/bridge/internal/api"
	"github.com/vietddude/bridge/internal/bridge"
	"github.com/vietddude/bridge/internal/core/config"
	"github.com/vietddude/bridge/internal/core/domain"
	"github.com/vietddude/bridge/internal/core/worker"
	"github.com/vietddude/bridge/internal/gateway"
	"github.com/vietddude/bridge/internal/infra/chain/evm"
	"github.com/vietddude/bridge/internal/infra/chain/sui"
	redisclient "github.com/vietddude/bridge/internal/infra/redis"
	"github.com/vietddude/bridge/internal/infra/rpc"
	"github.com/vietddude/bridge/internal/infra/storage"
	"github.com/vietddude/bridge/internal/infra/storage/memory"
	"github.com/vietddude/bridge/internal/infra/storage/postgres"
	"github.com/vietddude/bridge/internal/metrics"
	"github.com/vietddude/bridge/internal/wallet"
)

// App wires configuration into a ready orchestrator and its surroundings.
type App struct {
	cfg          *config.AppConfig
	orchestrator *bridge.Orchestrator
	source       *wallet.Provider
	destination  *wallet.Provider
	sourceRPC    *rpc.Client
	destRPC      *rpc.Client
	journal      storage.RunRepository
	db           *postgres.DB
	redisClient  *redisclient.Client
	log          *slog.Logger
}

// NewApp creates an App with all dependencies initialized. Only the journal
// backend is dialed here; chain providers connect lazily.
func NewApp(cfg *config.AppConfig) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	a := &App{cfg: cfg, log: slog.Default()}

	// 1. Initialize Storage
	if err := a.initJournal(); err != nil {
		return nil, err
	}

	// 2. Initialize RPC clients
	a.sourceRPC = newClient(domain.ChainName(cfg.Source.ChainID), cfg.Source.Providers, cfg)
	a.destRPC = newClient(cfg.Destination.Chain, cfg.Destination.Providers, cfg)

	// 3. Initialize wallets
	evmWallet := evm.NewKeyWallet(cfg.Source.PrivateKey)
	suiWallet := sui.NewKeyWallet(cfg.Destination.Chain, cfg.Destination.PrivateKey)
	a.source = wallet.NewProvider(domain.ChainSource, evmWallet)
	a.destination = wallet.NewProvider(domain.ChainDestination, suiWallet)

	// 4. Initialize chain gateways
	contract, err := evm.NewContract(a.sourceRPC, evmWallet, evm.ContractConfig{
		ChainID:       big.NewInt(cfg.Source.ChainID),
		Address:       common.HexToAddress(cfg.Source.ContractAddress),
		Confirmations: cfg.Source.Confirmations,
		PollInterval:  cfg.Gateway.PollInterval,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to init source contract: %w", err)
	}
	executor := sui.NewExecutor(a.destRPC, suiWallet, sui.ExecutorConfig{
		Chain:        suiWallet.Chain(),
		GasBudget:    cfg.Destination.GasBudget,
		PollInterval: cfg.Gateway.PollInterval,
	})
	gw := gateway.New(contract, executor, gateway.WithConfirmationTimeout(cfg.Gateway.ConfirmationTimeout))

	// 5. Initialize orchestrator
	a.orchestrator = bridge.New(gw, a.source, a.destination,
		bridge.WithConversionRate(cfg.Source.ConversionRate),
		bridge.WithNativeDecimals(cfg.Source.NativeDecimals),
		bridge.WithBridgeAddress(cfg.Source.BridgeAddress),
		bridge.WithMintTarget(cfg.Destination.PackageID, cfg.Destination.Module, cfg.Destination.Function, cfg.Destination.TokenType),
		bridge.WithObserver(bridge.NewJournalObserver(a.journal)),
		bridge.WithObserver(bridge.NewLogObserver(a.log.With("component", "stage"))),
	)

	return a, nil
}

func (a *App) initJournal() error {
	switch a.cfg.Storage.Driver {
	case "postgres":
		db, err := postgres.NewDB(context.Background(), a.cfg.Database)
		if err != nil {
			return fmt.Errorf("failed to init db: %w", err)
		}
		if err := db.Migrate(context.Background()); err != nil {
			_ = db.Close()
			return err
		}
		a.db = db
		a.journal = postgres.NewRunRepo(db)
		a.log.Info("Using PostgreSQL run journal")

	case "redis":
		client, err := redisclient.NewClient(a.cfg.Redis)
		if err != nil {
			return fmt.Errorf("failed to init redis: %w", err)
		}
		a.redisClient = client
		a.journal = redisclient.NewRunRepo(client, "bridge", a.cfg.Redis.TTL)
		a.log.Info("Using Redis run journal")

	default:
		a.journal = memory.NewRunRepo(memory.NewMemoryStorage())
		a.log.Info("Using Memory run journal")
	}
	return nil
}

func newClient(chainID string, providers []config.ProviderConfig, cfg *config.AppConfig) *rpc.Client {
	router := rpc.NewRouter()
	for _, p := range providers {
		provider := rpc.NewHTTPProvider(p.Name, p.URL, cfg.Gateway.RequestTimeout)
		if p.IntervalLimit > 0 {
			provider.WithRateLimit(p.IntervalLimit, p.Interval())
		}
		router.AddProvider(chainID, provider)
	}
	return rpc.NewClient(chainID, router)
}

// Connect connects both wallets and returns their accounts.
func (a *App) Connect(ctx context.Context) (domain.Account, domain.Account, error) {
	src, srcErr := a.source.Connect(ctx)
	dst, dstErr := a.destination.Connect(ctx)
	if err := errors.Join(srcErr, dstErr); err != nil {
		return src, dst, err
	}
	return src, dst, nil
}

func (a *App) Orchestrator() *bridge.Orchestrator {
	return a.orchestrator
}

func (a *App) Journal() storage.RunRepository {
	return a.journal
}

// Serve runs the status API and background collectors until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	opts := []api.Option{
		api.WithJournal(a.journal),
		api.WithRunContext(ctx),
		api.WithProviderHealth("source", a.sourceRPC.ProviderHealth),
		api.WithProviderHealth("destination", a.destRPC.ProviderHealth),
	}
	if a.db != nil {
		opts = append(opts, api.WithHealthCheck("database", a.db.Health))
		a.db.StartMetricsCollector(ctx)
	}
	if a.redisClient != nil {
		opts = append(opts, api.WithHealthCheck("redis", a.redisClient.Health))
	}
	server := api.NewServer(a.orchestrator, opts...)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.Run(gctx, a.cfg.Server.Port)
	})
	g.Go(func() error {
		a.runMetricsUpdater(gctx)
		return nil
	})
	if pruner, ok := a.journal.(storage.RunPruner); ok && a.cfg.Storage.Retention > 0 {
		g.Go(func() error {
			worker.NewPruner(pruner, a.cfg.Storage.Retention).Start(gctx)
			return nil
		})
	}
	return g.Wait()
}

func (a *App) runMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, client := range []*rpc.Client{a.sourceRPC, a.destRPC} {
				for name, health := range client.ProviderHealth() {
					v := 0.0
					if health.Available {
						v = 1
					}
					metrics.ProviderAvailable.WithLabelValues(client.ChainID(), name).Set(v)
				}
				slog.Debug("Updating RPC metrics", "chain", client.ChainID())
			}
		}
	}
}

// Stop cancels an active run before its next step and releases resources.
func (a *App) Stop(ctx context.Context) error {
	a.log.Info("Stopping bridge...")

	if a.orchestrator.Cancel() {
		a.log.Warn("Active run cancelled, a submitted step may still confirm on-chain")
	}
	a.source.Disconnect()
	a.destination.Disconnect()

	var errs []error
	if a.redisClient != nil {
		if err := a.redisClient.Close(); err != nil {
			a.log.Warn("Failed to close Redis", "error", err)
		}
	}
	if a.db != nil {
		errs = append(errs, a.db.Close())
	}
	return errors.Join(errs...)
}
