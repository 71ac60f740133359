package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/anthanhphan/go-set-reconciliation/internal/reconcile/adapter/outbound/random"
	"github.com/anthanhphan/go-set-reconciliation/internal/reconcile/config"
	"github.com/anthanhphan/go-set-reconciliation/internal/reconcile/domain"
	"github.com/anthanhphan/go-set-reconciliation/internal/reconcile/port"
	"github.com/anthanhphan/go-set-reconciliation/internal/reconcile/service"
	"github.com/anthanhphan/go-set-reconciliation/pkg/itemset"
	"github.com/anthanhphan/gosdk/logger"
)

type App struct {
	cfg         *config.Config
	source      port.ItemSource
	coordinator *service.Coordinator
}

func New(configPath string) (*App, error) {
	// 1. Load Config
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	// 2. Initialize Logger
	logger.InitLogger(&cfg.Logger)

	// 3. Data source and coordinator
	return newApp(cfg, random.NewSource(cfg.Dataset)), nil
}

func newApp(cfg *config.Config, source port.ItemSource) *App {
	opts := service.SnapshotOptions{
		CapacityHint:      cfg.Filter.CapacityHint,
		FalsePositiveRate: cfg.Filter.FalsePositiveRate,
		Buckets:           cfg.Filter.Buckets,
	}
	return &App{
		cfg:         cfg,
		source:      source,
		coordinator: service.NewCoordinator(opts, cfg.Round.Workers),
	}
}

func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Infow("Reconciliation harness starting",
		"rounds", a.cfg.Round.Count,
		"replicas", a.cfg.Dataset.Replicas,
		"max_items_per_node", a.cfg.Dataset.MaxItemsPerNode,
		"capacity_hint", a.cfg.Filter.CapacityHint,
		"fp_rate", a.cfg.Filter.FalsePositiveRate,
		"buckets", a.cfg.Filter.Buckets)

	_, err := a.RunRounds(ctx)
	if err != nil {
		logger.Errorw("Reconciliation harness failed", "error", err.Error())
		return err
	}

	logger.Info("Reconciliation harness finished")
	return nil
}

// RunRounds runs the configured number of rounds, each on freshly generated data.
func (a *App) RunRounds(ctx context.Context) ([]*domain.RoundReport, error) {
	reports := make([]*domain.RoundReport, 0, a.cfg.Round.Count)
	for i := 0; i < a.cfg.Round.Count; i++ {
		report, err := a.runRound(ctx)
		if err != nil {
			return reports, err
		}
		reports = append(reports, report)
	}
	return reports, nil
}

func (a *App) runRound(ctx context.Context) (*domain.RoundReport, error) {
	master, err := a.generate(ctx, "node-0/master")
	if err != nil {
		return nil, err
	}

	replicas := make([]*itemset.ItemSet, 0, a.cfg.Dataset.Replicas)
	for i := 1; i <= a.cfg.Dataset.Replicas; i++ {
		replica, err := a.generate(ctx, fmt.Sprintf("node-%d/replica", i))
		if err != nil {
			return nil, err
		}
		replicas = append(replicas, replica)
	}

	return a.coordinator.RunRound(ctx, master, replicas)
}

func (a *App) generate(ctx context.Context, owner string) (*itemset.ItemSet, error) {
	set, err := a.source.Generate(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to generate items for %s: %w", owner, err)
	}
	logger.Debugw("Node initialized", "node", owner, "items", set.Sorted())
	return set, nil
}
