// Package expiry sweeps stored analyses past their retention window.
package expiry

import (
	"context"
	"time"

	analysisdomain "github.com/unselab/saju/internal/analysis/domain"
	"github.com/unselab/saju/internal/clock"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Config struct {
	PollInterval time.Duration
	RunTimeout   time.Duration
}

func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.PollInterval <= 0 {
		c.PollInterval = time.Hour
	}
	if c.RunTimeout <= 0 {
		c.RunTimeout = time.Minute
	}
	return c
}

type Params struct {
	fx.In

	Log    *zap.Logger
	Clock  clock.Clock
	Repo   analysisdomain.Repository
	Config Config `optional:"true"`
}

type Worker struct {
	log   *zap.Logger
	clock clock.Clock
	repo  analysisdomain.Repository
	cfg   Config
}

func NewWorker(p Params) *Worker {
	return &Worker{
		log:   p.Log.Named("expiry"),
		clock: p.Clock,
		repo:  p.Repo,
		cfg:   p.Config.withDefaults(),
	}
}

func (w *Worker) RunForever(ctx context.Context) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()

	for {
		if err := w.RunOnce(ctx); err != nil {
			w.log.Warn("expiry sweep failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (w *Worker) RunOnce(parentCtx context.Context) error {
	ctx, cancel := context.WithTimeout(parentCtx, w.cfg.RunTimeout)
	defer cancel()

	removed, err := w.repo.DeleteExpired(ctx, w.clock.Now())
	if err != nil {
		return err
	}
	if removed > 0 {
		w.log.Info("expired analyses removed", zap.Int64("count", removed))
	}
	return nil
}
