package worker

import (
	"fmt"
	"time"

	sdkclient "go.temporal.io/sdk/client"
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/evalforge/evalforge/internal/cache"
	"github.com/evalforge/evalforge/internal/config"
	"github.com/evalforge/evalforge/internal/engine"
	"github.com/evalforge/evalforge/internal/llm"
	"github.com/evalforge/evalforge/internal/llm/circuitbreaker"
	"github.com/evalforge/evalforge/internal/llm/ratelimit"
	"github.com/evalforge/evalforge/internal/llm/retry"
	"github.com/evalforge/evalforge/internal/llm/transport"
	"github.com/evalforge/evalforge/internal/pricing"
	"github.com/evalforge/evalforge/internal/recovery"
)

// InitializeEngine assembles the evaluation engine from configuration: the
// inference client with its resilience pipeline, the recovery manager, and
// the pricing registry. The returned cleanup stops the recovery GC.
func InitializeEngine(cfg config.Config) (*engine.Engine, func()) {
	rec := recovery.NewManager(time.Minute)

	policy := retry.DefaultPolicy()
	policy.MaxRetries = cfg.Retry.MaxRetries
	policy.BaseDelay = cfg.Retry.BaseDelay
	policy.MaxDelay = cfg.Retry.MaxDelay
	policy.Multiplier = cfg.Retry.Multiplier

	responses := cache.NewResponseCache(
		cache.WithMaxEntries[*transport.Response](cfg.Cache.MaxEntries),
		cache.WithDefaultTTL[*transport.Response](cfg.Cache.TTL),
	)

	client := llm.NewClient(llm.Config{
		Retry: policy,
		RateLimit: ratelimit.Config{
			RPS:     cfg.RateLimit.RPS,
			Burst:   cfg.RateLimit.Burst,
			MaxWait: cfg.RateLimit.MaxWait,
		},
		Recovery:  rec,
		Responses: responses,
		Breaker: circuitbreaker.Config{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			OpenTimeout:      cfg.Breaker.OpenTimeout,
		},
	})
	for name, provider := range cfg.Providers {
		client.RegisterProvider(name, provider.Endpoint)
	}

	eng := engine.New(client, rec, pricing.NewRegistry(cfg.Pricing.FailClosed))
	cleanup := func() {
		responses.Close()
		rec.Close()
	}
	return eng, cleanup
}

// Run connects to the Temporal server, registers the workflow and
// activities, and blocks serving the task queue until interrupted.
func Run(cfg config.Config) error {
	eng, cleanup := InitializeEngine(cfg)
	defer cleanup()

	c, err := sdkclient.Dial(sdkclient.Options{
		HostPort:  cfg.Temporal.HostPort,
		Namespace: cfg.Temporal.Namespace,
	})
	if err != nil {
		return fmt.Errorf("connect to temporal: %w", err)
	}
	defer c.Close()

	w := sdkworker.New(c, cfg.Temporal.TaskQueue, sdkworker.Options{})
	RegisterAll(w, eng)

	if err := w.Run(sdkworker.InterruptCh()); err != nil {
		return fmt.Errorf("worker stopped: %w", err)
	}
	return nil
}
