package main

import (
	"context"
	"fmt"
	"time"

	"github.com/eraiiz/shipping/config"
	"github.com/eraiiz/shipping/internal/broker/kafka"
	"github.com/eraiiz/shipping/internal/localstore"
	"github.com/eraiiz/shipping/internal/models"
	"github.com/eraiiz/shipping/internal/shipapi"
	"github.com/eraiiz/shipping/internal/store"
)

type agentFactories struct {
	newTokens      func(cfg *config.Config) shipapi.TokenSource
	newClient      func(cfg *config.Config, tokens shipapi.TokenSource) *shipapi.Client
	newProducer    func(cfg *config.Config) store.Producer
	newRateLimiter func(cfg *config.Config) store.RateLimiter

	onListen func(httpAddr string)
}

func defaultAgentFactories() agentFactories {
	return agentFactories{
		newTokens: func(cfg *config.Config) shipapi.TokenSource {
			redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
			return localstore.New(redisAddr)
		},
		newClient: func(cfg *config.Config, tokens shipapi.TokenSource) *shipapi.Client {
			return shipapi.New(cfg.Backend.BaseURL, tokens)
		},
		newProducer: func(cfg *config.Config) store.Producer {
			if cfg.Kafka.Host == "" {
				return nil
			}
			brokers := []string{fmt.Sprintf("%s:%d", cfg.Kafka.Host, cfg.Kafka.Port)}
			return kafka.NewProducer(brokers)
		},
		newRateLimiter: func(cfg *config.Config) store.RateLimiter {
			if cfg.Agent.RefreshRateLimitPerMinute <= 0 {
				return nil
			}
			redisAddr := fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port)
			return localstore.NewRateLimiter(redisAddr)
		},
	}
}

func RunShipAgent(ctx context.Context, cfg *config.Config, f agentFactories) error {
	topic := cfg.Kafka.StatusChangedTopicName
	if topic == "" {
		topic = "shipment.status.changed"
	}

	interval := time.Duration(cfg.Agent.RefreshIntervalSeconds) * time.Second
	if interval <= 0 {
		interval = 30 * time.Second
	}
	pageSize := cfg.Agent.PageSize
	if pageSize <= 0 {
		pageSize = 10
	}

	tokens := f.newTokens(cfg)
	client := f.newClient(cfg, tokens)

	st := store.New(client).WithPageSize(pageSize)
	if producer := f.newProducer(cfg); producer != nil {
		st = st.WithProducer(producer, topic)
	}
	st.UpdateFilters(models.ShipmentFilters{
		SellerID: cfg.Agent.SellerID,
		BuyerID:  cfg.Agent.BuyerID,
	})

	refresher := store.NewRefresher(st).
		WithSettings(interval, f.newRateLimiter(cfg), int64(cfg.Agent.RefreshRateLimitPerMinute))

	// Seed the state on startup the way a dashboard fetches on mount. The
	// trigger is queued before the loop starts, so the first cycle runs
	// immediately and bypasses the active gate.
	refresher.Trigger()

	refresherErr := make(chan error, 1)
	go func() {
		refresherErr <- refresher.Run(ctx)
	}()

	httpErr := make(chan error, 1)
	go func() {
		httpErr <- runAgentHTTPServer(ctx, agentHTTPOpts{
			httpAddr:    cfg.Agent.HTTPAddr,
			swaggerPath: cfg.Agent.SwaggerPath,
			onListen:    f.onListen,
			store:       st,
			refresher:   refresher,
			client:      client,
			cfg:         cfg,
		})
	}()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-refresherErr:
		return err
	case err := <-httpErr:
		return err
	}
}
