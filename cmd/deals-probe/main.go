// deals-probe checks connectivity to a HubSpot account and optionally
// exports all deals as JSON lines on stdout.
//
// Usage:
//
//	HUBSPOT_ACCESS_TOKEN=... deals-probe            # connection test
//	HUBSPOT_ACCESS_TOKEN=... MODE=export deals-probe > deals.jsonl
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/dealsync/hubspot-deals-client/pkg/cache"
	"github.com/dealsync/hubspot-deals-client/pkg/client"
	"github.com/dealsync/hubspot-deals-client/pkg/deals"
	"github.com/dealsync/hubspot-deals-client/pkg/diagnostics"
	"github.com/dealsync/hubspot-deals-client/pkg/logging"
	"github.com/dealsync/hubspot-deals-client/pkg/pagination"
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}

	logging.Setup(logging.Config{
		Level:  logging.LogLevel(cfg.Log.Level),
		Pretty: cfg.Log.Pretty,
		Output: os.Stderr,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg); err != nil {
		log.Error().Err(err).Msg("deals-probe failed")
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *Config) error {
	clientCfg := client.DefaultConfig()
	clientCfg.BaseURL = cfg.HubSpot.BaseURL

	var fetcherOpts []deals.Option
	if cfg.Redis.URL != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.URL})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			return fmt.Errorf("redis at %s unreachable: %w", cfg.Redis.URL, err)
		}
		log.Info().Str("redis_url", cfg.Redis.URL).Msg("Connected to Redis")
		clientCfg.Redis = redisClient
		fetcherOpts = append(fetcherOpts, deals.WithSchemaCache(cache.NewManager(redisClient, 0)))
	}

	hubspot, err := client.New(clientCfg)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	hubspot.SetAccessToken(cfg.HubSpot.AccessToken)

	fetcher := deals.NewFetcher(hubspot, fetcherOpts...)

	switch cfg.Export.Mode {
	case "test":
		return runConnectionTest(ctx, hubspot, fetcher, cfg)
	case "export":
		return runExport(ctx, fetcher, cfg)
	default:
		return fmt.Errorf("unknown mode %q, want test or export", cfg.Export.Mode)
	}
}

func runConnectionTest(ctx context.Context, hubspot *client.Client, fetcher *deals.Fetcher, cfg *Config) error {
	checker := diagnostics.NewChecker(hubspot, fetcher)
	report := checker.TestConnection(ctx, cfg.HubSpot.AccessToken)

	out, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))

	if !report.TokenValid {
		return fmt.Errorf("credential rejected by HubSpot")
	}
	if !report.DataAccessible {
		return fmt.Errorf("deals endpoint not accessible")
	}
	return nil
}

func runExport(ctx context.Context, fetcher *deals.Fetcher, cfg *Config) error {
	// Surface the schema before the export; served from Redis when the
	// cache is configured and warm.
	properties, err := fetcher.GetDealProperties(ctx, cfg.HubSpot.AccessToken)
	if err != nil {
		return fmt.Errorf("fetch deal properties: %w", err)
	}
	log.Info().Int("property_count", len(properties)).Msg("Deal schema loaded")

	pagerCfg := pagination.DefaultConfig()
	pagerCfg.MaxPages = cfg.Export.MaxPages
	pager := pagination.NewPager(fetcher, pagerCfg)

	req := deals.PageRequest{}
	if cfg.Export.Properties != "" {
		req.Properties = strings.Split(cfg.Export.Properties, ",")
	}

	enc := json.NewEncoder(os.Stdout)
	exported := 0
	err = pager.ForEachPage(ctx, cfg.HubSpot.AccessToken, req, func(page *deals.PageResult) error {
		for i := range page.Deals {
			if err := enc.Encode(&page.Deals[i]); err != nil {
				return err
			}
			exported++
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("export stopped after %d deals: %w", exported, err)
	}

	log.Info().Int("deal_count", exported).Msg("Export complete")
	return nil
}
