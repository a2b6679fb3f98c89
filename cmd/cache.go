package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/paras-verma7454/DriveDeck/internal"
	"github.com/paras-verma7454/DriveDeck/internal/auth"
	"github.com/paras-verma7454/DriveDeck/internal/core/events"
	"github.com/paras-verma7454/DriveDeck/pkg/logger"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

var cacheCmd = &cobra.Command{
	Use:   "cache",
	Short: "Entitlement cache commands",
}

var invalidateUserID string

var cacheInvalidateCmd = &cobra.Command{
	Use:   "invalidate",
	Short: "Drop cached entitlements for one user, or for everyone",
	Long:  `Publishes an entitlement change on a local event bus wired to the shared redis cache. Only the redis driver is shared between instances.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		if ctx == nil {
			ctx = context.Background()
		}

		cfg, err := loadConfig(configPath)
		if err != nil {
			return err
		}
		if cfg.Cache.Driver != internal.CacheDriverRedis {
			return errors.New("cache invalidate needs cache.driver=redis; other drivers are per process")
		}

		client := redis.NewClient(&redis.Options{Addr: cfg.Cache.RedisAddr})
		defer client.Close()

		event, err := invalidationEvent(invalidateUserID)
		if err != nil {
			return err
		}
		return publishInvalidation(ctx, cfg.Cache, client, event)
	},
}

func invalidationEvent(userID string) (events.Event, error) {
	if userID != "" {
		return events.NewUserEntitlementsChangedEvent(userID, "manual invalidation"), nil
	}
	return events.NewRoleEntitlementsChangedEvent(0, "manual invalidation"), nil
}

func publishInvalidation(ctx context.Context, cfg internal.CacheConfig, client *redis.Client, event events.Event) error {
	cache, err := auth.NewEntitlementCache(cfg, client)
	if err != nil {
		return err
	}

	lg := logger.LoggerWrapper()
	bus := events.NewEventBus(lg)
	auth.NewService(nil, nil, cache, nil, 0).RegisterEventHandlers(bus)

	if err := bus.PublishSync(ctx, event); err != nil {
		return fmt.Errorf("invalidate: %w", err)
	}
	lg.Info("entitlement cache invalidated", "event_type", event.EventType(), "event_id", event.EventID())
	return nil
}

func init() {
	cacheInvalidateCmd.Flags().StringVarP(&invalidateUserID, "user", "u", "", "user id; empty drops every cached entry")
	cacheCmd.AddCommand(cacheInvalidateCmd)
}
