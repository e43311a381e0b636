package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/efund/unitperf/pkg/config"
	"github.com/efund/unitperf/pkg/database"
	"github.com/efund/unitperf/pkg/redis"
)

// checkCmd represents the check command
var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Check database and cache connectivity",
	Long: `Verifies the backing stores before a batch run.

This command:
- loads DATABASE_URL from config
- pings PostgreSQL and prints pool statistics
- pings Redis when the cache is enabled

Example:
  go run ./cmd/unitperf check
  go run ./cmd/unitperf check --env production`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)
}

func runCheck(cmd *cobra.Command, args []string) error {
	fmt.Println("Loading configuration...")
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	fmt.Printf("Config loaded (ENV: %s)\n", cfg.Env)

	fmt.Println("Connecting to database...")
	db, err := database.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := db.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("database health check failed: %w", err)
	}

	fmt.Println("Database OK")
	fmt.Printf("   Response Time: %v\n", status.ResponseTime)
	fmt.Printf("   Max Connections: %d\n", status.Stats.MaxConns)
	fmt.Printf("   Total Connections: %d\n", status.Stats.TotalConns)
	fmt.Printf("   Idle Connections: %d\n", status.Stats.IdleConns)

	if !cfg.Redis.Enabled {
		fmt.Println("Redis disabled, skipping")
		return nil
	}

	fmt.Println("Connecting to Redis...")
	cache, err := redis.New(cfg)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}
	defer cache.Close()

	if err := cache.Redis().Ping(ctx).Err(); err != nil {
		return fmt.Errorf("redis ping failed: %w", err)
	}
	fmt.Println("Redis OK")

	return nil
}
