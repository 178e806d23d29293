package main

import (
	"context"
	"fmt"

	kidsAuth "github.com/MrEthical07/kidsAuth"
	"github.com/MrEthical07/kidsAuth/storage/sqlstore"
	"github.com/caarlos0/env/v11"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "kidsauthd",
		Short: "Authentication service for the kids video platform",
		Long: `kidsauthd serves account registration, login with SMS two-factor,
Google sign-in and profile management over HTTP.

Configuration is read from KIDSAUTH_* environment variables.`,
		SilenceUsage: true,
	}

	root.AddCommand(newServeCmd())
	root.AddCommand(newMigrateCmd())
	root.AddCommand(newAccountsCmd())
	return root
}

func envOptions() env.Options {
	return env.Options{Prefix: kidsAuth.EnvPrefix}
}

// openStore opens the configured database. The caller closes it.
func openStore(ctx context.Context, cfg serverConfig) (*sqlstore.Store, error) {
	dialect, err := sqlstore.ParseDialect(cfg.DBDriver)
	if err != nil {
		return nil, err
	}
	store, err := sqlstore.Open(ctx, dialect, cfg.DBDSN, cfg.pool())
	if err != nil {
		return nil, fmt.Errorf("open %s store: %w", dialect, err)
	}
	return store, nil
}

// openRedis connects to url. An empty url returns a nil client.
func openRedis(ctx context.Context, url string) (*redis.Client, error) {
	if url == "" {
		return nil, nil
	}
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis url: %w", err)
	}
	rdb := redis.NewClient(opts)
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}
