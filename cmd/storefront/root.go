package main

import (
	"fmt"

	"github.com/fjod/go_cart/storefront/internal/api"
	"github.com/fjod/go_cart/storefront/internal/config"
	"github.com/fjod/go_cart/storefront/internal/logger"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

// cli carries what every subcommand shares.
type cli struct {
	v          *viper.Viper
	configPath string
}

func rootCmd() *cobra.Command {
	c := &cli{v: config.New()}

	cmd := &cobra.Command{
		Use:   "storefront",
		Short: "Mangal Chai storefront gateway",
		Long: `storefront serves the Mangal Chai shop front: catalog browsing, a per-visitor
cart and the checkout flow, either as a direct order or through the hosted
payment widget. Catalog, orders and payment sessions live in the store backend.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&c.configPath, "config", "c", "", "config file (yaml, json or toml)")
	cmd.PersistentFlags().String("api-base-url", "", "store backend base URL")
	cmd.PersistentFlags().String("log-level", "", "log level (debug, info, warn, error)")
	cmd.PersistentFlags().String("log-format", "", "log format (json, console)")
	bindFlags(c.v, cmd.PersistentFlags(), map[string]string{
		"api_base_url": "api-base-url",
		"log_level":    "log-level",
		"log_format":   "log-format",
	})

	cmd.AddCommand(
		serveCmd(c),
		productsCmd(c),
		categoriesCmd(c),
		orderCmd(c),
		versionCmd(),
	)
	return cmd
}

func (c *cli) load() (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(c.v, c.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	log, err := logger.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return nil, nil, err
	}
	zap.ReplaceGlobals(log)
	return cfg, log, nil
}

func newBackendClient(cfg *config.Config, log *zap.Logger, observer api.Observer) (*api.Client, error) {
	opts := []api.Option{
		api.WithTimeout(cfg.RequestTimeout),
		api.WithLogger(log),
	}
	if observer != nil {
		opts = append(opts, api.WithObserver(observer))
	}
	if cfg.Breaker.Enabled {
		opts = append(opts, api.WithBreaker(api.BreakerConfig{
			Failures:    cfg.Breaker.Failures,
			OpenTimeout: cfg.Breaker.OpenTimeout,
		}))
	}
	return api.NewClient(cfg.APIBaseURL, opts...)
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "storefront version %s (build: %s)\n", Version, BuildTime)
		},
	}
}

// bindFlags maps config keys to flags. Unset flags leave defaults, env and
// config file values alone.
func bindFlags(v *viper.Viper, flags *pflag.FlagSet, keys map[string]string) {
	for key, name := range keys {
		if err := v.BindPFlag(key, flags.Lookup(name)); err != nil {
			panic(fmt.Sprintf("bind flag %s: %v", name, err))
		}
	}
}
