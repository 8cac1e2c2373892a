package main

import (
	"context"
	"os"
	"time"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/prwire/subscriber/internal/auth"
	"github.com/prwire/subscriber/internal/auth/providers"
	"github.com/prwire/subscriber/internal/auth/session"
	"github.com/prwire/subscriber/internal/badge"
	"github.com/prwire/subscriber/internal/config"
	"github.com/prwire/subscriber/internal/logger"
	"github.com/prwire/subscriber/internal/preview"
	"github.com/prwire/subscriber/internal/server"
	"github.com/prwire/subscriber/internal/store"
	"github.com/prwire/subscriber/internal/subscriber"
)

func main() {
	Execute()
}

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "prwire-subscriber",
	Short: "Verified follower count service",
	Long: `PRWIRE Subscriber lets signed-in users connect an X/Twitter account,
caches their follower count, and serves a shareable verification badge.`,
	Run: runServer,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	// Place version check in PreRun to ensure flags are parsed first
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		versionFlag, _ := cmd.Flags().GetBool("version")
		if versionFlag {
			pterm.Info.Println(config.GetVersionInfo())
			os.Exit(0)
		}
	}

	if err := rootCmd.Execute(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}
}

func init() {
	config.InitFlags()
	rootCmd.PersistentFlags().AddFlagSet(pflag.CommandLine)
	rootCmd.PersistentFlags().BoolP("version", "v", false, "Show version information")
}

func runServer(cmd *cobra.Command, args []string) {
	cfg, err := config.Load()
	if err != nil {
		pterm.Error.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := logger.InitLogger(&cfg.Logging); err != nil {
		pterm.Error.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		_ = logger.Sync()
	}()

	app := fx.New(
		fx.NopLogger,
		fx.Supply(cfg),
		fx.Provide(
			func(c *config.Config) *config.TwitterConfig { return &c.Twitter },
			func(c *config.Config) *config.RedisConfig { return &c.Redis },
			func(c *config.Config) *config.SessionConfig { return &c.Session },
			func(c *config.Config) *config.BadgeConfig { return &c.Badge },
			fx.Annotate(store.NewRedisStore, fx.As(new(store.Store))),
			fx.Annotate(providers.NewTwitterProvider, fx.As(new(providers.Provider))),
			newStateStore,
			newRecords,
			newCrawlerPolicy,
			newPageRenderer,
			auth.NewService,
			session.NewVerifier,
			badge.NewRenderer,
		),
		server.Module,
		fx.Invoke(registerServer),
	)

	app.Run()
}

func newStateStore(st store.Store, cfg *config.TwitterConfig) *auth.StateStore {
	return auth.NewStateStore(st, providers.PlatformTwitter, cfg.StateTTLDuration())
}

func newRecords(st store.Store, cfg *config.BadgeConfig) *subscriber.Service {
	return subscriber.NewService(st, cfg.Threshold())
}

func newCrawlerPolicy(cfg *config.Config) (*preview.CrawlerPolicy, error) {
	if cfg.Preview.CrawlerPolicyFile != "" {
		return preview.LoadCrawlerPolicy(cfg.Preview.CrawlerPolicyFile)
	}
	return preview.DefaultCrawlerPolicy(), nil
}

func newPageRenderer(cfg *config.TwitterConfig) *preview.PageRenderer {
	return preview.NewPageRenderer(cfg.AppURL)
}

// registerServer ties the HTTP server to the fx lifecycle: the listener runs
// until shutdown, and a listener failure stops the application.
func registerServer(lc fx.Lifecycle, shutdowner fx.Shutdowner, srv *server.Server, st store.Store) {
	ctx, cancel := context.WithCancel(context.Background())

	lc.Append(fx.Hook{
		OnStart: func(startCtx context.Context) error {
			if pinger, ok := st.(interface{ Ping(context.Context) error }); ok {
				pingCtx, pingCancel := context.WithTimeout(startCtx, 5*time.Second)
				defer pingCancel()
				if err := pinger.Ping(pingCtx); err != nil {
					return err
				}
			}

			go func() {
				if err := srv.Start(ctx); err != nil {
					logger.Error("Server exited", zap.Error(err))
				}
				_ = shutdowner.Shutdown()
			}()
			return nil
		},
		OnStop: func(context.Context) error {
			cancel()
			return nil
		},
	})
}
