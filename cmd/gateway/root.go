package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"sql-gateway/internal/app"
	"sql-gateway/internal/config"
	internaldb "sql-gateway/internal/db"
)

var (
	version = "dev"
	commit  = "none"
)

func execute(args []string) int {
	rootCmd := newRootCmd(os.Stdout)
	rootCmd.SetArgs(args)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 1
	}
	return 0
}

// envFlags names flags that override an environment variable when set.
var envFlags = map[string]string{
	"listen":    "LISTEN_ADDR",
	"engine":    "ENGINE_URL",
	"db":        "META_DB_PATH",
	"log-level": "LOG_LEVEL",
	"config":    config.ConfigFileEnv,
	"traces":    "OTEL_TRACES_EXPORTER",
}

func newRootCmd(out io.Writer) *cobra.Command {
	var envFile string

	rootCmd := &cobra.Command{
		Use:           "sql-gateway",
		Short:         "SQL gateway for remote query engines",
		Long:          "Accepts SQL statements over HTTP and runs them asynchronously on remote engine agents.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if err := config.LoadDotEnv(envFile); err != nil {
				return fmt.Errorf("load env file: %w", err)
			}
			return applyEnvFlags(cmd.Flags())
		},
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "Dotenv file loaded before the environment is read")
	rootCmd.PersistentFlags().String("config", "", "YAML config file (same as "+config.ConfigFileEnv+")")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error")
	rootCmd.PersistentFlags().String("db", "", "Operation history SQLite path")

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newTokenCmd())
	rootCmd.AddCommand(newVersionCmd())
	return rootCmd
}

// applyEnvFlags exports explicitly set flags so config.LoadFromEnv sees them
// with precedence over the environment.
func applyEnvFlags(flags *pflag.FlagSet) error {
	var err error
	flags.Visit(func(f *pflag.Flag) {
		key, ok := envFlags[f.Name]
		if !ok || err != nil {
			return
		}
		err = os.Setenv(key, f.Value.String())
	})
	return err
}

func newLogger(cfg *config.Config) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	slog.SetDefault(logger)
	for _, w := range cfg.Warnings {
		logger.Warn(w)
	}
	return logger
}

func newServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the gateway HTTP server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			logger := newLogger(cfg)

			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()

			writeDB, readDB, err := internaldb.OpenSQLitePair(cfg.MetaDBPath, 0)
			if err != nil {
				return fmt.Errorf("open history db: %w", err)
			}
			defer readDB.Close()  //nolint:errcheck
			defer writeDB.Close() //nolint:errcheck

			if err := internaldb.RunMigrations(writeDB); err != nil {
				return fmt.Errorf("migrate history db: %w", err)
			}

			gateway, err := app.New(ctx, app.Deps{
				Cfg:     cfg,
				WriteDB: writeDB,
				ReadDB:  readDB,
				Logger:  logger,
				Version: version,
			})
			if err != nil {
				return err
			}
			logger.Info("gateway starting", "version", version, "engine", cfg.EngineURL, "pool_size", cfg.PoolSize)
			return gateway.Run(ctx)
		},
	}
	cmd.Flags().String("listen", "", "HTTP listen address")
	cmd.Flags().String("engine", "", "Default engine endpoint (grpc:// or grpcs://)")
	cmd.Flags().String("traces", "", "Span exporter: none, console, otlp")
	return cmd
}

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply operation history migrations and print the schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.LoadFromEnv()
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			db, err := internaldb.OpenSQLite(cfg.MetaDBPath, internaldb.ModeWrite, 0)
			if err != nil {
				return err
			}
			defer db.Close() //nolint:errcheck

			if err := internaldb.RunMigrations(db); err != nil {
				return err
			}
			v, err := internaldb.SchemaVersion(db)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "schema version %d\n", v)
			return err
		},
	}
}

func newTokenCmd() *cobra.Command {
	var ttl time.Duration
	cmd := &cobra.Command{
		Use:   "token <user>",
		Short: "Mint a client bearer token signed with AUTH_JWT_SECRET",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			secret := os.Getenv("AUTH_JWT_SECRET")
			if secret == "" {
				return fmt.Errorf("AUTH_JWT_SECRET is not set")
			}
			now := time.Now()
			token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
				Subject:   args[0],
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			}).SignedString([]byte(secret))
			if err != nil {
				return fmt.Errorf("sign token: %w", err)
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().DurationVar(&ttl, "ttl", 12*time.Hour, "Token lifetime")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "sql-gateway %s (commit %s)\n", version, commit)
		},
	}
}

