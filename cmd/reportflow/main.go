package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/medialert/reportflow/internal/config"
	"github.com/medialert/reportflow/internal/container"
	"github.com/medialert/reportflow/internal/domain/entity"
	httpapi "github.com/medialert/reportflow/internal/interfaces/http"
	"github.com/medialert/reportflow/pkg/database"
	"github.com/medialert/reportflow/pkg/utils"
)

var version = "dev"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:           "reportflow",
		Short:         "Adverse-effect report workflow service",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", os.Getenv("REPORTFLOW_CONFIG"), "Path to YAML config file")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(migrateCmd(&configPath))
	rootCmd.AddCommand(provisionUserCmd(&configPath))
	rootCmd.AddCommand(tokenCmd(&configPath))

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// bootstrap loads configuration and builds the logger every command shares
func bootstrap(configPath string) (*config.Config, *zap.Logger, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize logger: %w", err)
	}

	return cfg, logger, nil
}

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			httpapi.Version = version
			logger.Info("Starting reportflow",
				zap.String("version", version),
				zap.Int("port", cfg.Server.Port),
				zap.String("assignment_scope", cfg.Assignment.Scope))

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
			if err != nil {
				return err
			}
			if err := c.Start(ctx); err != nil {
				return err
			}

			health := c.Health(ctx)
			for name, component := range health.Components {
				logger.Info("Component status",
					zap.String("component", name),
					zap.Bool("healthy", component.Healthy),
					zap.String("message", component.Message))
			}
			if !health.Overall {
				logger.Warn("Serving with unhealthy components")
			}

			serveErr := c.Serve(ctx)
			if serveErr != nil {
				logger.Error("Server stopped with error", zap.Error(serveErr))
			}

			if err := c.Close(); err != nil {
				return err
			}
			return serveErr
		},
	}
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			conn, err := database.New(database.Config{
				Path:            cfg.Database.Path,
				MaxOpenConns:    cfg.Database.MaxOpenConns,
				MaxIdleConns:    cfg.Database.MaxIdleConns,
				ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
			}, logger)
			if err != nil {
				return err
			}
			defer conn.Close()

			applied, err := container.RunMigrations(conn, logger)
			if err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "applied %d migration(s)\n", applied)
			return nil
		},
	}
}

func provisionUserCmd(configPath *string) *cobra.Command {
	var (
		id          string
		role        string
		institution string
		name        string
	)

	cmd := &cobra.Command{
		Use:   "provision-user",
		Short: "Create or update a user in the directory",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
			if err != nil {
				return err
			}
			if err := c.Start(cmd.Context()); err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			user, err := c.Services().User.ProvisionUser(cmd.Context(), entity.SystemCaller, entity.User{
				ID:            id,
				Role:          entity.Role(role),
				InstitutionID: institution,
				DisplayName:   name,
			})
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(user)
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "User identifier (required)")
	cmd.Flags().StringVar(&role, "role", "", "PATIENT, PROFESSIONAL, SUPERVISOR or ADMIN (required)")
	cmd.Flags().StringVar(&institution, "institution", "", "Institution identifier")
	cmd.Flags().StringVar(&name, "name", "", "Display name")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("role")

	return cmd
}

// tokenCmd mints a bearer token for an existing user, for local testing
func tokenCmd(configPath *string) *cobra.Command {
	var (
		id  string
		ttl time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue a bearer token for a provisioned user",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := bootstrap(*configPath)
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			c, err := container.NewContainer(cfg.ToContainerConfig(), logger)
			if err != nil {
				return err
			}
			if err := c.Start(cmd.Context()); err != nil {
				return err
			}
			defer func() { _ = c.Close() }()

			user, err := c.Services().User.GetUser(cmd.Context(), id)
			if err != nil {
				return err
			}
			if user == nil {
				return fmt.Errorf("user %q is not provisioned", id)
			}

			auth := httpapi.NewAuthenticator(cfg.Auth.JWTSecret, cfg.Auth.Issuer)
			token, err := auth.Issue(entity.Caller{
				ID:            user.ID,
				Role:          user.Role,
				InstitutionID: user.InstitutionID,
			}, ttl)
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&id, "id", "", "User identifier (required)")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "Token lifetime")
	_ = cmd.MarkFlagRequired("id")

	return cmd
}
