package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/gitcontest/xbridge/internal/backup"
	"github.com/gitcontest/xbridge/internal/bus"
	"github.com/gitcontest/xbridge/internal/db"
	"github.com/gitcontest/xbridge/internal/dispatch"
	"github.com/gitcontest/xbridge/internal/guard"
	"github.com/gitcontest/xbridge/internal/models"
	"github.com/gitcontest/xbridge/internal/notification"
	"github.com/gitcontest/xbridge/internal/retry"
	"github.com/gitcontest/xbridge/internal/scm"
	"github.com/gitcontest/xbridge/internal/server"
	"github.com/gitcontest/xbridge/internal/service"
	"github.com/gitcontest/xbridge/internal/tasks"
	"github.com/gitcontest/xbridge/internal/topcoder"
	"github.com/gitcontest/xbridge/internal/users"
)

// consumerQueue is the durable queue the processor binds to the events
// topic. The name is fixed so redeployments resume the same queue.
const consumerQueue = "xbridge-processor"

func init() {
	rootCmd.AddCommand(runCmd)
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the processor daemon",
	Long: `Start the xbridge processor.

The daemon consumes issue and copilot-payment events from the message bus,
reconciles them with the contest platform, serves the status HTTP endpoint,
and periodically sweeps open copilot payments for completed challenges.

It runs until interrupted; SIGINT or SIGTERM triggers a graceful shutdown.`,
	Args: cobra.NoArgs,
	RunE: runDaemon,
}

func runDaemon(cmd *cobra.Command, args []string) error {
	log := newLogger()
	cfg := globalConfig

	// Back up and migrate before anything touches the schema.
	path := databasePath()
	if db.Exists(path) {
		mgr := backup.NewManager(db.ResolvePath(path), cfg.Backup)
		backupPath, err := mgr.BackupIfNeeded()
		if err != nil {
			return fmt.Errorf("pre-migration backup failed: %w", err)
		}
		if backupPath != "" {
			log.Info().Str("path", backupPath).Msg("database backed up")
		}
	}

	database, err := db.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer database.Close()
	if err := database.Migrate(); err != nil {
		return fmt.Errorf("migration failed: %w", err)
	}

	issues := db.NewIssueRepo(database.DB)
	payments := db.NewPaymentRepo(database.DB)
	projects := db.NewProjectRepo(database.DB)
	mappings := db.NewMappingRepo(database.DB)

	contest := topcoder.NewClient(
		cfg.Topcoder.BaseURL, cfg.Topcoder.DirectURL, cfg.Topcoder.AuthURL,
		cfg.Topcoder.ClientID, cfg.Topcoder.ClientSecret, log,
	)
	registry := scm.Registry{
		models.ProviderGitHub: scm.NewGitHubClient(cfg.SCM.GitHubToken, cfg.SCM.GitHubBaseURL, log),
		models.ProviderGitLab: scm.NewGitLabClient(cfg.SCM.GitLabToken, cfg.SCM.GitLabBaseURL, log),
	}
	directory := users.NewDirectory(mappings)

	conn, err := bus.Dial(cfg.Bus.URL, cfg.Bus.Exchange, log)
	if err != nil {
		return fmt.Errorf("failed to connect to message bus: %w", err)
	}
	defer conn.Close()

	notifier := notification.NewService(conn, cfg.Bus.NotificationsTopic, cfg.Notification, log)
	retrySvc := retry.NewService(conn, cfg.Bus.EventsTopic, cfg.Retry,
		notifier, cfg.Notification.FailureRecipients, log)

	pre := service.NewPreprocessor(projects, cfg.Labels.Prefix)
	issueSvc := service.NewIssueService(cfg.Labels, issues, pre, contest,
		registry, directory, guard.New(), log)
	paySvc := service.NewPaymentService(payments, projects, contest, log)
	disp := dispatch.New(issueSvc, paySvc, retrySvc, log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 3)

	go func() {
		errCh <- conn.Consume(ctx, cfg.Bus.EventsTopic, consumerQueue, disp.Handle)
	}()

	srv := server.New(cfg.Server, issues, payments, log)
	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	if cfg.Server.CheckUpdatesMinutes > 0 {
		sweeper := tasks.NewPaymentSweeper(payments, conn, cfg.Bus.EventsTopic, log)
		interval := time.Duration(cfg.Server.CheckUpdatesMinutes) * time.Minute
		go func() {
			errCh <- sweeper.RunDaemon(ctx, interval)
		}()
	}

	log.Info().
		Str("topic", cfg.Bus.EventsTopic).
		Str("status", srv.Address()).
		Msg("xbridge processor started")

	var runErr error
	select {
	case <-ctx.Done():
		log.Info().Msg("shutting down")
	case runErr = <-errCh:
		if errors.Is(runErr, context.Canceled) {
			runErr = nil
		}
		stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("status server shutdown failed")
	}

	if runErr != nil {
		return fmt.Errorf("processor stopped: %w", runErr)
	}
	return nil
}
