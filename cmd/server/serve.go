package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jimdaga/promise/internal/database"
	"github.com/jimdaga/promise/internal/invitations"
	"github.com/jimdaga/promise/internal/promises"
	"github.com/jimdaga/promise/internal/server"
	"github.com/jimdaga/promise/internal/worker"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Run the HTTP API. With EMBEDDED_WORKER=true and REDIS_URL set, the
email worker and reminder scheduler run in the same process. Without Redis,
emails are delivered inline and reminders are swept by an in-process cron.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	cfg := a.cfg

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := a.openStore(cfg.RunMigrations); err != nil {
		return err
	}
	if cfg.SeedDevData && cfg.IsDevelopment() {
		if _, err := database.SeedDevData(ctx, a.store, a.logger); err != nil {
			return err
		}
	}
	if err := a.openRedis(ctx); err != nil {
		return err
	}

	mailer, err := a.mailer()
	if err != nil {
		return err
	}
	dispatcher, err := a.dispatcher(mailer)
	if err != nil {
		return err
	}
	sweeper := a.sweeper(dispatcher)

	switch {
	case cfg.RedisURL == "":
		stopScheduler, err := worker.StartLocalScheduler(cfg, sweeper, a.logger)
		if err != nil {
			return err
		}
		defer stopScheduler()
	case cfg.EmbeddedWorker:
		stopWorker, err := worker.Start(cfg, a.workerDeps(mailer, sweeper))
		if err != nil {
			return err
		}
		defer stopWorker()

		stopScheduler, err := worker.StartScheduler(cfg, a.logger)
		if err != nil {
			return err
		}
		defer stopScheduler()
		a.logger.Info("Embedded worker started")
	}

	srv := server.New(server.Options{
		Port:        cfg.Port,
		Debug:       cfg.IsDevelopment() && cfg.LogLevel == "debug",
		Logger:      a.logger,
		Promises:    promises.NewService(a.store, dispatcher, a.logger, cfg.AppURL, nil),
		Invitations: invitations.NewService(a.store, dispatcher, a.logger, cfg.AppURL, nil),
		Checks:      a.readinessChecks(),
	})
	return server.Run(ctx, srv, a.logger)
}
