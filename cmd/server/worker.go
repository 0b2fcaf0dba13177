package main

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/jimdaga/promise/internal/worker"
)

var flagNoScheduler bool

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run the email worker and reminder scheduler",
	Long: `Run the Asynq worker that renders and sends queued emails and executes
the reminder sweep. Requires REDIS_URL.`,
	RunE: runWorker,
}

func init() {
	workerCmd.Flags().BoolVar(&flagNoScheduler, "no-scheduler", false, "do not register the periodic reminder sweep")
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	a, err := newApp()
	if err != nil {
		return err
	}
	defer a.Close()
	cfg := a.cfg

	if cfg.RedisURL == "" {
		return errors.New("REDIS_URL is required to run the worker")
	}
	if err := a.openStore(false); err != nil {
		return err
	}
	if err := a.openRedis(cmd.Context()); err != nil {
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

	if !flagNoScheduler {
		stopScheduler, err := worker.StartScheduler(cfg, a.logger)
		if err != nil {
			return err
		}
		defer stopScheduler()
	}

	// Run blocks until SIGINT or SIGTERM
	return worker.Run(cfg, a.workerDeps(mailer, a.sweeper(dispatcher)))
}
