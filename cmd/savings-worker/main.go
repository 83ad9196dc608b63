// savings-worker periodically executes due savings plans: each due plan books
// its transfer posting and advances the plan's last execution date.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"finbook/internal/cli"
	"finbook/internal/core"
	"finbook/internal/log"
	"finbook/internal/services"
)

func main() {
	cfg, logger := cli.Init(log.ComponentSavings)

	repo := cli.OpenRepository(cfg, logger)
	defer repo.Close()

	notifications := services.NewNotificationService(repo, logger)
	savings := services.NewSavingsService(repo, notifications, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	logger.Info("savings plan executor configured",
		"interval", cfg.SavingsInterval, "sqlite_db", cfg.SQLiteDBPath)

	runPass := func(now time.Time) {
		executed, err := savings.ExecuteDue(ctx, core.DateOf(now))
		if err != nil {
			logger.Error("savings pass failed", log.FieldError, err)
			return
		}
		if executed > 0 {
			logger.Info("savings pass complete", "plans_executed", executed)
		}
	}

	// One pass on startup, then on every tick.
	runPass(time.Now())

	ticker := time.NewTicker(cfg.SavingsInterval)
	defer ticker.Stop()

	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case now := <-ticker.C:
				runPass(now)
			}
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	logger.Info("shutdown signal received", "signal", sig.String())
	cancel()
	logger.Info("savings-worker stopped")
}
