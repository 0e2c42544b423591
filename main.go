package main

import (
	"os"
	"time"

	"github.com/jmhodges/clock"
	"go.uber.org/zap"

	"paydue/alarm"
	"paydue/db"
	"paydue/schedule"
	"paydue/tgbot"
)

var clk = clock.New()

// getLogger creates a logger in global namespace
func getLogger() (*zap.SugaredLogger, func() error) {
	logger, _ := zap.NewDevelopment(zap.Fields(zap.String("ns", "paydue")))

	log := logger.Sugar()
	return log, logger.Sync
}

// Paydue entry point
func main() {
	logger, syncLogs := getLogger()
	defer syncLogs()

	cfgFile, ok := os.LookupEnv("CONFIG_FILE")
	if !ok {
		logger.Fatalf("Configuration file name isn't set")
	}

	cfg, err := readConfig(cfgFile)
	if err != nil {
		logger.Fatalw("Couldn't read configuration", "file", cfgFile, "err", err)
	}

	unit, err := time.ParseDuration(cfg.Unit)
	if err != nil || unit <= 0 {
		logger.Fatalw("Invalid reminder unit", "unit", cfg.Unit, "err", err)
	}

	tick, err := time.ParseDuration(cfg.Tick)
	if err != nil || tick <= 0 {
		logger.Fatalw("Invalid alarm tick", "tick", cfg.Tick, "err", err)
	}

	d, err := db.NewDatabase(cfg.DBConnStr)
	if err != nil {
		logger.Fatalw("failed to initialize database", "err", err)
	}
	defer d.Close()

	b, err := tgbot.NewTBot(cfg.TgToken, cfg.ChatID, cfg.UnitName, logger)
	if err != nil {
		logger.Fatalw("failed to initialize Telegram Bot", "err", err)
	}

	alarms := alarm.NewService(tick, logger)
	scheduler := schedule.NewScheduler(alarms, unit, logger)
	dispatcher := schedule.NewDispatcher(d, scheduler, b, logger)
	recovery := schedule.NewRecovery(d, scheduler, b, unit, logger)

	// restore the full alert schedule from the obligation rows; a failed pass
	// is retried on the next start rather than aborting the daemon
	if err := recovery.Run(clk.Now().UTC()); err != nil {
		logger.Errorw("recovery pass incomplete", "err", err)
	}

	alarms.Run(func(p schedule.Payload) {
		if err := dispatcher.HandleFire(p); err != nil {
			logger.Errorw("failed dispatching fired alert", "id", p.ObligationID, "err", err)
		}
	})
	defer alarms.Stop()

	b.Run(dispatcher.HandleMarkPaid)
}
