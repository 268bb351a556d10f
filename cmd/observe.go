package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/ticktrack/ticktrack"
	"github.com/ticktrack/ticktrack/api"
	"github.com/ticktrack/ticktrack/config"
	"github.com/ticktrack/ticktrack/datalog"
	"github.com/ticktrack/ticktrack/metrics"
	"github.com/ticktrack/ticktrack/model"
	"github.com/ticktrack/ticktrack/publisher"
	"github.com/ticktrack/ticktrack/transport"
)

var observeCmd = &cobra.Command{
	Use:   "observe <database> <config>",
	Short: "Polls the configured stations and records monitored trips",
	Args:  cobra.ExactArgs(2),
	RunE:  observe,
}

func observe(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := config.Load(args[1])
	if err != nil {
		return err
	}

	s, err := openStorage(args[0])
	if err != nil {
		return err
	}
	defer s.Close()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	collector := metrics.NewCollector(len(cfg.Stations), cfg.App.PollInterval, cfg.App.PreviewWindow)

	trips := ticktrack.NewTripStore(s, cfg.Lines)
	trips.Listeners = append(trips.Listeners, func(outcome ticktrack.Outcome, trip model.MonitoredTrip) {
		collector.ObserveTrip(outcome.String())
		logger.Info(
			"trip "+outcome.String(),
			"trip", trip.TripID,
			"line", trip.LineName,
			"cancelled", trip.RealtimeCancelled,
			"cancelled_stops", trip.RealtimeNumCancelledStops,
			"added_stops", trip.RealtimeNumAddedStops,
		)
	})

	if cfg.NATS.URL != "" {
		pub, err := publisher.NewNATSPublisher(cfg.NATS.URL, cfg.NATS.SubjectPrefix, logger, collector)
		if err != nil {
			return err
		}
		defer pub.Close()

		trips.Listeners = append(trips.Listeners, func(outcome ticktrack.Outcome, trip model.MonitoredTrip) {
			if err := pub.PublishTrip(outcome.String(), trip); err != nil {
				logger.Warn("publishing trip", "trip", trip.TripID, "err", err)
			}
		})
	}

	poller := ticktrack.NewPoller(cfg.App.Endpoint, cfg.App.APIKey, transport.NewHTTP(cfg.App.RequestTimeout), trips)
	poller.NumberOfResults = cfg.App.NumberOfResults
	poller.Logger = logger
	if cfg.App.DatalogEnabled {
		poller.Datalog = datalog.NewWriter(cfg.App.DatalogDirectory, cfg.App.DatalogTTL)
	}

	scheduler := ticktrack.NewScheduler(cfg.Stations, poller.Poll)
	scheduler.Period = cfg.App.PollInterval
	scheduler.PreviewWindow = cfg.App.PreviewWindow
	if cfg.App.MaxConcurrent > 0 {
		scheduler.MaxConcurrent = cfg.App.MaxConcurrent
	}
	scheduler.Logger = logger
	scheduler.OnPoll = collector.ObservePoll
	scheduler.OnTick = func(polled int, skipped int, elapsed time.Duration) {
		collector.ObserveTick(polled, skipped, elapsed)
		logger.Info("tick done", "polled", polled, "skipped", skipped, "elapsed", elapsed)
	}

	if cfg.Server.Listen != "" {
		gin.SetMode(gin.ReleaseMode)
		api.Serve(ctx, cfg.Server.Listen, api.NewRouter(s, scheduler, collector.Handler()), logger)
	}

	logger.Info(
		"observing",
		"stations", len(cfg.Stations),
		"lines", len(cfg.Lines),
		"datalog", cfg.App.DatalogEnabled,
	)

	return scheduler.Run(ctx)
}
