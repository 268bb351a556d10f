package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ticktrack/ticktrack"
	"github.com/ticktrack/ticktrack/config"
	"github.com/ticktrack/ticktrack/transport"
	"github.com/ticktrack/ticktrack/trias"
)

var departuresCmd = &cobra.Command{
	Use:   "departures <config> <station_id>",
	Short: "Lists upcoming departures at a station, without recording anything",
	Args:  cobra.ExactArgs(2),
	RunE:  departures,
}

var limit int

func init() {
	departuresCmd.Flags().IntVarP(&limit, "limit", "l", 10, "Number of departures to request")
}

func departures(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	cfg, err := config.Load(args[0])
	if err != nil {
		return err
	}

	now := time.Now()
	req := trias.NewStopEventRequest(cfg.App.APIKey, args[1], trias.Timestamp(now), limit, now)
	body, err := req.Bytes()
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.App.RequestTimeout)
	defer cancel()

	client := transport.NewHTTP(cfg.App.RequestTimeout)
	data, err := client.Post(ctx, cfg.App.Endpoint, map[string]string{
		"Content-Type": "application/xml",
		"User-Agent":   ticktrack.UserAgent,
	}, body)
	if err != nil {
		return err
	}

	resp, err := trias.ParseResponse(data)
	if err != nil {
		return err
	}

	for _, msg := range resp.ErrorMessages() {
		logger.Warn("endpoint reported error", "message", msg)
	}

	for _, result := range resp.StopEventResults() {
		metrics := ticktrack.ComputeMetrics(result)
		dep := result.DepartureTime()

		status := ""
		if metrics.Cancelled {
			status = " cancelled"
		} else if result.HasRealtime() {
			status = " realtime"
		}

		fmt.Printf(
			"%s %-8s %-30s%s (-%d/+%d stops)\n",
			formatDeparture(dep),
			result.Service.PublishedLineName,
			result.Service.DestinationText,
			status,
			metrics.NumCancelledStops,
			metrics.NumAddedStops,
		)
	}

	return nil
}

func formatDeparture(dep time.Time) string {
	if dep.IsZero() {
		return "--:--"
	}
	return dep.Local().Format("15:04")
}
