package main

import (
	"fmt"
	"io"
	"os"

	"github.com/gocarina/gocsv"
	"github.com/spf13/cobra"

	"github.com/ticktrack/ticktrack/storage"
)

var exportCmd = &cobra.Command{
	Use:   "export <database>",
	Short: "Writes monitored trips as CSV to stdout",
	Args:  cobra.ExactArgs(1),
	RunE:  export,
}

var (
	exportDay  string
	exportLine string
)

func init() {
	exportCmd.Flags().StringVarP(&exportDay, "day", "d", "", "Restrict to an operation day (YYYY-MM-DD)")
	exportCmd.Flags().StringVarP(&exportLine, "line", "l", "", "Restrict to a line ID")
}

func export(cmd *cobra.Command, args []string) error {
	s, err := openStorage(args[0])
	if err != nil {
		return err
	}
	defer s.Close()

	return exportTrips(s, storage.ListTripsFilter{
		OperationDay: exportDay,
		LineID:       exportLine,
	}, os.Stdout)
}

func exportTrips(s storage.Storage, filter storage.ListTripsFilter, w io.Writer) error {
	trips, err := s.ListTrips(filter)
	if err != nil {
		return fmt.Errorf("listing trips: %w", err)
	}

	err = gocsv.Marshal(trips, w)
	if err != nil {
		return fmt.Errorf("writing csv: %w", err)
	}

	return nil
}
