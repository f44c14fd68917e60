package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tramway.dev/transit"
)

var departuresCmd = &cobra.Command{
	Use:   "departures <stop_id>",
	Short: "Lists upcoming departures from a stop",
	Args:  cobra.ExactArgs(1),
	RunE:  departures,
}

var limit int

func init() {
	departuresCmd.Flags().IntVarP(&limit, "limit", "l", transit.DefaultDepartureLimit, "Limit the number of departures returned")
}

func departures(cmd *cobra.Command, args []string) error {
	stopID := args[0]

	service, err := loadService()
	if err != nil {
		return err
	}

	departures, err := service.NextDepartures(stopID, limit)
	if err != nil {
		return err
	}

	for _, departure := range departures {
		marker := " "
		if departure.RealtimeUpdated {
			marker = "*"
		}
		delay := ""
		if departure.DelayMinutes != nil {
			delay = fmt.Sprintf(" (%+.1f min)", *departure.DelayMinutes)
		}
		fmt.Printf("%s%s %s %s%s\n",
			marker,
			departure.RouteShortName,
			departure.RealtimeDeparture,
			departure.Headsign,
			delay,
		)
	}

	return nil
}
