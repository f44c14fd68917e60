package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tramway.dev/transit"
)

var tripCmd = &cobra.Command{
	Use:   "trip <trip_id>",
	Short: "Shows a trip's itinerary, optionally with a journey segment",
	Args:  cobra.ExactArgs(1),
	RunE:  trip,
}

var (
	fromStop string
	toStop   string
	fromSeq  int
	toSeq    int
)

func init() {
	tripCmd.Flags().StringVarP(&fromStop, "from", "f", "", "Journey start stop ID")
	tripCmd.Flags().StringVarP(&toStop, "to", "t", "", "Journey end stop ID")
	tripCmd.Flags().IntVarP(&fromSeq, "from-seq", "", -1, "Journey start stop sequence")
	tripCmd.Flags().IntVarP(&toSeq, "to-seq", "", -1, "Journey end stop sequence")
}

func marker(stopID string, seq int) transit.Marker {
	m := transit.Marker{StopID: stopID}
	if seq >= 0 {
		s := uint32(seq)
		m.Sequence = &s
	}
	return m
}

func trip(cmd *cobra.Command, args []string) error {
	tripID := args[0]

	service, err := loadService()
	if err != nil {
		return err
	}

	details, err := service.TripItinerary(tripID, marker(fromStop, fromSeq), marker(toStop, toSeq))
	if err != nil {
		return err
	}

	for _, stop := range details.Stops {
		fmt.Printf("%4d %s %s -> %s %s\n",
			stop.StopSequence,
			stop.StopID,
			stop.RealtimeArrival,
			stop.RealtimeDeparture,
			stop.StopName,
		)
	}

	if details.Journey != nil {
		j := details.Journey
		fmt.Printf("journey: stops %d..%d", j.FromIndex, j.ToIndex)
		if j.ScheduledSecs != nil {
			fmt.Printf(", scheduled %ds", *j.ScheduledSecs)
		}
		if j.RealtimeSecs != nil {
			fmt.Printf(", realtime %ds", *j.RealtimeSecs)
		}
		if j.DeltaSecs != nil {
			fmt.Printf(", delta %+ds", *j.DeltaSecs)
		}
		fmt.Println()
	}

	return nil
}
