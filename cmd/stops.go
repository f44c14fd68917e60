package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
)

var stopsCmd = &cobra.Command{
	Use:   "stops <lat> <lng> [limit]",
	Short: "Lists stops near a geographical location",
	Args:  cobra.RangeArgs(2, 3),
	RunE:  stops,
}

var showRoutes bool

func init() {
	stopsCmd.Flags().BoolVarP(&showRoutes, "routes", "r", false, "Also list routes serving each stop")
}

func stops(cmd *cobra.Command, args []string) error {
	lat, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return fmt.Errorf("invalid lat: %w", err)
	}
	lng, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return fmt.Errorf("invalid lng: %w", err)
	}

	limit := 0
	if len(args) == 3 {
		limit, err = strconv.Atoi(args[2])
		if err != nil {
			return fmt.Errorf("invalid limit: %w", err)
		}
		if limit < 0 {
			return fmt.Errorf("limit must be >= 0")
		}
	}

	service, err := loadService()
	if err != nil {
		return err
	}

	stops, err := service.NearbyStops(lat, lng, limit)
	if err != nil {
		return err
	}

	for _, stop := range stops {
		fmt.Printf("%s: %s\n", stop.ID, stop.Name)

		if !showRoutes {
			continue
		}
		directions, err := service.RouteDirections(stop.ID)
		if err != nil {
			return err
		}
		for _, rd := range directions {
			fmt.Printf("    %s dir=%d %s\n", rd.RouteID, rd.DirectionID, strings.Join(rd.Headsigns, " / "))
		}
	}

	return nil
}
