package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tramway.dev/transit"
	"tramway.dev/transit/model"
)

var shapeCmd = &cobra.Command{
	Use:   "shape [shape_id]",
	Short: "Resolves a shape, or lists the generated shape cache",
	Args:  cobra.RangeArgs(0, 1),
	RunE:  shape,
}

var (
	shapeRoute     string
	shapeTrip      string
	shapeDirection int
)

func init() {
	shapeCmd.Flags().StringVarP(&shapeRoute, "route", "r", "", "Resolve by route ID")
	shapeCmd.Flags().StringVarP(&shapeTrip, "trip", "t", "", "Resolve by trip ID")
	shapeCmd.Flags().IntVarP(&shapeDirection, "direction", "d", -1, "Direction for route resolution")
}

func shape(cmd *cobra.Command, args []string) error {
	service, err := loadService()
	if err != nil {
		return err
	}

	var resolved *transit.Shape
	switch {
	case len(args) == 1:
		resolved, err = service.ShapeByID(args[0])
	case shapeRoute != "":
		resolved, err = service.ShapeForRoute(shapeRoute, int8(shapeDirection))
	case shapeTrip != "":
		resolved, err = service.ShapeForTrip(shapeTrip)
	default:
		return listShapes(service)
	}
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s, %d points)\n", resolved.ID, resolved.Source, len(resolved.Points))
	for _, p := range resolved.Points {
		fmt.Printf("%f,%f\n", p.Lat, p.Lon)
	}

	return nil
}

func listShapes(service *transit.Service) error {
	shapes, err := service.ListGeneratedShapes()
	if err != nil {
		return err
	}

	for _, gs := range shapes {
		direction := "null"
		if gs.DirectionID != model.DirectionUnset {
			direction = fmt.Sprintf("%d", gs.DirectionID)
		}
		fmt.Printf("%s route=%s dir=%s points=%d built=%s\n",
			gs.ShapeID, gs.RouteID, direction, len(gs.Points), gs.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	return nil
}
