package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var rebuildShapesCmd = &cobra.Command{
	Use:   "rebuild-shapes",
	Short: "Rebuilds the generated shape cache from trip stop coordinates",
	Args:  cobra.NoArgs,
	RunE:  rebuildShapes,
}

func rebuildShapes(cmd *cobra.Command, args []string) error {
	service, err := loadService()
	if err != nil {
		return err
	}

	written, err := service.RebuildShapes()
	if err != nil {
		return err
	}

	fmt.Printf("wrote %d shapes\n", written)

	return nil
}
