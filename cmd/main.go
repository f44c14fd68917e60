package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"tramway.dev/transit"
	"tramway.dev/transit/storage"
)

var rootCmd = &cobra.Command{
	Use:          "transit",
	Short:        "Transit schedule query tool",
	Long:         "Answers schedule queries against an imported transit dataset",
	SilenceUsage: true,
}

var dbDir string

func init() {
	rootCmd.PersistentFlags().StringVarP(&dbDir, "db", "", ".", "Directory holding the transit database")
	rootCmd.AddCommand(departuresCmd)
	rootCmd.AddCommand(tripCmd)
	rootCmd.AddCommand(stopsCmd)
	rootCmd.AddCommand(shapeCmd)
	rootCmd.AddCommand(rebuildShapesCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

func loadService() (*transit.Service, error) {
	s, err := storage.NewSQLiteStorage(storage.SQLiteConfig{OnDisk: true, Directory: dbDir})
	if err != nil {
		return nil, fmt.Errorf("opening storage: %w", err)
	}

	return transit.NewService(s), nil
}
