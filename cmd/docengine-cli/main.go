package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/bobboyms/docengine"
)

var Version = "dev"

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "docengine-cli",
	Short:   "docengine-cli - administrative tool for a docengine data directory",
	Version: Version,
}

func init() {
	rootCmd.PersistentFlags().String("data-dir", "./docengine-data", "Engine data directory")

	rootCmd.AddCommand(checkpointCmd)
	rootCmd.AddCommand(vacuumCmd)
	rootCmd.AddCommand(recoverCmd)
	rootCmd.AddCommand(inspectCmd)
}

func openDispatcher(cmd *cobra.Command) (*docengine.Dispatcher, error) {
	dataDir, _ := cmd.Flags().GetString("data-dir")
	opts := docengine.DefaultOptions()
	opts.DataDir = dataDir
	return docengine.Open(opts)
}

var checkpointCmd = &cobra.Command{
	Use:   "checkpoint",
	Short: "Force a checkpoint flush up to the WAL's current id",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDispatcher(cmd)
		if err != nil {
			return fmt.Errorf("open engine: %w", err)
		}
		defer d.Close()

		if err := d.Checkpoint(); err != nil {
			return fmt.Errorf("checkpoint: %w", err)
		}
		fmt.Println("✓ Checkpoint flushed")
		return nil
	},
}

var vacuumCmd = &cobra.Command{
	Use:   "vacuum DATABASE COLLECTION",
	Short: "Compact a collection's on-disk segment chain",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		database, collection := args[0], args[1]

		d, err := openDispatcher(cmd)
		if err != nil {
			return fmt.Errorf("open engine: %w", err)
		}
		defer d.Close()

		kept, err := d.Vacuum(database, collection)
		if err != nil {
			return fmt.Errorf("vacuum: %w", err)
		}
		fmt.Printf("✓ Vacuumed %s/%s: %d documents retained\n", database, collection, kept)
		return nil
	},
}

var recoverCmd = &cobra.Command{
	Use:   "recover",
	Short: "Replay the WAL and reload every collection from disk",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDispatcher(cmd)
		if err != nil {
			return fmt.Errorf("open engine: %w", err)
		}
		defer d.Close()

		if err := d.Load(); err != nil {
			return fmt.Errorf("recover: %w", err)
		}
		fmt.Println("✓ Recovery complete")
		return nil
	},
}

var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Print every collection's size and the WAL/checkpoint watermarks",
	RunE: func(cmd *cobra.Command, args []string) error {
		d, err := openDispatcher(cmd)
		if err != nil {
			return fmt.Errorf("open engine: %w", err)
		}
		defer d.Close()

		if err := d.Load(); err != nil {
			return fmt.Errorf("load before inspect: %w", err)
		}

		report, err := d.Inspect()
		if err != nil {
			return fmt.Errorf("inspect: %w", err)
		}

		fmt.Printf("WAL id: %d  Checkpoint id: %d\n\n", report.WALID, report.CheckpointID)
		if len(report.Collections) == 0 {
			fmt.Println("No collections found")
			return nil
		}
		fmt.Printf("%-20s %-20s %s\n", "DATABASE", "COLLECTION", "SIZE")
		for _, c := range report.Collections {
			fmt.Printf("%-20s %-20s %d\n", c.Database, c.Collection, c.Size)
		}
		return nil
	},
}
