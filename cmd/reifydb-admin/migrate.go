package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/reifydb/reifydb/pkg/catalog"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply and inspect catalog migrations",
}

func init() {
	migrateCmd.AddCommand(migrateApplyCmd)
	migrateCmd.AddCommand(migrateHistoryCmd)
	migrateApplyCmd.Flags().String("description", "", "Description recorded against this migration")
	migrateApplyCmd.Flags().Bool("dry-run", false, "Show what would be recorded without applying it")
}

var migrateApplyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Record a pending migration as applied",
	RunE: func(cmd *cobra.Command, args []string) error {
		description, err := cmd.Flags().GetString("description")
		if err != nil {
			return err
		}
		if description == "" {
			return fmt.Errorf("--description is required")
		}
		dryRun, err := cmd.Flags().GetBool("dry-run")
		if err != nil {
			return err
		}

		e, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		if dryRun {
			fmt.Printf("would record migration %q\n", description)
			return nil
		}

		ct := e.Manager().BeginCommand(false)
		txc := catalog.NewTx(ct)
		def := e.Store().CreateMigration(txc, description, time.Now().UnixMilli())
		if err := txc.Txn.Commit(); err != nil {
			return fmt.Errorf("applying migration: %w", err)
		}
		fmt.Printf("applied migration #%d: %s\n", def.Sequence, def.Description)
		return nil
	},
}

var migrateHistoryCmd = &cobra.Command{
	Use:   "history",
	Short: "List every applied migration in sequence order",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ct := e.Manager().BeginCommand(false)
		defer ct.Rollback()
		txc := catalog.NewTx(ct)
		for seq := uint64(1); ; seq++ {
			def, found, err := e.Store().FindMigration(txc, seq)
			if err != nil {
				return err
			}
			if !found {
				break
			}
			fmt.Printf("#%d\t%s\t%s\n", def.Sequence, time.UnixMilli(def.AppliedAt).Format(time.RFC3339), def.Description)
		}
		return nil
	},
}
