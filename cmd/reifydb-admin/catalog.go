package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reifydb/reifydb/config"
	"github.com/reifydb/reifydb/pkg/catalog"
	"github.com/reifydb/reifydb/pkg/engine"
)

var catalogCmd = &cobra.Command{
	Use:   "catalog",
	Short: "Inspect namespaces, tables, and flows in a data directory",
}

func init() {
	catalogCmd.AddCommand(catalogNamespacesCmd)
	catalogCmd.AddCommand(catalogTablesCmd)
	catalogCmd.AddCommand(catalogFlowsCmd)
	catalogTablesCmd.Flags().Uint64("namespace", 0, "Namespace id to list tables for")
}

func openEngine(cmd *cobra.Command) (*engine.Engine, error) {
	configPath, _ := cmd.Flags().GetString("config")
	if configPath != "" {
		cfg, err := config.Load(configPath)
		if err != nil {
			return nil, err
		}
		return engine.New(cfg)
	}

	dataDir, err := dataDirFlag(cmd)
	if err != nil {
		return nil, err
	}
	cfg := config.Default()
	cfg.Backend = config.BackendBbolt
	cfg.DataDir = dataDir
	return engine.New(cfg)
}

var catalogNamespacesCmd = &cobra.Command{
	Use:   "namespaces",
	Short: "List every namespace",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ct := e.Manager().BeginCommand(false)
		defer ct.Rollback()
		txc := catalog.NewTx(ct)
		namespaces, err := e.Store().ListNamespaces(txc)
		if err != nil {
			return err
		}
		for _, ns := range namespaces {
			fmt.Printf("%d\t%s\n", ns.ID, ns.Name)
		}
		return nil
	},
}

var catalogTablesCmd = &cobra.Command{
	Use:   "tables",
	Short: "List every table in a namespace",
	RunE: func(cmd *cobra.Command, args []string) error {
		namespaceID, err := cmd.Flags().GetUint64("namespace")
		if err != nil {
			return err
		}
		e, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ct := e.Manager().BeginCommand(false)
		defer ct.Rollback()
		txc := catalog.NewTx(ct)
		tables, err := e.Store().ListTables(txc, namespaceID)
		if err != nil {
			return err
		}
		for _, t := range tables {
			fmt.Printf("%d\t%s\t%d columns\n", t.ID, t.Name, len(t.Columns))
			for _, c := range t.Columns {
				fmt.Printf("\t%d: %s (%v)\n", c.Position, c.Name, c.Type)
			}
		}
		return nil
	},
}

var catalogFlowsCmd = &cobra.Command{
	Use:   "flows",
	Short: "List every registered flow and its pause state",
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		ct := e.Manager().BeginCommand(false)
		defer ct.Rollback()
		txc := catalog.NewTx(ct)
		flows, err := e.Store().ListFlows(txc)
		if err != nil {
			return err
		}
		for _, f := range flows {
			fmt.Printf("%d\tview=%d\tsource=%d\tpaused=%t\n", f.ID, f.ViewID, f.SourceID, f.Paused)
		}
		return nil
	},
}
