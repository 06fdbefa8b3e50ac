package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/reifydb/reifydb/pkg/key"
	"github.com/reifydb/reifydb/pkg/kv"
)

var cdcCmd = &cobra.Command{
	Use:   "cdc",
	Short: "Inspect the change-data-capture log",
}

func init() {
	cdcCmd.AddCommand(cdcDumpCmd)
	cdcDumpCmd.Flags().Uint64("from", 0, "Lowest commit version to dump (inclusive)")
	cdcDumpCmd.Flags().Uint64("to", ^uint64(0), "Highest commit version to dump (inclusive)")
}

var cdcDumpCmd = &cobra.Command{
	Use:   "dump",
	Short: "Print every CDC record in a version range",
	RunE: func(cmd *cobra.Command, args []string) error {
		from, err := cmd.Flags().GetUint64("from")
		if err != nil {
			return err
		}
		to, err := cmd.Flags().GetUint64("to")
		if err != nil {
			return err
		}

		e, err := openEngine(cmd)
		if err != nil {
			return err
		}
		defer e.Close()

		// Range excludes its upper bound; --to is inclusive.
		hi := to
		if hi < ^uint64(0) {
			hi++
		}
		it, err := e.Backend().CDC().Range(context.Background(), from, hi)
		if err != nil {
			return err
		}
		defer it.Close()

		for it.Next() {
			rec := it.Value()
			fmt.Printf("version=%d timestamp=%d changes=%d\n", rec.Version, rec.Timestamp, len(rec.Changes))
			for _, sc := range rec.Changes {
				printChange(sc)
			}
		}
		return it.Err()
	},
}

func printChange(sc kv.CdcSequencedChange) {
	kind := "insert"
	switch sc.Change.Kind {
	case kv.CdcUpdate:
		kind = "update"
	case kv.CdcDelete:
		kind = "delete"
	}

	primitiveID := "?"
	if r, err := key.DecodeRow(sc.Change.Key); err == nil {
		primitiveID = fmt.Sprintf("%d", r.PrimitiveID)
	}
	fmt.Printf("\t#%d %s primitive=%s\n", sc.Sequence, kind, primitiveID)
}
