package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/inodb/vibe-nmd/internal/duckdb"
	"github.com/inodb/vibe-nmd/internal/nmd"
	"github.com/inodb/vibe-nmd/internal/output"
)

type queryOptions struct {
	dbPath     string
	gene       string
	transcript string
	nmdOnly    bool
}

func newQueryCmd() *cobra.Command {
	var opts queryOptions

	cmd := &cobra.Command{
		Use:   "query --db <path> [flags]",
		Short: "Query stored NMD predictions",
		Long:  "Look up predictions stored by 'vibe-nmd predict --db'. Results are filtered to one threshold.",
		Example: `  vibe-nmd query --db nmd.duckdb --transcript MSTRG.7.1
  vibe-nmd query --db nmd.duckdb --gene KRAS
  vibe-nmd query --db nmd.duckdb --nmd-only --threshold 55`,
		Args: usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			threshold, err := cmd.Flags().GetInt64("threshold")
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("threshold") {
				threshold = viper.GetInt64("nmd.threshold")
			}
			return runQuery(os.Stdout, opts, threshold)
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.dbPath, "db", "", "DuckDB database written by predict (required)")
	f.StringVar(&opts.gene, "gene", "", "Gene name or ID")
	f.StringVar(&opts.transcript, "transcript", "", "Transcript ID")
	f.BoolVar(&opts.nmdOnly, "nmd-only", false, "Only report NMD-sensitive transcripts")
	f.Int64("threshold", nmd.DefaultThreshold, "Threshold the predictions were made with (default from nmd.threshold)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runQuery(w io.Writer, opts queryOptions, threshold int64) error {
	if opts.gene == "" && opts.transcript == "" && !opts.nmdOnly {
		return usageError{errors.New("one of --gene, --transcript or --nmd-only is required")}
	}
	if _, err := os.Stat(opts.dbPath); err != nil {
		return fmt.Errorf("open result store: %w", err)
	}

	store, err := duckdb.Open(opts.dbPath)
	if err != nil {
		return fmt.Errorf("open result store: %w", err)
	}
	defer store.Close()

	var rows []duckdb.ResultRow
	switch {
	case opts.transcript != "":
		row, err := store.LookupTranscript(opts.transcript, threshold)
		if err != nil {
			return err
		}
		if row != nil {
			rows = append(rows, *row)
		}
	case opts.gene != "":
		rows, err = store.SearchByGene(opts.gene)
		if err != nil {
			return err
		}
	default:
		rows, err = store.SearchNMD(threshold)
		if err != nil {
			return err
		}
	}

	tab := output.NewTabWriter(w)
	if err := tab.WriteHeader(); err != nil {
		return err
	}
	for _, row := range rows {
		if row.Threshold != threshold || (opts.nmdOnly && !row.Result.IsNMD) {
			continue
		}
		if err := tab.Write(row.Result); err != nil {
			return err
		}
	}
	return tab.Flush()
}
