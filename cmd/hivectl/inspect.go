package main

import (
	"encoding/json"
	"fmt"
	"io"
	"path/filepath"

	"github.com/spf13/cobra"

	"hivectl.ai/internal/memory"
	persistlog "hivectl.ai/internal/persistence/log"
	"hivectl.ai/internal/persistence/snapshot"
	"hivectl.ai/internal/persistence/sqlitestore"
	"hivectl.ai/internal/sim/controller"
)

func newInspectCmd() *cobra.Command {
	var dbPath string
	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Read stores, snapshots and tick logs.",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "sqlite store path")

	openDB := func() (*sqlitestore.Store, error) {
		if dbPath == "" {
			return nil, fmt.Errorf("--db is required")
		}
		return sqlitestore.OpenSQLite(dbPath)
	}

	keys := &cobra.Command{
		Use:   "keys [namespace...]",
		Short: "List record keys",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			namespaces := memory.Namespaces
			if len(args) > 0 {
				namespaces = nil
				for _, a := range args {
					namespaces = append(namespaces, memory.Namespace(a))
				}
			}
			for _, ns := range namespaces {
				ks, err := db.Keys(cmd.Context(), ns)
				if err != nil {
					return err
				}
				for _, k := range ks {
					fmt.Fprintf(cmd.OutOrStdout(), "%s/%s\n", ns, k)
				}
			}
			return nil
		},
	}

	get := &cobra.Command{
		Use:   "get <namespace> <key>",
		Short: "Print one record",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			raw, ok, err := db.Get(cmd.Context(), memory.Namespace(args[0]), args[1])
			if err != nil {
				return err
			}
			if !ok {
				return fmt.Errorf("%s/%s: not found", args[0], args[1])
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(raw))
			return nil
		},
	}

	var limit int
	ticks := &cobra.Command{
		Use:   "ticks",
		Short: "Show the most recent indexed ticks",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB()
			if err != nil {
				return err
			}
			defer db.Close()
			rows, err := db.RecentTicks(cmd.Context(), limit)
			if err != nil {
				return err
			}
			for _, r := range rows {
				fmt.Fprintf(cmd.OutOrStdout(), "tick=%d agents=%d actions=%d spawns=%d writes=%d errors=%d\n",
					r.Tick, r.Agents, r.Actions, r.Spawns, r.Writes, r.Errors)
			}
			return nil
		},
	}
	ticks.Flags().IntVarP(&limit, "limit", "n", 20, "number of ticks")

	snap := &cobra.Command{
		Use:   "snapshot <path>",
		Short: "Print a snapshot header and its record keys",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			s, err := snapshot.ReadSnapshot(args[0])
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "version=%d tick=%d records=%d\n", s.Header.Version, s.Header.Tick, s.Header.Records)
			for _, r := range s.Records {
				fmt.Fprintf(out, "%s/%s %dB\n", r.Namespace, r.Key, len(r.Data))
			}
			return nil
		},
	}

	var failures bool
	logs := &cobra.Command{
		Use:   "log <data-dir>",
		Short: "Dump tick or failure logs as JSON lines",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if failures {
				return dumpLog[controller.FailureEntry](cmd.OutOrStdout(), filepath.Join(args[0], "failures"), "failures")
			}
			return dumpLog[controller.TickLogEntry](cmd.OutOrStdout(), filepath.Join(args[0], "ticks"), "ticks")
		},
	}
	logs.Flags().BoolVar(&failures, "failures", false, "read the failure log instead of the tick log")

	cmd.AddCommand(keys, get, ticks, snap, logs)
	return cmd
}

func dumpLog[T any](out io.Writer, dir, prefix string) error {
	files, err := persistlog.Files(dir, prefix)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(out)
	for _, f := range files {
		if err := persistlog.ReadJSONL(f, func(v T) error { return enc.Encode(v) }); err != nil {
			return err
		}
	}
	return nil
}
