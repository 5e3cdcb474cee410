package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"hivectl.ai/internal/memory"
	"hivectl.ai/internal/metrics"
	persistlog "hivectl.ai/internal/persistence/log"
	"hivectl.ai/internal/persistence/snapshot"
	"hivectl.ai/internal/persistence/sqlitestore"
	"hivectl.ai/internal/sim/controller"
	"hivectl.ai/internal/sim/hostsim"
	"hivectl.ai/internal/transport/observer"
)

type runOptions struct {
	scenario      string
	db            string
	dataDir       string
	ticks         int
	snapshotEvery int
	restore       string
	resume        bool
	httpAddr      string
	interval      time.Duration
}

type runSummary struct {
	FirstTick uint64
	LastTick  uint64
	Ticks     int
	Failures  int
	Resets    int
	Snapshot  string
}

func newRunCmd(root *rootFlags) *cobra.Command {
	opts := runOptions{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Drive the controller against a simulated world.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := root.logger()
			if err != nil {
				return err
			}
			defer logger.Close()

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			sum, err := run(ctx, logger.Logger, opts)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "ticks=%d first=%d last=%d failures=%d resets=%d\n",
				sum.Ticks, sum.FirstTick, sum.LastTick, sum.Failures, sum.Resets)
			if sum.Snapshot != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "snapshot=%s\n", sum.Snapshot)
			}
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVarP(&opts.scenario, "scenario", "s", "", "scenario yaml describing the world and seed memory")
	f.StringVar(&opts.db, "db", "", "sqlite store path (default: in-memory store)")
	f.StringVar(&opts.dataDir, "data", "", "directory for tick logs and snapshots (empty to disable)")
	f.IntVar(&opts.ticks, "ticks", 0, "number of ticks to run (default: scenario ticks)")
	f.IntVar(&opts.snapshotEvery, "snapshot-every", 0, "write a store snapshot every N ticks (0 to disable)")
	f.StringVar(&opts.restore, "restore", "", "restore the store from this snapshot before running")
	f.BoolVar(&opts.resume, "resume", false, "restore the latest snapshot under <data>/snapshots if present")
	f.StringVar(&opts.httpAddr, "http", "", "serve /metrics and the observer stream on this address")
	f.DurationVar(&opts.interval, "interval", 0, "wall time between ticks (0 runs as fast as possible)")
	_ = cmd.MarkFlagRequired("scenario")
	return cmd
}

func run(ctx context.Context, log zerolog.Logger, opts runOptions) (runSummary, error) {
	var sum runSummary

	sc, err := hostsim.LoadScenario(opts.scenario)
	if err != nil {
		return sum, fmt.Errorf("load scenario: %w", err)
	}
	sim, err := sc.Build()
	if err != nil {
		return sum, err
	}

	store, db, err := openStore(opts.db)
	if err != nil {
		return sum, fmt.Errorf("open store: %w", err)
	}
	if db != nil {
		defer db.Close()
	}

	snapDir := ""
	if opts.dataDir != "" {
		snapDir = filepath.Join(opts.dataDir, "snapshots")
	}
	restorePath := strings.TrimSpace(opts.restore)
	if restorePath == "" && opts.resume && snapDir != "" {
		restorePath = latestSnapshot(snapDir)
	}
	if err := prepareStore(ctx, log, sc, store, restorePath); err != nil {
		return sum, err
	}

	m := metrics.NewMetrics()
	var (
		sinks []controller.TickSink
		fails []controller.FailureSink
	)
	if db != nil {
		sinks = append(sinks, db)
	}
	if opts.dataDir != "" {
		tl := persistlog.NewTickLogger(opts.dataDir)
		defer tl.Close()
		fl := persistlog.NewFailureLogger(opts.dataDir)
		defer fl.Close()
		sinks = append(sinks, tl)
		fails = append(fails, fl)
	}
	if opts.httpAddr != "" {
		obs := observer.NewServer(log.With().Str("component", "observer").Logger())
		sinks = append(sinks, obs)
		fails = append(fails, obs)

		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		obs.Mount(mux)
		shutdown, err := serve(log, opts.httpAddr, mux)
		if err != nil {
			return sum, err
		}
		defer shutdown()
	}

	build := func() *controller.Controller {
		return controller.New(store, controller.Options{
			Log:     log,
			Tuning:  sc.Tuning,
			Metrics: m,
			Sinks:   sinks,
			Names:   sc.Names,
		})
	}
	runner := controller.NewRunner(log, m, build, fails...)

	ticks := opts.ticks
	if ticks <= 0 {
		ticks = sc.Ticks
	}
	if ticks <= 0 {
		ticks = 1
	}
	var tickC <-chan time.Time
	if opts.interval > 0 {
		t := time.NewTicker(opts.interval)
		defer t.Stop()
		tickC = t.C
	}

	sum.FirstTick = sim.Tick()
	for i := 0; i < ticks && ctx.Err() == nil; i++ {
		if _, err := runner.Step(ctx, sim); err != nil {
			sum.Failures++
		}
		sum.LastTick = sim.Tick()
		sum.Ticks++

		if snapDir != "" && opts.snapshotEvery > 0 && sum.Ticks%opts.snapshotEvery == 0 {
			if _, err := writeSnapshot(ctx, store, snapDir, sim.Tick()); err != nil {
				log.Warn().Err(err).Uint64("tick", sim.Tick()).Msg("snapshot failed")
			}
		}
		sim.Advance()

		if tickC != nil {
			select {
			case <-ctx.Done():
			case <-tickC:
			}
		}
	}
	sum.Resets = runner.Resets()

	if snapDir != "" {
		path, err := writeSnapshot(context.WithoutCancel(ctx), store, snapDir, sum.LastTick)
		if err != nil {
			return sum, fmt.Errorf("final snapshot: %w", err)
		}
		sum.Snapshot = path
	}
	log.Info().
		Int("ticks", sum.Ticks).
		Uint64("last_tick", sum.LastTick).
		Int("failures", sum.Failures).
		Int("resets", sum.Resets).
		Msg("run finished")
	return sum, nil
}

func openStore(path string) (memory.Store, *sqlitestore.Store, error) {
	if strings.TrimSpace(path) == "" {
		return memory.NewMemStore(), nil, nil
	}
	db, err := sqlitestore.OpenSQLite(path)
	if err != nil {
		return nil, nil, err
	}
	return db, db, nil
}

// prepareStore restores a snapshot when one is given, otherwise seeds the
// scenario's records into an empty store. A store that already holds records
// is left alone so a durable store carries over between runs.
func prepareStore(ctx context.Context, log zerolog.Logger, sc hostsim.Scenario, store memory.Store, restorePath string) error {
	if restorePath != "" {
		snap, err := snapshot.ReadSnapshot(restorePath)
		if err != nil {
			return fmt.Errorf("read snapshot: %w", err)
		}
		if err := snapshot.Restore(ctx, store, snap); err != nil {
			return fmt.Errorf("restore snapshot: %w", err)
		}
		log.Info().Str("snapshot", filepath.Base(restorePath)).Uint64("tick", snap.Header.Tick).
			Int("records", snap.Header.Records).Msg("restored store")
		return nil
	}
	empty, err := storeEmpty(ctx, store)
	if err != nil {
		return err
	}
	if !empty {
		log.Info().Msg("store already populated, skipping scenario seed")
		return nil
	}
	if err := sc.Seed(ctx, store); err != nil {
		return fmt.Errorf("seed store: %w", err)
	}
	return nil
}

func storeEmpty(ctx context.Context, store memory.Store) (bool, error) {
	for _, ns := range memory.Namespaces {
		keys, err := store.Keys(ctx, ns)
		if err != nil {
			return false, err
		}
		if len(keys) > 0 {
			return false, nil
		}
	}
	return true, nil
}

func writeSnapshot(ctx context.Context, store memory.Store, dir string, tick uint64) (string, error) {
	snap, err := snapshot.Dump(ctx, store, tick)
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, fmt.Sprintf("%d.snap.zst", tick))
	if err := snapshot.WriteSnapshot(path, snap); err != nil {
		return "", err
	}
	return path, nil
}

func latestSnapshot(dir string) string {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return ""
	}
	var best string
	var bestTick uint64
	for _, e := range ents {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.HasSuffix(name, ".snap.zst") {
			continue
		}
		tick, err := strconv.ParseUint(strings.TrimSuffix(name, ".snap.zst"), 10, 64)
		if err != nil {
			continue
		}
		if best == "" || tick > bestTick {
			bestTick = tick
			best = filepath.Join(dir, name)
		}
	}
	return best
}

func serve(log zerolog.Logger, addr string, h http.Handler) (func(), error) {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", addr, err)
	}
	srv := &http.Server{Handler: h, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("http server stopped")
		}
	}()
	log.Info().Str("addr", ln.Addr().String()).Msg("serving metrics and observer")
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}, nil
}
