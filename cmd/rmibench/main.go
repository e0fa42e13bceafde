// Command rmibench bulk-loads a synthetic key set into an rmindex.Index and
// reports point-read and insert latency percentiles, the way a caller would
// sanity-check a tuning change to Config before shipping it.
package main

import (
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/katalvlaran/rmindex"
	"github.com/katalvlaran/rmindex/rmkey"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "rmibench",
		Short: "Benchmark an rmindex.Index under a synthetic key distribution",
		RunE:  runBench,
	}
	root.PersistentFlags().Bool("verbose", false, "enable debug-level logging")
	root.Flags().Int("keys", 1_000_000, "number of keys to bulk-load")
	root.Flags().Int("lookups", 100_000, "number of point reads to sample")
	root.Flags().Int("inserts", 100_000, "number of additional inserts to sample after bulk load")
	root.Flags().Int("max-node-size-bytes", 4096, "rmindex.Config.MaxNodeSizeBytes")
	root.Flags().Int("worker-pool-size", 4, "rmindex.Config.WorkerPoolSize")

	_ = viper.BindPFlags(root.Flags())
	viper.SetEnvPrefix("RMIBENCH")
	viper.AutomaticEnv()

	return root
}

func runBench(cmd *cobra.Command, _ []string) error {
	verbose, _ := cmd.Flags().GetBool("verbose")
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	if verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	numKeys := viper.GetInt("keys")
	numLookups := viper.GetInt("lookups")
	numInserts := viper.GetInt("inserts")

	log.Info().Int("keys", numKeys).Int("lookups", numLookups).Int("inserts", numInserts).Msg("starting benchmark")

	idx := rmindex.NewIndex[int64](1,
		rmindex.WithMaxNodeSizeBytes(viper.GetInt("max-node-size-bytes")),
		rmindex.WithWorkerPoolSize(viper.GetInt("worker-pool-size")),
	)
	defer idx.Close()

	keys := make([]rmkey.Key, numKeys)
	vals := make([]int64, numKeys)
	for i := 0; i < numKeys; i++ {
		keys[i] = rmkey.Key{float64(i)}
		vals[i] = int64(i)
	}

	start := time.Now()
	if err := idx.BulkLoad(keys, vals); err != nil {
		return fmt.Errorf("bulk load: %w", err)
	}
	log.Info().Dur("elapsed", time.Since(start)).Msg("bulk load complete")

	w := idx.RegisterWorker()
	rng := rand.New(rand.NewSource(1))

	lookupLatencies := make([]time.Duration, 0, numLookups)
	for i := 0; i < numLookups; i++ {
		k := rmkey.Key{float64(rng.Intn(numKeys))}
		t0 := time.Now()
		var hint *rmindex.Hint[int64]
		for {
			_, next, err := idx.Get(k, w, hint)
			hint = next
			if err == nil {
				break
			}
			if errors.Is(err, rmindex.ErrRetryLater) {
				continue
			}
			return fmt.Errorf("unexpected lookup error: %w", err)
		}
		lookupLatencies = append(lookupLatencies, time.Since(t0))
	}
	reportPercentiles("get", lookupLatencies)

	insertLatencies := make([]time.Duration, 0, numInserts)
	for i := 0; i < numInserts; i++ {
		k := rmkey.Key{float64(numKeys + i)}
		t0 := time.Now()
		var hint *rmindex.Hint[int64]
		for {
			_, next, err := idx.Insert(k, int64(numKeys+i), w, hint)
			hint = next
			if err == nil {
				break
			}
			if errors.Is(err, rmindex.ErrRetryLater) {
				continue
			}
			return fmt.Errorf("unexpected insert error: %w", err)
		}
		insertLatencies = append(insertLatencies, time.Since(t0))
	}
	reportPercentiles("insert", insertLatencies)

	stats := idx.Stats()
	log.Info().
		Int64("num_keys", stats.NumKeys).
		Int64("jobs_run", stats.JobsRun).
		Int64("jobs_failed", stats.JobsFailed).
		Int("pending_reclamations", stats.PendingReclamations).
		Int("queue_depth", stats.QueueDepth).
		Msg("final stats")

	return nil
}

func reportPercentiles(label string, samples []time.Duration) {
	if len(samples) == 0 {
		return
	}
	sort.Slice(samples, func(i, j int) bool { return samples[i] < samples[j] })
	pct := func(p float64) time.Duration {
		idx := int(p * float64(len(samples)-1))
		return samples[idx]
	}
	log.Info().
		Str("op", label).
		Dur("p50", pct(0.50)).
		Dur("p90", pct(0.90)).
		Dur("p99", pct(0.99)).
		Dur("max", samples[len(samples)-1]).
		Msg("latency percentiles")
}
