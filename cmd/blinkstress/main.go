// Command blinkstress hammers a blinktree from many goroutines and verifies
// the result.
package main

import (
	"fmt"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/alexhholmes/blinktree"
	"github.com/alexhholmes/blinktree/logger"
)

var (
	configPath string
	flagCfg    = DefaultConfig()
)

var rootCmd = &cobra.Command{
	Use:          "blinkstress",
	Short:        "Concurrent insert/delete/lookup stress test for blinktree",
	SilenceUsage: true,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := resolveConfig(cmd)
		if err != nil {
			return err
		}

		log := logrus.New()
		level, err := logrus.ParseLevel(cfg.LogLevel)
		if err != nil {
			return errors.Wrap(err, "log level")
		}
		log.SetLevel(level)

		log.WithFields(logrus.Fields{
			"capacity": cfg.Capacity,
			"threads":  cfg.Threads,
			"keys":     cfg.Keys,
			"ops":      cfg.Ops,
			"strategy": cfg.Strategy,
		}).Info("starting stress run")

		report, err := Run(cfg, blinktree.WithLogger(logger.NewLogrus(log)))
		if err != nil {
			return err
		}
		printReport(cmd, report)
		return nil
	},
}

func init() {
	f := rootCmd.Flags()
	f.StringVarP(&configPath, "config", "c", "", "TOML file with run settings, overridden by explicit flags")
	f.IntVar(&flagCfg.Capacity, "capacity", flagCfg.Capacity, "max keys per node")
	f.IntVarP(&flagCfg.Threads, "threads", "t", flagCfg.Threads, "concurrent workers")
	f.IntVarP(&flagCfg.Keys, "keys", "k", flagCfg.Keys, "size of the shared key set")
	f.IntVar(&flagCfg.Ops, "ops", flagCfg.Ops, "operations per worker")
	f.StringVar(&flagCfg.Strategy, "strategy", flagCfg.Strategy, "insert strategy: optimistic or pessimistic")
	f.Int64Var(&flagCfg.Seed, "seed", flagCfg.Seed, "random seed")
	f.StringVar(&flagCfg.LogLevel, "log-level", flagCfg.LogLevel, "logrus level")
}

// resolveConfig layers defaults, the config file and explicitly set flags.
func resolveConfig(cmd *cobra.Command) (Config, error) {
	cfg := DefaultConfig()
	if configPath != "" {
		var err error
		if cfg, err = LoadConfig(configPath, cfg); err != nil {
			return cfg, err
		}
	}

	f := cmd.Flags()
	if f.Changed("capacity") {
		cfg.Capacity = flagCfg.Capacity
	}
	if f.Changed("threads") {
		cfg.Threads = flagCfg.Threads
	}
	if f.Changed("keys") {
		cfg.Keys = flagCfg.Keys
	}
	if f.Changed("ops") {
		cfg.Ops = flagCfg.Ops
	}
	if f.Changed("strategy") {
		cfg.Strategy = flagCfg.Strategy
	}
	if f.Changed("seed") {
		cfg.Seed = flagCfg.Seed
	}
	if f.Changed("log-level") {
		cfg.LogLevel = flagCfg.LogLevel
	}
	return cfg, cfg.Validate()
}

func printReport(cmd *cobra.Command, r Report) {
	out := cmd.OutOrStdout()
	rate := float64(r.Ops()) / r.Elapsed.Seconds()
	fmt.Fprintf(out, "operations   %s in %s (%s ops/s)\n",
		humanize.Comma(int64(r.Ops())), r.Elapsed.Round(time.Millisecond), humanize.Commaf(float64(int64(rate))))
	fmt.Fprintf(out, "  inserts    %s\n", humanize.Comma(int64(r.Inserts)))
	fmt.Fprintf(out, "  deletes    %s\n", humanize.Comma(int64(r.Deletes)))
	fmt.Fprintf(out, "  lookups    %s\n", humanize.Comma(int64(r.Lookups)))
	fmt.Fprintf(out, "keys present %s, height %d, nodes %s\n",
		humanize.Comma(int64(r.Present)), r.Height, humanize.Comma(int64(r.TreeStats.Nodes)))
	fmt.Fprintf(out, "splits %d, merges %d, rotations %d, restarts %d\n",
		r.TreeStats.Splits, r.TreeStats.Merges, r.TreeStats.Rotations, r.TreeStats.Restarts)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
