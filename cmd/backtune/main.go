package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/backtune/backtune"
	"github.com/backtune/backtune/dataset"
	"github.com/backtune/backtune/optimizer"
	"github.com/backtune/backtune/storage"
	"github.com/backtune/backtune/strategies"
)

var (
	configFile  string
	dataFile    string
	symbol      string
	outputDir   string
	engineName  string
	archivePath string
	runID       string
	showTop     int
)

func main() {
	rootCmd := &cobra.Command{
		Use:     "backtune",
		Short:   "Strategy parameter-search engine",
		Version: "1.0.0",
	}
	rootCmd.AddCommand(buildOptimizeCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func buildOptimizeCmd() *cobra.Command {
	optimizeCmd := &cobra.Command{
		Use:   "optimize",
		Short: "Search the configured parameter space against a price dataset",
		RunE:  runOptimize,
	}

	optimizeCmd.Flags().StringVarP(&configFile, "config", "c", "", "Optimization config file (JSON or YAML)")
	optimizeCmd.Flags().StringVarP(&dataFile, "data", "d", "", "OHLCV CSV dataset")
	optimizeCmd.Flags().StringVarP(&symbol, "symbol", "s", "", "Symbol label for the dataset")
	optimizeCmd.Flags().StringVarP(&outputDir, "output", "o", "", "Output directory (overrides config)")
	optimizeCmd.Flags().StringVarP(&engineName, "engine", "e", "", "Search engine (overrides config)")
	optimizeCmd.Flags().StringVarP(&archivePath, "archive", "a", "", "SQLite archive for finished runs")
	optimizeCmd.Flags().StringVarP(&runID, "run-id", "r", "", "Run identifier used in the archive")
	optimizeCmd.Flags().IntVarP(&showTop, "top", "t", 5, "Number of top results to print")

	optimizeCmd.MarkFlagRequired("config")
	optimizeCmd.MarkFlagRequired("data")

	return optimizeCmd
}

func runOptimize(cmd *cobra.Command, _ []string) error {
	log := backtune.DefaultLog

	cfg, err := optimizer.LoadConfig(configFile)
	if err != nil {
		return err
	}
	cfg.WithLogger(log)
	if outputDir != "" {
		cfg.WithOutputDir(outputDir)
	}
	if engineName != "" {
		cfg.WithEngine(optimizer.EngineName(engineName))
	}
	if archivePath != "" {
		archive, err := storage.NewSQLFromSQLite(archivePath, storage.DefaultSQLConfig())
		if err != nil {
			return err
		}
		defer archive.Close()
		if runID == "" {
			runID = fmt.Sprintf("run-%d", os.Getpid())
		}
		cfg.WithStorage(runID, archive)
	}

	df, err := dataset.Load(dataFile, symbol)
	if err != nil {
		return err
	}
	log.Infof("loaded %d rows from %s", df.Len(), dataFile)

	opt, err := optimizer.New(cfg, df, strategies.NewMACross())
	if err != nil {
		return err
	}

	result, err := opt.Run(cmd.Context())
	if result != nil {
		optimizer.PrintResults(os.Stdout, result.History, showTop)
		if best := result.Best; best != nil {
			fmt.Printf("\nbest parameters: %s (fitness %.6f)\n", best.Assignment.Key(), best.Fitness)
		} else {
			fmt.Println("\nno feasible candidate found")
		}
	}
	return err
}
