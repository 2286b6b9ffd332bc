package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/akleaf/vendor-pipeline/internal/pipeline"
	"github.com/akleaf/vendor-pipeline/internal/validate"
	"github.com/akleaf/vendor-pipeline/pkg/geocode"
)

var (
	processInput        string
	processOutput       string
	processProvider     string
	processConcurrency  int
	processDelayMs      int
	processForce        bool
	processAllRegions   bool
	processNoClean      bool
	processNoValidate   bool
	processSkipSync     bool
	processArchiveOnly  bool
	processDeleteInput  bool
	processDeleteSynced bool
)

var processCmd = &cobra.Command{
	Use:   "process",
	Short: "Run the full vendor processing workflow",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		st, err := initStore()
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		gc := geocode.NewClient(
			geocode.WithProvider(cfg.Geocoder.Provider),
			geocode.WithProvider(processProvider),
			geocode.WithAPIKey(cfg.Geocoder.APIKey),
			geocode.WithRapidAPI(cfg.Geocoder.RapidAPIKey, cfg.Geocoder.RapidAPIHost),
			geocode.WithRateLimit(cfg.Geocoder.RateLimit),
		)

		concurrency, delay := geocodeTuning(cmd)

		opts := pipeline.Options{
			Input:               processInput,
			Output:              processOutput,
			FailuresDir:         cfg.Pipeline.FailuresDir,
			ArchiveDir:          cfg.Pipeline.ArchiveDir,
			PriorityOnly:        cfg.Pipeline.PriorityOnly && !processAllRegions,
			ArchiveNonPriority:  cfg.Pipeline.ArchiveNonPriority,
			CleanAddresses:      cfg.Pipeline.CleanAddresses && !processNoClean,
			ValidateCoordinates: cfg.Pipeline.ValidateCoordinates && !processNoValidate,
			ArchiveStages:       cfg.Pipeline.ArchiveStages,
			Concurrency:         concurrency,
			Delay:               delay,
			ForceGeocode:        processForce,
			SkipSync:            cfg.Pipeline.SkipSync || processSkipSync || processArchiveOnly,
			SyncMerge:           cfg.Pipeline.SyncMerge,
			DeleteAfterArchive:  cfg.Pipeline.DeleteAfterArchive || processDeleteInput,
			DeleteAfterSync:     cfg.Pipeline.DeleteAfterSync || processDeleteSynced,
			Collections: pipeline.Collections{
				Active:       cfg.Pipeline.Collections.Active,
				PriorityOnly: cfg.Pipeline.Collections.PriorityOnly,
				Other:        cfg.Pipeline.Collections.Other,
			},
		}

		p := pipeline.New(st, gc, validate.New(cfg.Bounds))
		result, err := p.Run(ctx, opts)
		if err != nil {
			zap.L().Error("processing failed", zap.Error(err))
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if encErr := enc.Encode(result); encErr != nil {
			return encErr
		}
		return err
	},
}

// geocodeTuning resolves batch tuning: an explicitly set flag wins, otherwise
// the configured value applies.
func geocodeTuning(cmd *cobra.Command) (int, time.Duration) {
	concurrency := processConcurrency
	if !cmd.Flags().Changed("concurrency") && cfg.Geocoder.Concurrency > 0 {
		concurrency = cfg.Geocoder.Concurrency
	}
	delayMs := processDelayMs
	if !cmd.Flags().Changed("delay-ms") && cfg.Geocoder.DelayMs > 0 {
		delayMs = cfg.Geocoder.DelayMs
	}
	return concurrency, time.Duration(delayMs) * time.Millisecond
}

func init() {
	processCmd.Flags().StringVar(&processInput, "input", "./data/vendors.json", "input vendor JSON file")
	processCmd.Flags().StringVar(&processOutput, "output", "./data/output/finalized-vendors.json", "base path for categorized output files")
	processCmd.Flags().StringVar(&processProvider, "provider", "", "geocoding provider override (google, rapidapi)")
	processCmd.Flags().IntVar(&processConcurrency, "concurrency", 2, "geocoding batch size")
	processCmd.Flags().IntVar(&processDelayMs, "delay-ms", 200, "delay between geocoding batches in milliseconds")
	processCmd.Flags().BoolVar(&processForce, "force-geocode", false, "re-geocode vendors that already have valid coordinates")
	processCmd.Flags().BoolVar(&processAllRegions, "all-regions", false, "process all vendors, not just priority regions")
	processCmd.Flags().BoolVar(&processNoClean, "no-clean", false, "skip address cleaning")
	processCmd.Flags().BoolVar(&processNoValidate, "no-validate", false, "skip coordinate validation")
	processCmd.Flags().BoolVar(&processSkipSync, "skip-sync", false, "skip syncing to the document store")
	processCmd.Flags().BoolVar(&processArchiveOnly, "archive-only", false, "produce artifacts without syncing")
	processCmd.Flags().BoolVar(&processDeleteInput, "delete-input", false, "delete the input file after archiving")
	processCmd.Flags().BoolVar(&processDeleteSynced, "delete-synced", false, "delete categorized output files after a successful sync")
	rootCmd.AddCommand(processCmd)
}
