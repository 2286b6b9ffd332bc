package main

import (
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/akleaf/vendor-pipeline/internal/address"
	"github.com/akleaf/vendor-pipeline/pkg/geocode"
)

var (
	geocodeProvider string
	geocodeClean    bool
)

var geocodeCmd = &cobra.Command{
	Use:   "geocode <address>",
	Short: "Geocode a single address and print the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := args[0]
		if geocodeClean {
			addr = address.Clean(addr).Cleaned
		}

		gc := geocode.NewClient(
			geocode.WithProvider(cfg.Geocoder.Provider),
			geocode.WithProvider(geocodeProvider),
			geocode.WithAPIKey(cfg.Geocoder.APIKey),
			geocode.WithRapidAPI(cfg.Geocoder.RapidAPIKey, cfg.Geocoder.RapidAPIHost),
			geocode.WithRateLimit(cfg.Geocoder.RateLimit),
		)

		result, err := gc.Geocode(cmd.Context(), addr)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	},
}

func init() {
	geocodeCmd.Flags().StringVar(&geocodeProvider, "provider", "", "geocoding provider override (google, rapidapi)")
	geocodeCmd.Flags().BoolVar(&geocodeClean, "clean", false, "clean the address before geocoding")
	rootCmd.AddCommand(geocodeCmd)
}
