package main

import (
	"encoding/json"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/akleaf/vendor-pipeline/internal/model"
)

var regionsCmd = &cobra.Command{
	Use:   "regions",
	Short: "Manage the priority region lookup table",
}

var regionsInitCmd = &cobra.Command{
	Use:   "init <file>",
	Short: "Load region definitions from a JSON file into the store",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read %s", args[0])
		}
		var regions []model.Region
		if err := json.Unmarshal(raw, &regions); err != nil {
			return eris.Wrapf(err, "parse %s", args[0])
		}

		st, err := initStore()
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}
		if err := st.SaveRegions(ctx, regions); err != nil {
			return eris.Wrap(err, "save regions")
		}

		zap.L().Info("regions loaded", zap.Int("count", len(regions)))
		return nil
	},
}

var regionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Print the configured regions",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := initStore()
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close()

		regions, err := st.LoadRegions(cmd.Context())
		if err != nil {
			return eris.Wrap(err, "load regions")
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(regions)
	},
}

func init() {
	regionsCmd.AddCommand(regionsInitCmd)
	regionsCmd.AddCommand(regionsListCmd)
	rootCmd.AddCommand(regionsCmd)
}
