package main

import (
	"encoding/json"
	"os"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/akleaf/vendor-pipeline/internal/model"
	"github.com/akleaf/vendor-pipeline/internal/store"
)

var (
	syncCollection string
	syncNoMerge    bool
	syncActiveOnly bool
)

// filterActiveVendors keeps vendors whose license status falls in the active
// vocabulary.
func filterActiveVendors(vendors []model.Vendor) []model.Vendor {
	out := vendors[:0]
	for _, v := range vendors {
		if v.IsActive() {
			out = append(out, v)
		}
	}
	return out
}

var syncCmd = &cobra.Command{
	Use:   "sync <file>",
	Short: "Push a categorized vendor file to a store collection",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return eris.Wrapf(err, "read %s", args[0])
		}
		var vendors []model.Vendor
		if err := json.Unmarshal(raw, &vendors); err != nil {
			return eris.Wrapf(err, "parse %s", args[0])
		}
		if syncActiveOnly {
			vendors = filterActiveVendors(vendors)
		}

		st, err := initStore()
		if err != nil {
			return eris.Wrap(err, "init store")
		}
		defer st.Close()

		if err := st.Migrate(ctx); err != nil {
			return eris.Wrap(err, "migrate store")
		}

		stamp := time.Now().UTC().Format(time.RFC3339)
		docs := make([]store.Document, 0, len(vendors))
		for _, v := range vendors {
			v.LastUpdated = stamp
			b, err := json.Marshal(v)
			if err != nil {
				return eris.Wrapf(err, "encode vendor %s", v.ID)
			}
			var data map[string]any
			if err := json.Unmarshal(b, &data); err != nil {
				return eris.Wrapf(err, "round-trip vendor %s", v.ID)
			}
			docs = append(docs, store.Document{ID: v.ID, Data: data})
		}

		stats, err := st.SetBatch(ctx, syncCollection, docs, !syncNoMerge)
		zap.L().Info("sync complete",
			zap.String("collection", syncCollection),
			zap.Int("total", stats.Total),
			zap.Int("successful", stats.Successful),
			zap.Int("failed", stats.Failed),
		)
		if err != nil {
			return eris.Wrap(err, "sync batch")
		}
		return nil
	},
}

func init() {
	syncCmd.Flags().StringVar(&syncCollection, "collection", "vendors", "target collection")
	syncCmd.Flags().BoolVar(&syncNoMerge, "no-merge", false, "overwrite documents instead of merging fields")
	syncCmd.Flags().BoolVar(&syncActiveOnly, "active-only", false, "sync only vendors with an active license status")
	rootCmd.AddCommand(syncCmd)
}
