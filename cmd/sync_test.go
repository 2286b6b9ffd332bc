package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akleaf/vendor-pipeline/internal/model"
)

func TestFilterActiveVendors(t *testing.T) {
	vendors := []model.Vendor{
		{ID: "1", Status: "Active-Operating"},
		{ID: "2", Status: "Revoked"},
		{ID: "3", Status: "Suspended"},
		{ID: "4", Status: "Pending Inspection"},
	}

	got := filterActiveVendors(vendors)
	require.Len(t, got, 2)
	assert.Equal(t, "1", got[0].ID)
	assert.Equal(t, "4", got[1].ID)
}

func TestSyncFlags(t *testing.T) {
	for _, flag := range []string{"collection", "no-merge", "active-only"} {
		assert.NotNil(t, syncCmd.Flags().Lookup(flag), "flag %s", flag)
	}
}
