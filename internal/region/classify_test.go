package region

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akleaf/vendor-pipeline/internal/model"
)

func testRegions() []model.Region {
	return []model.Region{
		{ID: "anchorage", Name: "Anchorage", ZipCodes: []string{"99501", "99502", "99503"}, IsActive: true, IsPriority: true},
		{ID: "matsu", Name: "Mat-Su Valley", ZipCodes: []string{"99654", "99645"}, IsPriority: true},
		{ID: "overlap", Name: "Overlap", ZipCodes: []string{"99501"}, IsActive: true},
	}
}

func vendorWithZip(zip string) model.Vendor {
	var v model.Vendor
	v.Location.ZipCode = &zip
	return v
}

func TestRegionFor_ByZipField(t *testing.T) {
	c := NewClassifier(testRegions())
	r := c.RegionFor(vendorWithZip("99654"))
	require.NotNil(t, r)
	assert.Equal(t, "matsu", r.ID)
}

func TestRegionFor_FirstMatchWins(t *testing.T) {
	c := NewClassifier(testRegions())
	r := c.RegionFor(vendorWithZip("99501"))
	require.NotNil(t, r)
	assert.Equal(t, "anchorage", r.ID)
}

func TestRegionFor_ZipFromAddress(t *testing.T) {
	c := NewClassifier(testRegions())
	var v model.Vendor
	v.Location.Address = "4901 E Blue Lupine Dr, Wasilla, AK 99654"
	r := c.RegionFor(v)
	require.NotNil(t, r)
	assert.Equal(t, "matsu", r.ID)
}

func TestRegionFor_Unresolvable(t *testing.T) {
	c := NewClassifier(testRegions())
	assert.Nil(t, c.RegionFor(model.Vendor{}))
	assert.Nil(t, c.RegionFor(vendorWithZip("99999")))
}

func TestIsPriorityAndIsActive(t *testing.T) {
	c := NewClassifier(testRegions())
	assert.True(t, c.IsPriority(vendorWithZip("99645")))
	assert.False(t, c.IsActive(vendorWithZip("99645")))
	assert.True(t, c.IsActive(vendorWithZip("99502")))
	assert.False(t, c.IsPriority(vendorWithZip("99999")))
}
