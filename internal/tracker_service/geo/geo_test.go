package geo_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colispro/delivery_tracker/internal/tracker_service/geo"
)

func TestExtractCoordinates_DecimalPair(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		wantLat float64
		wantLon float64
	}{
		{name: "bare pair", text: "36.8065, 10.1815", wantLat: 36.8065, wantLon: 10.1815},
		{name: "embedded in message", text: "36.8065,10.1815 delivered 3 boxes", wantLat: 36.8065, wantLon: 10.1815},
		{name: "signed values", text: "position -1.5, +2.25 now", wantLat: -1.5, wantLon: 2.25},
		{name: "leading dot", text: ".5,.25", wantLat: 0.5, wantLon: 0.25},
		{name: "first pair wins", text: "1.0,2.0 and 3.0,4.0", wantLat: 1.0, wantLon: 2.0},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lat, lon := geo.ExtractCoordinates(tc.text)
			require.NotNil(t, lat)
			require.NotNil(t, lon)
			assert.InDelta(t, tc.wantLat, *lat, 1e-9)
			assert.InDelta(t, tc.wantLon, *lon, 1e-9)
		})
	}
}

func TestExtractCoordinates_DMSPair(t *testing.T) {
	lat, lon := geo.ExtractCoordinates("at 34°47'39.2N 10°10'0E today")
	require.NotNil(t, lat)
	require.NotNil(t, lon)
	assert.InDelta(t, 34.794222, *lat, 1e-4)
	assert.InDelta(t, 10.166667, *lon, 1e-4)
}

func TestExtractCoordinates_DecimalBeatsDMS(t *testing.T) {
	lat, lon := geo.ExtractCoordinates("36.8065,10.1815 near 34°47'39.2N 10°10'0E")
	require.NotNil(t, lat)
	require.NotNil(t, lon)
	assert.InDelta(t, 36.8065, *lat, 1e-9)
	assert.InDelta(t, 10.1815, *lon, 1e-9)
}

func TestExtractCoordinates_None(t *testing.T) {
	tests := []struct {
		name string
		text string
	}{
		{name: "plain text", text: "delivered two boxes"},
		{name: "integers are not a decimal pair", text: "36, 10"},
		{name: "single DMS token rejected", text: "34°47'39.2N only"},
		{name: "three DMS tokens rejected", text: "1°2'3N 4°5'6E 7°8'9W"},
		{name: "empty", text: ""},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			lat, lon := geo.ExtractCoordinates(tc.text)
			assert.Nil(t, lat)
			assert.Nil(t, lon)
		})
	}
}

func TestDMSToDecimal(t *testing.T) {
	north := geo.DMSToDecimal("34°47'39.2N")
	require.NotNil(t, north)
	assert.InDelta(t, 34.794222, *north, 1e-4)

	south := geo.DMSToDecimal("10°10'0S")
	require.NotNil(t, south)
	assert.InDelta(t, -10.166667, *south, 1e-4)

	west := geo.DMSToDecimal(" 71°3'42.1w ")
	require.NotNil(t, west)
	assert.Negative(t, *west)

	assert.Nil(t, geo.DMSToDecimal("not a coordinate"))
	assert.Nil(t, geo.DMSToDecimal("34°47'N"))
}
