package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAreaIndexEnrich(t *testing.T) {
	lat, lng := 31.52, 74.35
	idx := NewAreaIndex(map[string]AreaInfo{
		"Gulberg": {Division: "Gulberg Division", Lat: &lat, Lng: &lng},
	})

	enriched := idx.Enrich(Event{Area: "gulberg"})
	assert.Equal(t, "Gulberg Division", enriched.Division)
	assert.Equal(t, &lat, enriched.Lat)

	// Unmatched areas pass through untouched.
	same := idx.Enrich(Event{Area: "Johar Town"})
	assert.Empty(t, same.Division)
	assert.Nil(t, same.Lat)

	// Existing coordinates are never overwritten.
	ownLat := 30.0
	kept := idx.Enrich(Event{Area: "Gulberg", Lat: &ownLat})
	assert.Equal(t, &ownLat, kept.Lat)
}

func TestAreaIndexDivisions(t *testing.T) {
	idx := NewAreaIndex(map[string]AreaInfo{
		"a": {Division: "North"},
		"b": {Division: "South"},
		"c": {Division: "North"},
		"d": {},
	})
	assert.Equal(t, []string{"North", "South"}, idx.Divisions())
}
