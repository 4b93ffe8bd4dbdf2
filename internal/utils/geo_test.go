package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHaversineKm(t *testing.T) {
	// Coimbatore railway station to the airport, roughly 10.5 km.
	d := HaversineKm(10.9968, 76.9663, 11.0297, 77.0436)
	assert.InDelta(t, 9.2, d, 1.0)

	assert.Zero(t, HaversineKm(11.0, 77.0, 11.0, 77.0))

	// One degree of latitude is about 111 km anywhere on the globe.
	d = HaversineKm(0, 0, 1, 0)
	assert.InDelta(t, 111.2, d, 0.5)

	// Symmetry.
	assert.InDelta(t,
		HaversineKm(10.0, 76.0, 11.0, 77.0),
		HaversineKm(11.0, 77.0, 10.0, 76.0), 1e-9)
}
