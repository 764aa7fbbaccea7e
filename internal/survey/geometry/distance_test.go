package geometry

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDistance(t *testing.T) {
	t.Run("same point is zero", func(t *testing.T) {
		points := [][2]float64{{0, 0}, {31.6904, -106.4245}, {-33.86, 151.21}, {89.9, 179.9}}
		for _, p := range points {
			assert.Equal(t, 0.0, Distance(p[0], p[1], p[0], p[1]))
		}
	})

	t.Run("symmetric", func(t *testing.T) {
		ab := Distance(31.6904, -106.4245, 31.7379, -106.4333)
		ba := Distance(31.7379, -106.4333, 31.6904, -106.4245)
		assert.InDelta(t, ab, ba, 1e-9)
	})

	t.Run("thousandth of a degree of latitude", func(t *testing.T) {
		d := Distance(31.6904, -106.4245, 31.6914, -106.4245)
		assert.InDelta(t, 111.2, d, 1.0)
	})

	t.Run("ten thousandth of a degree of latitude", func(t *testing.T) {
		d := Distance(31.0, -106.0, 31.0001, -106.0)
		assert.InDelta(t, 11.1, d, 1.0)
	})

	t.Run("quarter meridian", func(t *testing.T) {
		d := Distance(0, 0, 90, 0)
		assert.InDelta(t, EarthRadiusMeters*3.141592653589793/2, d, 1e-3)
	})
}
