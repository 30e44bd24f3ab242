package rectify

import (
	"image"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOrderCorners(t *testing.T) {
	want := [4]image.Point{{10, 12}, {210, 8}, {215, 140}, {6, 133}}

	perms := [][4]int{{0, 1, 2, 3}, {3, 2, 1, 0}, {2, 0, 3, 1}, {1, 3, 0, 2}}
	for _, p := range perms {
		in := [4]image.Point{want[p[0]], want[p[1]], want[p[2]], want[p[3]]}
		assert.Equal(t, want, OrderCorners(in), "input %v", in)
	}
}

func TestDestinationSize(t *testing.T) {
	t.Run("rectangle", func(t *testing.T) {
		got := DestinationSize([4]image.Point{{0, 0}, {300, 0}, {300, 200}, {0, 200}})
		assert.Equal(t, image.Pt(300, 200), got)
	})

	t.Run("takes the longer opposite side", func(t *testing.T) {
		got := DestinationSize([4]image.Point{{10, 10}, {200, 10}, {210, 110}, {0, 110}})
		assert.Equal(t, 210, got.X)
		assert.Equal(t, 100, got.Y)
	})

	t.Run("degenerate quad is at least one pixel", func(t *testing.T) {
		p := image.Pt(5, 5)
		assert.Equal(t, image.Pt(1, 1), DestinationSize([4]image.Point{p, p, p, p}))
	})
}

func TestNormalizeSkewAngle(t *testing.T) {
	tests := map[float64]float64{
		-89.5: 0.5,
		-45:   -45,
		-3:    -3,
		0:     0,
		2.5:   2.5,
		45:    45,
		88:    -2,
		90:    0,
	}
	for in, want := range tests {
		assert.InDelta(t, want, NormalizeSkewAngle(in), 1e-9, "angle %v", in)
	}
}

func TestSkewFromCorners(t *testing.T) {
	downRight := []image.Point{{0, 0}, {1000, 87}, {983, 287}, {-17, 200}}
	upRight := []image.Point{{0, 87}, {1000, 0}, {1017, 200}, {17, 287}}

	assert.InDelta(t, 4.97, SkewFromCorners(downRight), 0.05)
	assert.InDelta(t, -4.97, SkewFromCorners(upRight), 0.05)

	t.Run("corner order does not matter", func(t *testing.T) {
		shifted := []image.Point{downRight[2], downRight[3], downRight[0], downRight[1]}
		assert.InDelta(t, 4.97, SkewFromCorners(shifted), 0.05)
	})

	t.Run("tall rectangle folds onto its short side", func(t *testing.T) {
		tall := []image.Point{{0, 0}, {87, 1000}, {-113, 1017}, {-200, 17}}
		assert.InDelta(t, -4.97, SkewFromCorners(tall), 0.05)
	})

	assert.Zero(t, SkewFromCorners([]image.Point{{0, 0}, {100, 0}, {100, 50}, {0, 50}}))
	assert.Zero(t, SkewFromCorners(nil))
}
