package rectify

import (
	"image"
	"math"
)

// OrderCorners returns pts as top-left, top-right, bottom-right,
// bottom-left. x+y is smallest at top-left and largest at bottom-right;
// x-y is largest at top-right and smallest at bottom-left.
func OrderCorners(pts [4]image.Point) [4]image.Point {
	tl, br, tr, bl := pts[0], pts[0], pts[0], pts[0]
	for _, p := range pts[1:] {
		if p.X+p.Y < tl.X+tl.Y {
			tl = p
		}
		if p.X+p.Y > br.X+br.Y {
			br = p
		}
		if p.X-p.Y > tr.X-tr.Y {
			tr = p
		}
		if p.X-p.Y < bl.X-bl.Y {
			bl = p
		}
	}
	return [4]image.Point{tl, tr, br, bl}
}

// DestinationSize is the flat rectangle a quad maps onto: the longer of
// each pair of opposite sides.
func DestinationSize(c [4]image.Point) image.Point {
	tl, tr, br, bl := c[0], c[1], c[2], c[3]
	w := math.Max(dist(br, bl), dist(tr, tl))
	h := math.Max(dist(tr, br), dist(tl, bl))
	return image.Pt(max(1, int(math.Round(w))), max(1, int(math.Round(h))))
}

// NormalizeSkewAngle folds a rotated-rect angle into (-45, 45]. The angle
// is ambiguous by 90 degrees and OpenCV versions disagree on its range.
func NormalizeSkewAngle(angle float64) float64 {
	switch {
	case angle < -45:
		return angle + 90
	case angle > 45:
		return angle - 90
	default:
		return angle
	}
}

// SkewFromCorners reads the tilt of a rotated rectangle off its corner
// points, in degrees within (-45, 45]. Positive means the long side runs
// down to the right in image coordinates. It does not depend on the
// RotatedRect.Angle convention of the linked OpenCV.
func SkewFromCorners(pts []image.Point) float64 {
	var longest, dx, dy float64
	for i := range pts {
		a, b := pts[i], pts[(i+1)%len(pts)]
		if d := dist(a, b); d > longest {
			longest = d
			dx, dy = float64(b.X-a.X), float64(b.Y-a.Y)
		}
	}
	if longest == 0 {
		return 0
	}
	angle := math.Atan2(dy, dx) * 180 / math.Pi
	switch {
	case angle > 90:
		angle -= 180
	case angle <= -90:
		angle += 180
	}
	return NormalizeSkewAngle(angle)
}

func dist(a, b image.Point) float64 {
	return math.Hypot(float64(a.X-b.X), float64(a.Y-b.Y))
}
