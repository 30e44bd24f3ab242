// Package rectify flattens a photographed card: find the outline,
// perspective-correct it, binarize and deskew. Each stage falls back to the
// best image produced so far.
package rectify

import (
	"context"
	"errors"
	"image"
	"image/color"
	"log/slog"
	"time"

	"gocv.io/x/gocv"
	"golang.org/x/image/draw"
	"golang.org/x/sync/semaphore"

	"idintake/internal/document"
)

// Config holds the rectifier tunables.
type Config struct {
	Slots   int
	Timeout time.Duration

	BlurKernel      int
	CannyLow        float32
	CannyHigh       float32
	ApproxEpsilon   float64 // fraction of the contour perimeter
	MinQuadArea     float64 // fraction of the image area
	ThresholdBlock  int
	ThresholdC      float32
	MinDeskewPixels int
	DeskewMargin    float64 // fraction of the shorter side ignored at each edge
}

func DefaultConfig() Config {
	return Config{
		Slots:           3,
		Timeout:         30 * time.Second,
		BlurKernel:      5,
		CannyLow:        75,
		CannyHigh:       200,
		ApproxEpsilon:   0.02,
		MinQuadArea:     0.1,
		ThresholdBlock:  11,
		ThresholdC:      2,
		MinDeskewPixels: 10,
		DeskewMargin:    0.03,
	}
}

// Result is the rectified page. Corners is nil when no document outline was
// found and Rectified is then the plain grayscale input.
type Result struct {
	Rectified *image.Gray
	Binarized *image.Gray
	Corners   []image.Point
	// Deskew is the measured tilt in degrees, positive when the text ran
	// down to the right. Binarized has already been rotated level.
	Deskew float64
}

// ErrTimeout is returned when rectification outlives Config.Timeout. The
// caller degrades to the unrectified grayscale image.
var ErrTimeout = errors.New("rectification timed out")

// Rectifier bounds concurrent OpenCV work with a weighted semaphore.
type Rectifier struct {
	cfg     Config
	slots   *semaphore.Weighted
	logger  *slog.Logger
	metrics *Metrics
}

func New(cfg Config, logger *slog.Logger, metrics *Metrics) *Rectifier {
	if cfg.Slots < 1 {
		cfg.Slots = 1
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Rectifier{cfg: cfg, slots: semaphore.NewWeighted(int64(cfg.Slots)), logger: logger, metrics: metrics}
}

// Rectify blocks until a slot is free. The slot is held until the OpenCV
// work returns, even when the caller has already timed out.
func (r *Rectifier) Rectify(ctx context.Context, img document.Image) (*Result, error) {
	if err := r.slots.Acquire(ctx, 1); err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, r.cfg.Timeout)
	defer cancel()

	done := make(chan *Result, 1)
	start := time.Now()
	go func() {
		defer r.slots.Release(1)
		done <- r.process(img.Image)
	}()

	select {
	case res := <-done:
		r.metrics.ObserveDuration(time.Since(start))
		return res, nil
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			r.metrics.IncrementOutcome("timeout")
			return nil, ErrTimeout
		}
		return nil, ctx.Err()
	}
}

func (r *Rectifier) process(img image.Image) *Result {
	fallback := Grayscale(img)
	res := &Result{Rectified: fallback, Binarized: fallback}

	src, err := gocv.ImageToMatRGB(img)
	if err != nil {
		r.logger.Warn("rectify: image to mat failed", "error", err)
		r.metrics.IncrementOutcome("decode_fallback")
		return res
	}
	defer src.Close()

	gray := gocv.NewMat()
	defer gray.Close()
	gocv.CvtColor(src, &gray, gocv.ColorBGRToGray)

	flat, corners := r.perspective(gray)
	defer flat.Close()
	if corners != nil {
		res.Corners = corners
		r.metrics.IncrementOutcome("quad_found")
	} else {
		r.metrics.IncrementOutcome("no_quad")
	}
	if g, ok := toGray(flat); ok {
		res.Rectified = g
		res.Binarized = g
	}

	bin := gocv.NewMat()
	defer bin.Close()
	gocv.AdaptiveThreshold(flat, &bin, 255, gocv.AdaptiveThresholdGaussian, gocv.ThresholdBinary, r.cfg.ThresholdBlock, r.cfg.ThresholdC)
	if bin.Empty() {
		return res
	}
	if g, ok := toGray(bin); ok {
		res.Binarized = g
	}

	rotated, angle, ok := r.deskew(bin)
	if !ok {
		r.metrics.IncrementOutcome("deskew_skipped")
		return res
	}
	defer rotated.Close()
	if g, ok := toGray(rotated); ok {
		res.Binarized = g
		res.Deskew = angle
	}
	return res
}

// perspective finds the largest four-sided contour and warps it flat. It
// returns a clone of gray and nil corners when there is none.
func (r *Rectifier) perspective(gray gocv.Mat) (gocv.Mat, []image.Point) {
	blurred := gocv.NewMat()
	defer blurred.Close()
	k := r.cfg.BlurKernel
	gocv.GaussianBlur(gray, &blurred, image.Pt(k, k), 0, 0, gocv.BorderDefault)

	edges := gocv.NewMat()
	defer edges.Close()
	gocv.Canny(blurred, &edges, r.cfg.CannyLow, r.cfg.CannyHigh)

	contours := gocv.FindContours(edges, gocv.RetrievalList, gocv.ChainApproxSimple)
	defer contours.Close()

	best, bestArea := -1, 0.0
	for i := 0; i < contours.Size(); i++ {
		if area := gocv.ContourArea(contours.At(i)); area > bestArea {
			best, bestArea = i, area
		}
	}
	imageArea := float64(gray.Cols() * gray.Rows())
	if best < 0 || bestArea < r.cfg.MinQuadArea*imageArea {
		return gray.Clone(), nil
	}

	contour := contours.At(best)
	approx := gocv.ApproxPolyDP(contour, r.cfg.ApproxEpsilon*gocv.ArcLength(contour, true), true)
	defer approx.Close()
	pts := approx.ToPoints()
	if len(pts) != 4 {
		return gray.Clone(), nil
	}

	ordered := OrderCorners([4]image.Point{pts[0], pts[1], pts[2], pts[3]})
	size := DestinationSize(ordered)

	srcVec := gocv.NewPointVectorFromPoints(ordered[:])
	defer srcVec.Close()
	dstVec := gocv.NewPointVectorFromPoints([]image.Point{
		{0, 0}, {size.X - 1, 0}, {size.X - 1, size.Y - 1}, {0, size.Y - 1},
	})
	defer dstVec.Close()

	m := gocv.GetPerspectiveTransform(srcVec, dstVec)
	defer m.Close()
	if m.Empty() {
		return gray.Clone(), nil
	}

	warped := gocv.NewMat()
	gocv.WarpPerspective(gray, &warped, m, size)
	if warped.Empty() {
		warped.Close()
		return gray.Clone(), nil
	}
	return warped, ordered[:]
}

// deskew rotates bin so its ink is axis aligned. ok is false when there
// are too few ink pixels to trust the angle. Ink within the edge margin is
// ignored; a warped card often keeps a sliver of table along its border.
func (r *Rectifier) deskew(bin gocv.Mat) (gocv.Mat, float64, bool) {
	ink := gocv.NewMat()
	defer ink.Close()
	gocv.BitwiseNot(bin, &ink)

	inner := ink.Region(r.inkWindow(ink.Cols(), ink.Rows()))
	defer inner.Close()

	if gocv.CountNonZero(inner) < r.cfg.MinDeskewPixels {
		return gocv.Mat{}, 0, false
	}

	locs := gocv.NewMat()
	defer locs.Close()
	gocv.FindNonZero(inner, &locs)
	points := gocv.NewPointVectorFromMat(locs)
	defer points.Close()

	angle := SkewFromCorners(gocv.MinAreaRect(points).Points)
	if angle == 0 {
		return gocv.Mat{}, 0, false
	}

	// Positive rotation is counter-clockwise on screen, which lifts a line
	// that runs down to the right.
	center := image.Pt(bin.Cols()/2, bin.Rows()/2)
	rot := gocv.GetRotationMatrix2D(center, angle, 1.0)
	defer rot.Close()

	out := gocv.NewMat()
	gocv.WarpAffineWithParams(bin, &out, rot, image.Pt(bin.Cols(), bin.Rows()),
		gocv.InterpolationCubic, gocv.BorderReplicate, color.RGBA{})
	if out.Empty() {
		out.Close()
		return gocv.Mat{}, 0, false
	}
	return out, angle, true
}

func (r *Rectifier) inkWindow(cols, rows int) image.Rectangle {
	m := int(r.cfg.DeskewMargin * float64(min(cols, rows)))
	if m < 0 || 2*m >= cols || 2*m >= rows {
		m = 0
	}
	return image.Rect(m, m, cols-m, rows-m)
}

func toGray(m gocv.Mat) (*image.Gray, bool) {
	if m.Empty() {
		return nil, false
	}
	img, err := m.ToImage()
	if err != nil {
		return nil, false
	}
	if g, ok := img.(*image.Gray); ok {
		return g, true
	}
	return Grayscale(img), true
}

// Grayscale converts img without OpenCV. It is the floor every stage
// falls back to.
func Grayscale(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok {
		return g
	}
	b := img.Bounds()
	out := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	draw.Draw(out, out.Bounds(), img, b.Min, draw.Src)
	return out
}
