package document

import (
	"image"
	"math"

	"golang.org/x/image/draw"
)

// Crop cuts region out of img. Bounds are rounded, clamped to the source
// and never smaller than 1x1, so Crop never reads outside img and never
// panics for a finite region.
func Crop(img image.Image, region NormalizedRegion) *image.RGBA {
	rect := PixelBounds(img.Bounds(), region)
	out := image.NewRGBA(image.Rect(0, 0, rect.Dx(), rect.Dy()))
	draw.Draw(out, out.Bounds(), img, rect.Min, draw.Src)
	return out
}

// PixelBounds maps a normalized region onto src.
func PixelBounds(src image.Rectangle, region NormalizedRegion) image.Rectangle {
	r := region.Clamp()
	w, h := src.Dx(), src.Dy()
	if w <= 0 || h <= 0 {
		return image.Rectangle{Min: src.Min, Max: src.Min.Add(image.Pt(1, 1))}
	}

	x0 := clampInt(int(math.Round(r.X*float64(w))), 0, w-1)
	y0 := clampInt(int(math.Round(r.Y*float64(h))), 0, h-1)
	cw := clampInt(int(math.Round(r.W*float64(w))), 1, w-x0)
	ch := clampInt(int(math.Round(r.H*float64(h))), 1, h-y0)

	origin := src.Min.Add(image.Pt(x0, y0))
	return image.Rectangle{Min: origin, Max: origin.Add(image.Pt(cw, ch))}
}

// CropAll crops every region of the layout.
func CropAll(img image.Image, layout RegionLayout) map[Field]*image.RGBA {
	out := make(map[Field]*image.RGBA, len(layout.regions))
	for _, f := range layout.Fields() {
		region, _ := layout.Region(f)
		out[f] = Crop(img, region)
	}
	return out
}

// Upscale enlarges img so its height is at least minHeight. Tesseract reads
// glyphs around 30px tall best; field crops from phone photos are often
// smaller.
func Upscale(img image.Image, minHeight int) image.Image {
	b := img.Bounds()
	if b.Dy() >= minHeight || b.Dy() == 0 {
		return img
	}
	scale := float64(minHeight) / float64(b.Dy())
	dst := image.NewRGBA(image.Rect(0, 0, int(math.Round(float64(b.Dx())*scale)), minHeight))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, b, draw.Src, nil)
	return dst
}

func clampInt(v, lo, hi int) int {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
