package document

import "math"

// Field names a region of the supported card template.
type Field string

const (
	FieldPhoto    Field = "photo"
	FieldName     Field = "name"
	FieldIDNumber Field = "dlNumber"
	FieldDOB      Field = "dob"
	FieldExpiry   Field = "expiry"
)

// TextFields are the regions that go through OCR, in reporting order.
var TextFields = []Field{FieldName, FieldIDNumber, FieldDOB, FieldExpiry}

// NormalizedRegion is a rectangle relative to a rectified document, each
// component nominally in [0,1]. Stored values may overhang the edge; Crop
// clamps them.
type NormalizedRegion struct {
	X, Y, W, H float64
}

// Clamp returns the region with every component clamped to [0,1].
func (r NormalizedRegion) Clamp() NormalizedRegion {
	return NormalizedRegion{X: clamp01(r.X), Y: clamp01(r.Y), W: clamp01(r.W), H: clamp01(r.H)}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(1, v))
}

// RegionLayout is the fixed table of field regions for one card template.
type RegionLayout struct {
	Name    string
	Version int
	regions map[Field]NormalizedRegion
}

// NewRegionLayout copies regions so the layout cannot be mutated afterwards.
func NewRegionLayout(name string, version int, regions map[Field]NormalizedRegion) RegionLayout {
	copied := make(map[Field]NormalizedRegion, len(regions))
	for k, v := range regions {
		copied[k] = v
	}
	return RegionLayout{Name: name, Version: version, regions: copied}
}

// Region looks up a field's region.
func (l RegionLayout) Region(field Field) (NormalizedRegion, bool) {
	r, ok := l.regions[field]
	return r, ok
}

// Fields returns the fields the layout defines, photo first then TextFields order.
func (l RegionLayout) Fields() []Field {
	out := make([]Field, 0, len(l.regions))
	for _, f := range append([]Field{FieldPhoto}, TextFields...) {
		if _, ok := l.regions[f]; ok {
			out = append(out, f)
		}
	}
	return out
}

// DefaultLayout is the generous hand-tuned layout for the supported license
// template. Regions deliberately overlap neighbours so imperfect
// rectification still captures the whole field.
var DefaultLayout = NewRegionLayout("license-v1", 1, map[Field]NormalizedRegion{
	FieldPhoto:    {X: 0.02, Y: 0.18, W: 0.32, H: 0.72},
	FieldName:     {X: 0.33, Y: 0.17, W: 0.66, H: 0.20},
	FieldIDNumber: {X: 0.33, Y: 0.34, W: 0.66, H: 0.14},
	FieldDOB:      {X: 0.33, Y: 0.46, W: 0.50, H: 0.14},
	FieldExpiry:   {X: 0.33, Y: 0.58, W: 0.66, H: 0.16},
})
