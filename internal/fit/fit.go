package fit

import (
	"math"

	"github.com/cbassuarez/flux/internal/ir"
)

// MinFontSize is the smallest font size ShrinkToFit will choose, in px.
const MinFontSize = 6.0

// shrinkIterations bounds the binary search in ShrinkToFit.
const shrinkIterations = 10

// Size is a width and height in px.
type Size struct {
	W, H float64
}

// Box is something that can be measured and resized. Containers are
// measured as-is; inner boxes are re-measured after each font change.
type Box interface {
	// Size returns the current laid-out size.
	Size() Size
	// FontSize returns the current font size in px.
	FontSize() float64
	// SetFontSize applies a font size.
	SetFontSize(px float64)
	// SetScale applies a uniform top-left anchored scale.
	SetScale(s float64)
}

// Result reports what a resolver applied.
type Result struct {
	Policy   ir.FitPolicy
	FontSize float64 // set for shrink
	Scale    float64 // set for scaleDown
	Applied  bool
}

// Resolve applies policy to inner within container. Clip and ellipsis
// are static and resolved by styling alone, so they do nothing here.
func Resolve(policy ir.FitPolicy, container, inner Box) Result {
	switch policy {
	case ir.FitShrink:
		return Result{Policy: policy, FontSize: ShrinkToFit(container, inner), Applied: true}
	case ir.FitScaleDown:
		return Result{Policy: policy, Scale: ScaleDownToFit(container, inner), Applied: true}
	}
	return Result{Policy: policy}
}

// ShrinkToFit binary-searches the largest font size in [MinFontSize, base]
// at which inner fits container, applies it, and returns it. base is the
// inner box's font size on entry. When base is below MinFontSize the
// result is MinFontSize.
func ShrinkToFit(container, inner Box) float64 {
	base := inner.FontSize()
	if base <= MinFontSize || math.IsNaN(base) {
		inner.SetFontSize(MinFontSize)
		return MinFontSize
	}

	limit := container.Size()
	lo, hi := MinFontSize, base
	best := MinFontSize
	for i := 0; i < shrinkIterations; i++ {
		mid := (lo + hi) / 2
		inner.SetFontSize(mid)
		if fits(inner.Size(), limit) {
			best = mid
			lo = mid
		} else {
			hi = mid
		}
	}

	// The full size often fits; the search above never tries hi itself.
	inner.SetFontSize(base)
	if fits(inner.Size(), limit) {
		best = base
	}
	inner.SetFontSize(best)
	return best
}

func fits(inner, container Size) bool {
	return inner.W <= container.W && inner.H <= container.H
}

// ScaleDownToFit applies and returns min(1, cw/iw, ch/ih). Inner
// dimensions of zero are ignored. The scale never exceeds 1.
func ScaleDownToFit(container, inner Box) float64 {
	c, in := container.Size(), inner.Size()
	scale := 1.0
	if in.W > 0 {
		scale = math.Min(scale, c.W/in.W)
	}
	if in.H > 0 {
		scale = math.Min(scale, c.H/in.H)
	}
	if scale < 0 || math.IsNaN(scale) {
		scale = 0
	}
	inner.SetScale(scale)
	return scale
}
