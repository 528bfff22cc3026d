// Package estimator derives a shippable parcel from cart contents.
//
// The real box shape is unknown without bin packing, which is out of scope:
// instead the total item volume is collapsed into a cube with floor values,
// giving a conservative but always valid rate request.
package estimator

import (
	"math"

	"github.com/eraiiz/shipping/internal/models"
)

const (
	// Per-item defaults applied when a product record has no physical data.
	defaultDimCm    = 10.0
	defaultWeightKg = 0.5

	// Request floors. The rate API rejects zero-volume/zero-weight parcels.
	minSideCm       = 10.0
	minEstWeightKg  = 0.1
	minRateWeightKg = 0.5

	defaultPackaging = "box"
)

// Estimate aggregates cart line items into a single cubic parcel. An empty
// cart yields the floor parcel {10,10,10,0.1}; there is no error path.
func Estimate(items []models.CartLineItem) models.Parcel {
	var totalVolume, totalWeight float64
	for _, it := range items {
		qty := float64(it.Quantity)
		if qty <= 0 {
			continue
		}
		l := orDefault(it.Length, defaultDimCm)
		w := orDefault(it.Width, defaultDimCm)
		h := orDefault(it.Height, defaultDimCm)
		totalVolume += l * w * h * qty
		totalWeight += orDefault(it.Weight, defaultWeightKg) * qty
	}

	side := math.Cbrt(totalVolume)
	if side < minSideCm {
		side = minSideCm
	}
	if totalWeight < minEstWeightKg {
		totalWeight = minEstWeightKg
	}

	return models.Parcel{
		Length:        side,
		Width:         side,
		Height:        side,
		Weight:        totalWeight,
		PackagingType: defaultPackaging,
	}
}

// NormalizeParcel applies the rate-request floors to a caller-supplied parcel
// so a zero or negative field never reaches the backend.
func NormalizeParcel(p models.Parcel) models.Parcel {
	p.Length = orDefault(p.Length, minSideCm)
	p.Width = orDefault(p.Width, minSideCm)
	p.Height = orDefault(p.Height, minSideCm)
	p.Weight = orDefault(p.Weight, minRateWeightKg)
	if p.PackagingType == "" {
		p.PackagingType = defaultPackaging
	}
	return p
}

func orDefault(v, def float64) float64 {
	if v <= 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return def
	}
	return v
}
