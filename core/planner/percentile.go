package planner

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/hems/core/model"
)

// Quantiles returns the 30th and 60th percentile of the price series.
func Quantiles(prices []float64) (p30, p60 float64) {
	if len(prices) == 0 {
		return 0, 0
	}
	sorted := sortedCopy(prices)
	return stat.Quantile(0.3, stat.LinInterp, sorted, nil), stat.Quantile(0.6, stat.LinInterp, sorted, nil)
}

// Zone classifies price against the horizon thresholds.
func Zone(price, p30, p60 float64) model.PriceZone {
	switch {
	case price <= p30:
		return model.ZoneCheap
	case price <= p60:
		return model.ZoneModerate
	default:
		return model.ZoneExpensive
	}
}

func sortedCopy(v []float64) []float64 {
	out := append([]float64(nil), v...)
	sort.Float64s(out)
	return out
}
