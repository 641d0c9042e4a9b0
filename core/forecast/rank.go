package forecast

import (
	"sort"

	"github.com/kilianp07/hems/core/model"
)

// Ranks returns the mid-rank of every price within prices on a 0-100
// scale. Equal prices count half, so a flat series ranks every slot at 50.
func Ranks(prices []float64) []float64 {
	if len(prices) == 0 {
		return nil
	}
	sorted := append([]float64(nil), prices...)
	sort.Float64s(sorted)
	out := make([]float64, len(prices))
	for i, p := range prices {
		below := sort.SearchFloat64s(sorted, p)
		upto := sort.Search(len(sorted), func(i int) bool { return sorted[i] > p })
		out[i] = (float64(below) + float64(upto-below)/2) / float64(len(sorted)) * 100
	}
	return out
}

func withRanks(f model.Forecast) model.Forecast {
	f.Price.Percentiles = Ranks(f.Price.Values)
	return f
}
