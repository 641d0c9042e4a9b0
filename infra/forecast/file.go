package forecast

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	coreforecast "github.com/kilianp07/hems/core/forecast"
	"github.com/kilianp07/hems/core/model"
)

// FileForecast is the on-disk forecast layout. Series are per 15 minute
// slot from Start: consumption and pv in kWh, price in currency per kWh.
type FileForecast struct {
	Start       time.Time              `json:"start" yaml:"start"`
	Consumption []float64              `json:"consumption" yaml:"consumption"`
	PV          []float64              `json:"pv" yaml:"pv"`
	Price       []float64              `json:"price" yaml:"price"`
	Maturity    float64                `json:"maturity" yaml:"maturity"`
	CloudCover  *float64               `json:"cloud_cover" yaml:"cloud_cover"`
	PVAccuracy  []model.AccuracySample `json:"pv_accuracy" yaml:"pv_accuracy"`
}

// FileProvider reads a forecast file on every fetch, so an external
// forecaster can rewrite it between cycles.
type FileProvider struct {
	Path string
}

// LoadFile parses a forecast file, JSON for .json and YAML otherwise.
func LoadFile(path string) (model.Forecast, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return model.Forecast{}, fmt.Errorf("read forecast: %w", err)
	}
	var ff FileForecast
	unmarshal := yaml.Unmarshal
	if strings.EqualFold(filepath.Ext(path), ".json") {
		unmarshal = json.Unmarshal
	}
	if err := unmarshal(data, &ff); err != nil {
		return model.Forecast{}, fmt.Errorf("decode forecast %s: %w", path, err)
	}
	if ff.Start.IsZero() {
		return model.Forecast{}, fmt.Errorf("forecast %s: start is required", path)
	}
	maturity := ff.Maturity
	if maturity == 0 {
		maturity = 100
	}
	return model.Forecast{
		Start:       ff.Start,
		Consumption: model.ForecastSeries{Values: ff.Consumption, Maturity: maturity},
		PV:          model.ForecastSeries{Values: ff.PV, Maturity: maturity},
		Price:       model.ForecastSeries{Values: ff.Price, Maturity: maturity},
		PVAccuracy:  ff.PVAccuracy,
		CloudCover:  ff.CloudCover,
	}, nil
}

func (p FileProvider) Fetch(ctx context.Context, start time.Time, slots int) (model.Forecast, error) {
	if err := ctx.Err(); err != nil {
		return model.Forecast{}, err
	}
	f, err := LoadFile(p.Path)
	if err != nil {
		return model.Forecast{}, err
	}
	if start.Before(f.Start) {
		return model.Forecast{}, fmt.Errorf("forecast %s starts at %s, after %s", p.Path, f.Start.Format(time.RFC3339), start.Format(time.RFC3339))
	}
	f = coreforecast.Align(f, start)
	if slots > 0 {
		f.Consumption.Values = head(f.Consumption.Values, slots)
		f.PV.Values = head(f.PV.Values, slots)
		f.Price.Values = head(f.Price.Values, slots)
	}
	return f, nil
}

func head(v []float64, n int) []float64 {
	if len(v) > n {
		return v[:n]
	}
	return v
}
