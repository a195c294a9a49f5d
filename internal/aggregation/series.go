package aggregation

import (
	"time"

	"github.com/babysphere/backend/internal/sensor"
)

// Options selects what BuildSeries charts
type Options struct {
	Timeframe Timeframe
	Metric    sensor.MetricKind
	MaxPoints int
	Location  *time.Location
}

// ChartSeries is the payload handed to chart renderers
type ChartSeries struct {
	Metric        sensor.MetricKind `json:"metric"`
	Timeframe     Timeframe         `json:"timeframe"`
	Unit          string            `json:"unit"`
	DecimalPlaces int               `json:"decimal_places"`
	Labels        []string          `json:"labels"`
	Values        []float64         `json:"values"`
	YAxisMin      float64           `json:"y_axis_min"`
	YAxisMax      float64           `json:"y_axis_max"`
	Points        []Bucket          `json:"points"`
}

// BuildSeries aggregates, downsamples and labels readings for one metric.
// Empty input yields an empty series with the metric's nominal axis.
func BuildSeries(readings []sensor.Reading, opts Options) ChartSeries {
	buckets := Downsample(Aggregate(readings, opts.Timeframe, opts.Metric, opts.Location), opts.MaxPoints)

	keys := make([]string, len(buckets))
	values := make([]float64, len(buckets))
	for i, b := range buckets {
		keys[i] = b.Key
		values[i] = b.Avg
	}

	budget := opts.MaxPoints
	if budget <= 0 {
		budget = len(buckets)
	}
	axis := YAxisRange(opts.Metric, values)

	return ChartSeries{
		Metric:        opts.Metric,
		Timeframe:     opts.Timeframe,
		Unit:          opts.Metric.Unit(),
		DecimalPlaces: opts.Metric.DecimalPlaces(),
		Labels:        ThinLabels(keys, LabelModulus(budget)),
		Values:        values,
		YAxisMin:      axis.Min,
		YAxisMax:      axis.Max,
		Points:        buckets,
	}
}
