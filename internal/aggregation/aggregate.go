package aggregation

import (
	"math"
	"sort"
	"strconv"
	"time"

	"github.com/babysphere/backend/internal/sensor"
)

// Bucket holds the statistics of one metric over one time key. Count is at
// least one for every bucket returned.
type Bucket struct {
	Key   string    `json:"key"`
	Start time.Time `json:"start"`
	Min   float64   `json:"min"`
	Max   float64   `json:"max"`
	Avg   float64   `json:"avg"`
	Sum   float64   `json:"sum"`
	Count int       `json:"count"`
}

// Aggregate groups the valid readings for kind by timeframe and summarizes
// each group over the rounded metric values. Readings must already be in
// ascending timestamp order. Buckets come back sorted by Start.
func Aggregate(readings []sensor.Reading, tf Timeframe, kind sensor.MetricKind, loc *time.Location) []Bucket {
	valid := sensor.FilterValid(readings, kind)
	if len(valid) == 0 {
		return []Bucket{}
	}

	buckets := make([]Bucket, 0, len(valid))
	index := make(map[string]int, len(valid))

	for _, r := range valid {
		value, _ := sensor.SelectMetric(r, kind)

		group := BucketKey(r.Timestamp, tf, loc)
		if tf.groupsByTimestamp() {
			group = strconv.FormatInt(r.Timestamp.UnixNano(), 10)
		}

		i, ok := index[group]
		if !ok {
			index[group] = len(buckets)
			buckets = append(buckets, Bucket{
				Key:   BucketKey(r.Timestamp, tf, loc),
				Start: r.Timestamp,
				Min:   math.Inf(1),
				Max:   math.Inf(-1),
			})
			i = len(buckets) - 1
		}

		b := &buckets[i]
		b.Sum += value
		b.Count++
		b.Min = math.Min(b.Min, value)
		b.Max = math.Max(b.Max, value)
	}

	for i := range buckets {
		buckets[i].Avg = buckets[i].Sum / float64(buckets[i].Count)
	}

	sort.SliceStable(buckets, func(i, j int) bool {
		return buckets[i].Start.Before(buckets[j].Start)
	})

	return buckets
}
