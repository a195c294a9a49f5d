package aggregation

// Downsample keeps the most recent maxPoints buckets, oldest first. A
// non-positive budget keeps everything.
func Downsample(buckets []Bucket, maxPoints int) []Bucket {
	start := 0
	if maxPoints > 0 && len(buckets) > maxPoints {
		start = len(buckets) - maxPoints
	}

	out := make([]Bucket, len(buckets)-start)
	copy(out, buckets[start:])
	return out
}

// LabelModulus returns how often an axis label is shown for a point budget
func LabelModulus(maxPoints int) int {
	switch {
	case maxPoints > 300:
		return 120
	case maxPoints > 40:
		return 12
	case maxPoints > 4:
		return 1
	default:
		return 2
	}
}

// ThinLabels blanks every label whose index is not a multiple of modulus
func ThinLabels(labels []string, modulus int) []string {
	if modulus < 1 {
		modulus = 1
	}

	out := make([]string, len(labels))
	for i, label := range labels {
		if i%modulus == 0 {
			out[i] = label
		}
	}
	return out
}
