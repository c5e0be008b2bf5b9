package vectorindex

import "math"

// MetricCosine01 is cosine similarity mapped onto [0,1] as (1+cos)/2
const MetricCosine01 = "cosine01"

// NormalizeL2 returns a copy of v scaled to unit length. A zero vector is copied as is.
func NormalizeL2(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	out := make([]float32, len(v))
	n := math.Sqrt(sum)
	if n == 0 {
		copy(out, v)
		return out
	}
	inv := 1.0 / n
	for i, x := range v {
		out[i] = float32(float64(x) * inv)
	}
	return out
}

// dot of two unit vectors of equal length
func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}

// Score01 maps a cosine value onto [0,1]
func Score01(cos float64) float64 {
	s := (1 + cos) / 2
	switch {
	case s < 0:
		return 0
	case s > 1:
		return 1
	default:
		return s
	}
}
