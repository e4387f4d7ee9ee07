package feature

import (
	"math"

	"github.com/ieee0824/cuedspeech-go/landmark"
)

// Distance returns the Euclidean distance between two landmarks.
func Distance(a, b landmark.Point) float32 {
	dx := b.X - a.X
	dy := b.Y - a.Y
	dz := b.Z - a.Z
	return float32(math.Sqrt(float64(dx*dx + dy*dy + dz*dz)))
}

// PolygonArea returns the area of the 2-D polygon given by the vertex
// coordinate slices, using the shoelace formula.
func PolygonArea(xs, ys []float32) float32 {
	if len(xs) != len(ys) || len(xs) == 0 {
		return 0
	}
	var area float32
	n := len(xs)
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		area += xs[i] * ys[j]
		area -= xs[j] * ys[i]
	}
	if area < 0 {
		area = -area
	}
	return area * 0.5
}

// MeanContourCurvature averages the interior angles over consecutive
// (prev, curr, next) triplets of the cyclic 2-D polyline. Triplets with a
// zero-norm edge vector are skipped.
func MeanContourCurvature(points [][2]float32) float32 {
	n := len(points)
	if n < 3 {
		return 0
	}
	var sum float32
	count := 0
	for i := 0; i < n; i++ {
		prev := points[(i-1+n)%n]
		curr := points[i]
		next := points[(i+1)%n]

		v1x := prev[0] - curr[0]
		v1y := prev[1] - curr[1]
		v2x := next[0] - curr[0]
		v2y := next[1] - curr[1]

		norm1 := float32(math.Sqrt(float64(v1x*v1x + v1y*v1y)))
		norm2 := float32(math.Sqrt(float64(v2x*v2x + v2y*v2y)))
		if norm1 < 1e-6 || norm2 < 1e-6 {
			continue
		}

		cosang := (v1x*v2x + v1y*v2y) / (norm1 * norm2)
		sum += float32(math.Acos(float64(clamp(cosang, -1, 1))))
		count++
	}
	if count == 0 {
		return 0
	}
	return sum / float32(count)
}

// Angle returns the angle at vertex b of the 3-D triangle (a, b, c), or 0
// when either edge vector has near-zero norm.
func Angle(a, b, c landmark.Point) float32 {
	v1x := a.X - b.X
	v1y := a.Y - b.Y
	v1z := a.Z - b.Z
	v2x := c.X - b.X
	v2y := c.Y - b.Y
	v2z := c.Z - b.Z

	dot := v1x*v2x + v1y*v2y + v1z*v2z
	norm1 := float32(math.Sqrt(float64(v1x*v1x + v1y*v1y + v1z*v1z)))
	norm2 := float32(math.Sqrt(float64(v2x*v2x + v2y*v2y + v2z*v2z)))
	if norm1 < 1e-6 || norm2 < 1e-6 {
		return 0
	}
	return float32(math.Acos(float64(clamp(dot/(norm1*norm2), -1, 1))))
}

func atan2f(y, x float32) float32 {
	return float32(math.Atan2(float64(y), float64(x)))
}

func clamp(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
