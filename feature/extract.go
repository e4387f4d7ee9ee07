// Package feature turns raw 3-D landmark frames into the fixed 33-float,
// scale-invariant vectors the sequence model consumes. Distances are
// normalized by face width (hand-internal distances by hand span), and
// velocity/acceleration components come from the two preceding frames.
package feature

import "github.com/ieee0824/cuedspeech-go/landmark"

// Sub-vector widths of the 33-float frame layout.
const (
	HandShapeDim    = 7
	HandPositionDim = 18
	LipsDim         = 8
	TotalDim        = HandShapeDim + HandPositionDim + LipsDim
)

// Landmark index sets read by the extractor.
var (
	handShapePairs = [5][2]int{{0, 4}, {0, 8}, {0, 12}, {0, 16}, {0, 20}}
	handPosIndices = [3]int{8, 9, 12}
	facePosIndices = [5]int{234, 200, 214, 454, 280}
	lipOuter       = [20]int{
		61, 185, 40, 39, 37, 0, 267, 269, 270, 409,
		291, 375, 321, 405, 314, 17, 84, 181, 91, 146,
	}
)

// Vector is one frame's feature set, partitioned the way the sequence
// model consumes it.
type Vector struct {
	HandShape    [HandShapeDim]float32
	HandPosition [HandPositionDim]float32
	Lips         [LipsDim]float32
}

// Flat packs the vector as 33 floats in hand-shape, hand-position, lips
// order.
func (v *Vector) Flat() [TotalDim]float32 {
	var out [TotalDim]float32
	copy(out[:HandShapeDim], v.HandShape[:])
	copy(out[HandShapeDim:HandShapeDim+HandPositionDim], v.HandPosition[:])
	copy(out[HandShapeDim+HandPositionDim:], v.Lips[:])
	return out
}

// FromFlat splits a packed 33-float vector back into its partitions.
func FromFlat(f [TotalDim]float32) Vector {
	var v Vector
	copy(v.HandShape[:], f[:HandShapeDim])
	copy(v.HandPosition[:], f[HandShapeDim:HandShapeDim+HandPositionDim])
	copy(v.Lips[:], f[HandShapeDim+HandPositionDim:])
	return v
}

// Extract computes the feature vector for cur, using prev (t-1) and prev2
// (t-2) for the velocity and acceleration components. It reports false
// when any required landmark is missing or non-finite, a normalization
// divisor underflows, or either history frame is absent. An invalid frame
// is a normal outcome: the caller drops it.
func Extract(cur, prev, prev2 *landmark.Frame) (Vector, bool) {
	var v Vector
	if cur == nil {
		return v, false
	}

	f454, ok := cur.FacePoint(454)
	if !ok {
		return v, false
	}
	f234, ok := cur.FacePoint(234)
	if !ok {
		return v, false
	}
	faceWidth := Distance(f454, f234)
	if faceWidth <= 1e-6 {
		return v, false
	}

	// Hand span falls back to face width when the wrist/middle-base pair
	// is unobserved or degenerate.
	handSpan := faceWidth
	if h0, ok0 := cur.HandPoint(0); ok0 {
		if h9, ok9 := cur.HandPoint(9); ok9 {
			handSpan = Distance(h0, h9)
			if handSpan <= 1e-6 {
				handSpan = faceWidth
			}
		}
	}

	// Hand position: 15 hand-to-face distances plus 3 atan2 angles toward
	// face point 200, interleaved in cross-product order.
	pos := 0
	for _, hi := range handPosIndices {
		h, ok := cur.HandPoint(hi)
		if !ok {
			return v, false
		}
		for _, fi := range facePosIndices {
			f, ok := cur.FacePoint(fi)
			if !ok {
				return v, false
			}
			v.HandPosition[pos] = Distance(h, f) / faceWidth
			pos++
			if fi == 200 {
				dx := (f.X - h.X) / faceWidth
				dy := (f.Y - h.Y) / faceWidth
				v.HandPosition[pos] = atan2f(dy, dx)
				pos++
			}
		}
	}
	if pos != HandPositionDim {
		return v, false
	}

	// Hand shape: fingertip-to-wrist distances normalized by hand span.
	for i, pair := range handShapePairs {
		a, ok := cur.HandPoint(pair[0])
		if !ok {
			return v, false
		}
		b, ok := cur.HandPoint(pair[1])
		if !ok {
			return v, false
		}
		v.HandShape[i] = Distance(a, b) / handSpan
	}

	// Lips: corner distance, vertical opening, outer-contour area and
	// curvature, then the motion components.
	l61, ok := cur.FacePoint(61)
	if !ok {
		return v, false
	}
	l291, ok := cur.FacePoint(291)
	if !ok {
		return v, false
	}
	v.Lips[0] = Distance(l61, l291) / faceWidth

	l0, ok := cur.FacePoint(0)
	if !ok {
		return v, false
	}
	l17, ok := cur.FacePoint(17)
	if !ok {
		return v, false
	}
	v.Lips[1] = Distance(l0, l17) / faceWidth

	var xs, ys [len(lipOuter)]float32
	var contour [len(lipOuter)][2]float32
	for i, idx := range lipOuter {
		p, ok := cur.FacePoint(idx)
		if !ok {
			return v, false
		}
		xs[i] = p.X
		ys[i] = p.Y
		contour[i] = [2]float32{p.X, p.Y}
	}
	v.Lips[2] = PolygonArea(xs[:], ys[:]) / (faceWidth * faceWidth)
	v.Lips[3] = MeanContourCurvature(contour[:])

	// Motion requires both history frames.
	if prev == nil || prev2 == nil {
		return v, false
	}
	p0, ok := prev.FacePoint(0)
	if !ok {
		return v, false
	}
	p20, ok := prev2.FacePoint(0)
	if !ok {
		return v, false
	}

	velX := (l0.X - p0.X) / faceWidth
	velY := (l0.Y - p0.Y) / faceWidth
	v.Lips[4] = velX
	v.Lips[5] = velY

	prevVelX := (p0.X - p20.X) / faceWidth
	prevVelY := (p0.Y - p20.Y) / faceWidth
	v.Lips[6] = velX - prevVelX
	v.Lips[7] = velY - prevVelY

	h8, ok := cur.HandPoint(8)
	if !ok {
		return v, false
	}
	ph8, ok := prev.HandPoint(8)
	if !ok {
		return v, false
	}
	v.HandShape[5] = (h8.X - ph8.X) / handSpan
	v.HandShape[6] = (h8.Y - ph8.Y) / handSpan

	return v, true
}
