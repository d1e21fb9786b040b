package region

import (
	"math"

	"github.com/golang/geo/r3"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// CubeFaces returns six safe regions, one per face of an axis-aligned cube of
// the given half extent, each a square patch of the given half width centered
// on its face.
func CubeFaces(half, patchHalf float64) ([]Region, error) {
	if half <= 0 || patchHalf <= 0 || patchHalf > half {
		return nil, errors.Errorf("invalid cube dimensions: half extent %f, patch half width %f", half, patchHalf)
	}
	normals := []r3.Vector{
		{X: 1}, {X: -1}, {Y: 1}, {Y: -1}, {Z: 1}, {Z: -1},
	}
	regions := make([]Region, 0, len(normals))
	for _, n := range normals {
		a, b := squarePatch(patchHalf)
		regions = append(regions, Region{A: a, B: b, Point: n.Mul(half), Normal: n})
	}
	return regions, nil
}

// BallPatches returns n tangent square patches distributed over a sphere of
// the given radius by a Fibonacci spiral. Each patch is a planar approximation
// of the sphere surface around its anchor point.
func BallPatches(radius, patchHalf float64, n int) ([]Region, error) {
	if radius <= 0 || patchHalf <= 0 || n < 1 {
		return nil, errors.Errorf("invalid ball dimensions: radius %f, patch half width %f, count %d", radius, patchHalf, n)
	}
	golden := math.Pi * (3 - math.Sqrt(5))
	regions := make([]Region, 0, n)
	for i := 0; i < n; i++ {
		z := 1 - 2*(float64(i)+0.5)/float64(n)
		r := math.Sqrt(1 - z*z)
		theta := golden * float64(i)
		normal := r3.Vector{X: r * math.Cos(theta), Y: r * math.Sin(theta), Z: z}
		a, b := squarePatch(patchHalf)
		regions = append(regions, Region{A: a, B: b, Point: normal.Mul(radius), Normal: normal})
	}
	return regions, nil
}

// PyramidFaces returns five safe regions for a square pyramid with the given
// base half extent and apex height: four slanted faces plus the base, each a
// square patch of the given half width at the face centroid. The base is
// centered at the origin with the apex on +Z.
func PyramidFaces(baseHalf, height, patchHalf float64) ([]Region, error) {
	if baseHalf <= 0 || height <= 0 || patchHalf <= 0 {
		return nil, errors.Errorf("invalid pyramid dimensions: base half extent %f, height %f, patch half width %f", baseHalf, height, patchHalf)
	}
	apex := r3.Vector{Z: height}
	base := []r3.Vector{
		{X: baseHalf, Y: baseHalf},
		{X: -baseHalf, Y: baseHalf},
		{X: -baseHalf, Y: -baseHalf},
		{X: baseHalf, Y: -baseHalf},
	}
	regions := make([]Region, 0, 5)
	for i := range base {
		v1, v2 := base[i], base[(i+1)%len(base)]
		centroid := v1.Add(v2).Add(apex).Mul(1. / 3)
		normal := v2.Sub(v1).Cross(apex.Sub(v1)).Normalize()
		// outward is away from the pyramid axis
		if normal.Dot(centroid.Sub(r3.Vector{Z: height / 2})) < 0 {
			normal = normal.Mul(-1)
		}
		a, b := squarePatch(patchHalf)
		regions = append(regions, Region{A: a, B: b, Point: centroid, Normal: normal})
	}
	a, b := squarePatch(patchHalf)
	regions = append(regions, Region{A: a, B: b, Point: r3.Vector{}, Normal: r3.Vector{Z: -1}})
	return regions, nil
}

// Polygon builds a region from an explicit footprint system, anchor, and
// normal, validating the result.
func Polygon(a *mat.Dense, b []float64, point, normal r3.Vector) (Region, error) {
	r := Region{A: a, B: b, Point: point, Normal: normal}
	if err := r.Validate(); err != nil {
		return Region{}, err
	}
	return r, nil
}
