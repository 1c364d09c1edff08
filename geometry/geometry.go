package geometry

import (
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

//Boundary geometry for the particle solver. Containers act as boundary oracles:
//the solver only asks for a bounding box, uniform interior samples, and first-hit
//ray intersections. The boundary representation itself stays behind the interface.

const EPSILON = 1e-5

//Ray with normalized direction. Callers normalize; Intersect assumes unit length.
type Ray struct {
	Origin    mgl32.Vec3
	Direction mgl32.Vec3
}

//At returns the point at parameter t along the ray.
func (r Ray) At(t float32) mgl32.Vec3 {
	return r.Origin.Add(r.Direction.Mul(t))
}

//Hit is the first boundary intersection along a ray. Normal is the unit outward
//surface normal, pointing away from the container interior.
type Hit struct {
	Distance float32
	Position mgl32.Vec3
	Normal   mgl32.Vec3
}

//Container is the boundary oracle consumed by the solver.
type Container interface {
	Bounds() BoundingBox
	RandomInteriorPoint(rng *rand.Rand) mgl32.Vec3
	Intersect(ray Ray) (Hit, bool)
}

//Axis aligned bounding box.
type BoundingBox struct {
	Min mgl32.Vec3
	Max mgl32.Vec3
}

func (b BoundingBox) Center() mgl32.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

func (b BoundingBox) Size() mgl32.Vec3 {
	return b.Max.Sub(b.Min)
}

func (b BoundingBox) Contains(p mgl32.Vec3) bool {
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

//Inflated scales the box extents about its center. The solver indexes an inflated
//copy of the container bounds so particles pushed past a face still land in a cell.
func (b BoundingBox) Inflated(factor float32) BoundingBox {
	center := b.Center()
	half := b.Size().Mul(0.5 * factor)
	return BoundingBox{Min: center.Sub(half), Max: center.Add(half)}
}
