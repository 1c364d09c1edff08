package geometry

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

//Sphere container centered on an origin point.
type Sphere struct {
	origin mgl32.Vec3
	radius float32
}

func NewSphere(origin mgl32.Vec3, radius float32) *Sphere {
	return &Sphere{origin: origin, radius: radius}
}

func (s *Sphere) Bounds() BoundingBox {
	half := mgl32.Vec3{s.radius, s.radius, s.radius}
	return BoundingBox{Min: s.origin.Sub(half), Max: s.origin.Add(half)}
}

//RandomInteriorPoint rejection samples the bounding cube until a point lands
//inside the shell.
func (s *Sphere) RandomInteriorPoint(rng *rand.Rand) mgl32.Vec3 {
	for {
		p := mgl32.Vec3{
			(rng.Float32()*2 - 1) * s.radius,
			(rng.Float32()*2 - 1) * s.radius,
			(rng.Float32()*2 - 1) * s.radius,
		}
		if p.Dot(p) < s.radius*s.radius {
			return s.origin.Add(p)
		}
	}
}

//Intersect solves the ray/sphere quadratic and reports the first positive root.
//The normal is the outward shell normal at the hit point.
func (s *Sphere) Intersect(ray Ray) (Hit, bool) {
	oc := ray.Origin.Sub(s.origin)
	b := oc.Dot(ray.Direction)
	c := oc.Dot(oc) - s.radius*s.radius
	disc := b*b - c
	if disc < 0 {
		return Hit{}, false
	}
	sq := float32(math.Sqrt(float64(disc)))
	t := -b - sq
	if t < 0 {
		t = -b + sq
	}
	if t < 0 {
		return Hit{}, false
	}
	pos := ray.At(t)
	return Hit{Distance: t, Position: pos, Normal: pos.Sub(s.origin).Mul(1 / s.radius)}, true
}
