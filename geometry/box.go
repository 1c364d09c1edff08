package geometry

import (
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

//Box is an axis aligned box container.
type Box struct {
	bounds BoundingBox
}

//NewBox builds a box of the given width/height/depth centered on origin.
func NewBox(origin mgl32.Vec3, width, height, depth float32) *Box {
	half := mgl32.Vec3{width / 2, height / 2, depth / 2}
	return &Box{bounds: BoundingBox{Min: origin.Sub(half), Max: origin.Add(half)}}
}

func (b *Box) Bounds() BoundingBox {
	return b.bounds
}

func (b *Box) RandomInteriorPoint(rng *rand.Rand) mgl32.Vec3 {
	size := b.bounds.Size()
	return mgl32.Vec3{
		b.bounds.Min[0] + rng.Float32()*size[0],
		b.bounds.Min[1] + rng.Float32()*size[1],
		b.bounds.Min[2] + rng.Float32()*size[2],
	}
}

//Intersect runs the slab test against the box faces and reports the first hit
//with positive distance. Rays cast from inside hit the exit face; the normal is
//always the outward face normal.
func (b *Box) Intersect(ray Ray) (Hit, bool) {
	tNear := float32(-math.MaxFloat32)
	tFar := float32(math.MaxFloat32)
	nearAxis, farAxis := -1, -1
	var nearSign, farSign float32

	for a := 0; a < 3; a++ {
		o, d := ray.Origin[a], ray.Direction[a]
		if mgl32.Abs(d) < EPSILON {
			//Parallel to the slab: miss unless the origin lies between the faces
			if o < b.bounds.Min[a] || o > b.bounds.Max[a] {
				return Hit{}, false
			}
			continue
		}
		t1 := (b.bounds.Min[a] - o) / d
		t2 := (b.bounds.Max[a] - o) / d
		sign := float32(-1)
		if t1 > t2 {
			t1, t2 = t2, t1
			sign = 1
		}
		if t1 > tNear {
			tNear, nearAxis, nearSign = t1, a, sign
		}
		if t2 < tFar {
			tFar, farAxis, farSign = t2, a, -sign
		}
		if tNear > tFar {
			return Hit{}, false
		}
	}

	t := tNear
	axis, sign := nearAxis, nearSign
	if t < 0 {
		//Origin inside the box: the first boundary crossing is the exit face
		t = tFar
		axis, sign = farAxis, farSign
	}
	if t < 0 || axis < 0 {
		return Hit{}, false
	}

	var normal mgl32.Vec3
	normal[axis] = sign
	return Hit{Distance: t, Position: ray.At(t), Normal: normal}, true
}
