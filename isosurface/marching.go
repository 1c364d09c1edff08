package isosurface

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/bhamel27/AnimationFluide/geometry"
)

//Marching tetrahedra over an implicit field. The lattice covers a bounding box
//with nx*ny*nz cube cells; each cube splits into the six tetrahedra of the
//Kuhn subdivision around its main diagonal, and every tetrahedron crossed by
//the zero level set emits one or two triangles with linearly interpolated
//positions and normals.

//Field is the scalar field sampled at lattice vertices. Implementations
//return the field value and the outward surface normal at a point; the fluid
//solver's SurfaceInfo satisfies this.
type Field interface {
	SurfaceInfo(point mgl32.Vec3) (float32, mgl32.Vec3)
}

//Mesh is a triangle soup: every three consecutive entries form one triangle.
//The slices are reused by the lattice and stay valid until the next
//Polygonize call.
type Mesh struct {
	Positions []mgl32.Vec3
	Normals   []mgl32.Vec3
}

//Lattice samples a field over a box and extracts the zero level set.
type Lattice struct {
	min   mgl32.Vec3
	delta mgl32.Vec3
	nx    int
	ny    int
	nz    int

	values  []float32
	normals []mgl32.Vec3
	mesh    Mesh
	workers int
}

//Cube corners are numbered with bit 0 along x, bit 1 along y, bit 2 along z.
//The six tetrahedra share the 0-7 diagonal; each is one monotone corner path.
var tetrahedra = [6][4]int{
	{0, 1, 3, 7},
	{0, 1, 5, 7},
	{0, 2, 3, 7},
	{0, 2, 6, 7},
	{0, 4, 5, 7},
	{0, 4, 6, 7},
}

//NewLattice builds a sampling lattice with the given cell resolution per
//axis over the bounds.
func NewLattice(bounds geometry.BoundingBox, nx, ny, nz int) (*Lattice, error) {
	if nx < 1 || ny < 1 || nz < 1 {
		return nil, fmt.Errorf("isosurface: lattice resolution must be at least 1 per axis, got %dx%dx%d", nx, ny, nz)
	}
	size := bounds.Size()
	l := &Lattice{
		min:     bounds.Min,
		delta:   mgl32.Vec3{size[0] / float32(nx), size[1] / float32(ny), size[2] / float32(nz)},
		nx:      nx,
		ny:      ny,
		nz:      nz,
		workers: runtime.NumCPU(),
	}
	vertices := (nx + 1) * (ny + 1) * (nz + 1)
	l.values = make([]float32, vertices)
	l.normals = make([]mgl32.Vec3, vertices)
	return l, nil
}

func (l *Lattice) vertexAt(x, y, z int) int {
	return x + (l.nx+1)*(y+(l.ny+1)*z)
}

func (l *Lattice) vertexPosition(i int) mgl32.Vec3 {
	x := i % (l.nx + 1)
	rest := i / (l.nx + 1)
	y := rest % (l.ny + 1)
	z := rest / (l.ny + 1)
	return mgl32.Vec3{
		l.min[0] + l.delta[0]*float32(x),
		l.min[1] + l.delta[1]*float32(y),
		l.min[2] + l.delta[2]*float32(z),
	}
}

//Polygonize samples the field at every lattice vertex, then walks the cube
//cells and emits the triangles crossing the zero level set. Sampling fans out
//over workers; the field must tolerate concurrent queries. The returned mesh
//is valid until the next call.
func (l *Lattice) Polygonize(f Field) Mesh {
	l.sample(f)

	l.mesh.Positions = l.mesh.Positions[:0]
	l.mesh.Normals = l.mesh.Normals[:0]

	var corners [8]int
	for z := 0; z < l.nz; z++ {
		for y := 0; y < l.ny; y++ {
			for x := 0; x < l.nx; x++ {
				for c := 0; c < 8; c++ {
					corners[c] = l.vertexAt(x+(c&1), y+(c>>1&1), z+(c>>2&1))
				}
				for _, tet := range tetrahedra {
					l.polygonizeTetrahedron(corners, tet)
				}
			}
		}
	}
	return l.mesh
}

func (l *Lattice) sample(f Field) {
	n := len(l.values)
	chunk := (n + l.workers - 1) / l.workers
	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += chunk {
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			for i := lo; i < hi; i++ {
				l.values[i], l.normals[i] = f.SurfaceInfo(l.vertexPosition(i))
			}
		}(lo, hi)
	}
	wg.Wait()
}

//polygonizeTetrahedron classifies the four corners against the zero level and
//emits the crossing triangles: one for a lone corner on either side, two for
//the quad case.
func (l *Lattice) polygonizeTetrahedron(corners [8]int, tet [4]int) {
	var inside, outside [4]int
	ni, no := 0, 0
	for _, c := range tet {
		v := corners[c]
		if l.values[v] > 0 {
			inside[ni] = v
			ni++
		} else {
			outside[no] = v
			no++
		}
	}

	switch ni {
	case 1:
		l.emit(
			l.crossing(inside[0], outside[0]),
			l.crossing(inside[0], outside[1]),
			l.crossing(inside[0], outside[2]),
		)
	case 3:
		l.emit(
			l.crossing(inside[0], outside[0]),
			l.crossing(inside[1], outside[0]),
			l.crossing(inside[2], outside[0]),
		)
	case 2:
		//Four crossed edges form a quad; the ring order shares one endpoint
		//between consecutive edges, so the two triangles tile it
		a := l.crossing(inside[0], outside[0])
		b := l.crossing(inside[0], outside[1])
		c := l.crossing(inside[1], outside[1])
		d := l.crossing(inside[1], outside[0])
		l.emit(a, b, c)
		l.emit(a, c, d)
	}
}

type meshVertex struct {
	position mgl32.Vec3
	normal   mgl32.Vec3
}

//crossing interpolates the zero point of the field along the lattice edge
//from an inside vertex to an outside vertex.
func (l *Lattice) crossing(in, out int) meshVertex {
	vi, vo := l.values[in], l.values[out]
	t := vi / (vi - vo)
	pi, po := l.vertexPosition(in), l.vertexPosition(out)
	normal := l.normals[in].Add(l.normals[out].Sub(l.normals[in]).Mul(t))
	if length := normal.Len(); length > 0 {
		normal = normal.Mul(1 / length)
	}
	return meshVertex{
		position: pi.Add(po.Sub(pi).Mul(t)),
		normal:   normal,
	}
}

func (l *Lattice) emit(a, b, c meshVertex) {
	l.mesh.Positions = append(l.mesh.Positions, a.position, b.position, c.position)
	l.mesh.Normals = append(l.mesh.Normals, a.normal, b.normal, c.normal)
}
