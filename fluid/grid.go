package fluid

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/bhamel27/AnimationFluide/geometry"
)

//SpatialIndex buckets particle slots by position so the field sweeps only
//visit nearby cells. The solver owns the re-filing: it keeps every particle's
//recorded cell equal to CellIndex(position) by calling RemoveParticle and
//AddParticle around each position update. Implementations are read-only during
//the density and force sweeps.
type SpatialIndex interface {
	//CellIndex maps a position to its cell. Positions outside the indexed
	//bounds clamp to the boundary cells.
	CellIndex(p mgl32.Vec3) int
	//Neighborhood lists the cell and every cell within one smoothing radius.
	Neighborhood(cell int) []int
	//CellParticles lists the particle slots currently filed in a cell.
	CellParticles(cell int) []int
	AddParticle(cell, slot int)
	RemoveParticle(cell, slot int)
}

//UniformGrid divides a bounding box into nx*ny*nz cells. Neighborhoods are
//precomputed per cell at construction, wide enough to cover the smoothing
//radius, so the slices handed to concurrent sweeps are immutable.
type UniformGrid struct {
	min      mgl32.Vec3
	cellSize mgl32.Vec3
	nx       int
	ny       int
	nz       int
	cells    [][]int
	hood     [][]int
}

//NewUniformGrid indexes the given bounds. The radius widens each cell's
//neighborhood to ceil(radius/cellSize) cells per axis so a neighbor sweep from
//any position in a cell reaches every particle within the smoothing radius.
func NewUniformGrid(bounds geometry.BoundingBox, nx, ny, nz int, radius float32) *UniformGrid {
	size := bounds.Size()
	g := &UniformGrid{
		min:      bounds.Min,
		cellSize: mgl32.Vec3{size[0] / float32(nx), size[1] / float32(ny), size[2] / float32(nz)},
		nx:       nx,
		ny:       ny,
		nz:       nz,
		cells:    make([][]int, nx*ny*nz),
		hood:     make([][]int, nx*ny*nz),
	}

	var span [3]int
	for a := 0; a < 3; a++ {
		span[a] = 1
		if g.cellSize[a] > 0 {
			if s := int(math.Ceil(float64(radius / g.cellSize[a]))); s > 1 {
				span[a] = s
			}
		}
	}
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				cell := g.cellAt(x, y, z)
				hood := make([]int, 0, (2*span[0]+1)*(2*span[1]+1)*(2*span[2]+1))
				for dz := -span[2]; dz <= span[2]; dz++ {
					for dy := -span[1]; dy <= span[1]; dy++ {
						for dx := -span[0]; dx <= span[0]; dx++ {
							cx, cy, cz := x+dx, y+dy, z+dz
							if cx < 0 || cx >= nx || cy < 0 || cy >= ny || cz < 0 || cz >= nz {
								continue
							}
							hood = append(hood, g.cellAt(cx, cy, cz))
						}
					}
				}
				g.hood[cell] = hood
			}
		}
	}
	return g
}

func (g *UniformGrid) cellAt(x, y, z int) int {
	return x + g.nx*(y+g.ny*z)
}

func clampCell(v, min, size float32, n int) int {
	if size <= 0 {
		return 0
	}
	i := int((v - min) / size)
	if i < 0 {
		return 0
	}
	if i >= n {
		return n - 1
	}
	return i
}

func (g *UniformGrid) CellIndex(p mgl32.Vec3) int {
	x := clampCell(p[0], g.min[0], g.cellSize[0], g.nx)
	y := clampCell(p[1], g.min[1], g.cellSize[1], g.ny)
	z := clampCell(p[2], g.min[2], g.cellSize[2], g.nz)
	return g.cellAt(x, y, z)
}

func (g *UniformGrid) Neighborhood(cell int) []int {
	return g.hood[cell]
}

func (g *UniformGrid) CellParticles(cell int) []int {
	return g.cells[cell]
}

func (g *UniformGrid) AddParticle(cell, slot int) {
	g.cells[cell] = append(g.cells[cell], slot)
}

//RemoveParticle swaps the slot with the bucket tail. Bucket order is not part
//of the contract.
func (g *UniformGrid) RemoveParticle(cell, slot int) {
	bucket := g.cells[cell]
	for i, s := range bucket {
		if s == slot {
			last := len(bucket) - 1
			bucket[i] = bucket[last]
			g.cells[cell] = bucket[:last]
			return
		}
	}
}

//CellCount reports the total number of cells.
func (g *UniformGrid) CellCount() int {
	return len(g.cells)
}
