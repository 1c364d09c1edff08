package app

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/mazznoer/colorgrad"

	"github.com/bhamel27/AnimationFluide/fluid"
	"github.com/bhamel27/AnimationFluide/geometry"
	"github.com/bhamel27/AnimationFluide/isosurface"
)

//speedScale maps particle speed onto the color ramp; speeds at or above this
//many meters per second saturate it.
const speedScale = 4.0

//paletteSteps is the number of colors sampled from the gradient up front.
const paletteSteps = 64

//Scene owns the solver, the marching lattice and the vertex streams the
//renderer uploads each frame. It carries no GL state, so it can run headless.
type Scene struct {
	solver  *fluid.Solver
	lattice *isosurface.Lattice
	tank    *geometry.Box

	paused bool

	palette      []mgl32.Vec3
	particleData []float32 //interleaved position and color
	surfaceData  []float32 //interleaved position and normal
	tankData     []float32 //interleaved position and color line endpoints
}

//NewScene builds the tank, the solver and the marching lattice from a
//configuration. The lattice covers the solver's inflated bounds so the
//surface is not clipped against the walls.
func NewScene(cfg Config) (*Scene, error) {
	tank := cfg.Fluid.Tank()
	solver, err := fluid.NewSolver(tank, cfg.Fluid.SolverConfig(cfg.Grid))
	if err != nil {
		return nil, err
	}
	lattice, err := isosurface.NewLattice(solver.Bounds(),
		cfg.Surface.CellsX, cfg.Surface.CellsY, cfg.Surface.CellsZ)
	if err != nil {
		return nil, err
	}

	s := &Scene{
		solver:  solver,
		lattice: lattice,
		tank:    tank,
		palette: buildPalette(paletteSteps),
	}
	s.tankData = boxEdges(tank.Bounds())
	return s, nil
}

//Advance runs one simulation step unless the scene is paused.
func (s *Scene) Advance(dt float32) {
	if s.paused {
		return
	}
	s.solver.Step(dt)
}

func (s *Scene) TogglePause() { s.paused = !s.paused }

func (s *Scene) Paused() bool { return s.paused }

func (s *Scene) ToggleRenderMode() { s.solver.ToggleRenderMode() }

func (s *Scene) ToggleMaterial() { s.solver.ToggleMaterial() }

func (s *Scene) ResetVelocities() { s.solver.ResetVelocities() }

func (s *Scene) RenderMode() fluid.RenderMode { return s.solver.RenderMode() }

func (s *Scene) Material() fluid.Material { return s.solver.Material() }

func (s *Scene) Transform() mgl32.Mat4 { return s.solver.Transform() }

func (s *Scene) ParticleCount() int { return len(s.solver.Particles()) }

func (s *Scene) Bounds() geometry.BoundingBox { return s.solver.Bounds() }

//ParticleVertices returns the point cloud as interleaved position and color
//vertices, colored by speed. The slice is reused between calls.
func (s *Scene) ParticleVertices() []float32 {
	particles := s.solver.Particles()
	s.particleData = s.particleData[:0]
	for i := range particles {
		p := &particles[i]
		c := s.speedColor(p.Velocity.Len())
		s.particleData = append(s.particleData,
			p.Position[0], p.Position[1], p.Position[2], c[0], c[1], c[2])
	}
	return s.particleData
}

//SurfaceVertices polygonizes the solver's surface field and returns the mesh
//as interleaved position and normal vertices. The slice is reused between
//calls.
func (s *Scene) SurfaceVertices() []float32 {
	mesh := s.lattice.Polygonize(s.solver)
	s.surfaceData = s.surfaceData[:0]
	for i := range mesh.Positions {
		p, n := mesh.Positions[i], mesh.Normals[i]
		s.surfaceData = append(s.surfaceData, p[0], p[1], p[2], n[0], n[1], n[2])
	}
	return s.surfaceData
}

//TankVertices returns the twelve tank edges as line endpoints. The data is
//static for the life of the scene.
func (s *Scene) TankVertices() []float32 {
	return s.tankData
}

func (s *Scene) speedColor(speed float32) mgl32.Vec3 {
	t := float64(speed) / speedScale
	if t > 1 {
		t = 1
	}
	return s.palette[int(t*float64(len(s.palette)-1))]
}

func buildPalette(n int) []mgl32.Vec3 {
	grad := colorgrad.Viridis()
	lut := make([]mgl32.Vec3, n)
	for i := range lut {
		c := grad.At(float64(i) / float64(n-1))
		lut[i] = mgl32.Vec3{float32(c.R), float32(c.G), float32(c.B)}
	}
	return lut
}

//boxEdges expands a bounding box into the twelve wireframe edges, each
//endpoint carrying the tank color.
func boxEdges(b geometry.BoundingBox) []float32 {
	var corners [8]mgl32.Vec3
	for i := range corners {
		c := b.Min
		if i&1 != 0 {
			c[0] = b.Max[0]
		}
		if i&2 != 0 {
			c[1] = b.Max[1]
		}
		if i&4 != 0 {
			c[2] = b.Max[2]
		}
		corners[i] = c
	}

	edges := [12][2]int{
		{0, 1}, {2, 3}, {4, 5}, {6, 7},
		{0, 2}, {1, 3}, {4, 6}, {5, 7},
		{0, 4}, {1, 5}, {2, 6}, {3, 7},
	}
	const shade = 0.45
	data := make([]float32, 0, len(edges)*2*6)
	for _, e := range edges {
		for _, ci := range e {
			p := corners[ci]
			data = append(data, p[0], p[1], p[2], shade, shade, shade)
		}
	}
	return data
}
