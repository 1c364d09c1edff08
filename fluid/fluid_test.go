package fluid

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhamel27/AnimationFluide/geometry"
)

func testConfig(particles int) Config {
	return Config{
		SmoothingRadius: 0.2,
		Viscosity:       0.3,
		Pressure:        10,
		SurfaceTension:  1,
		RestDensity:     1000,
		TotalVolume:     1,
		Particles:       particles,
		GridCells:       [3]int{6, 6, 6},
		MaxDeltaTime:    1,
		Gravity:         mgl32.Vec3{0, -9.8, 0},
		Workers:         4,
		Seed:            42,
	}
}

//place moves a particle and re-files it, keeping the cell invariant intact.
func place(s *Solver, i int, pos mgl32.Vec3) {
	p := &s.particles[i]
	p.Position = pos
	cell := s.index.CellIndex(pos)
	if cell != p.Cell {
		s.index.RemoveParticle(p.Cell, i)
		s.index.AddParticle(cell, i)
		p.Cell = cell
	}
}

func TestNewSolverRejectsBadConfig(t *testing.T) {
	box := geometry.NewBox(mgl32.Vec3{}, 1, 1, 1)
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero smoothing radius", func(c *Config) { c.SmoothingRadius = 0 }},
		{"negative smoothing radius", func(c *Config) { c.SmoothingRadius = -0.1 }},
		{"zero particles", func(c *Config) { c.Particles = 0 }},
		{"zero rest density", func(c *Config) { c.RestDensity = 0 }},
		{"zero total volume", func(c *Config) { c.TotalVolume = 0 }},
		{"zero max timestep", func(c *Config) { c.MaxDeltaTime = 0 }},
		{"zero grid axis", func(c *Config) { c.GridCells[1] = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := testConfig(8)
			tc.mutate(&cfg)
			_, err := NewSolver(box, cfg)
			assert.Error(t, err)
		})
	}

	_, err := NewSolver(box, Config{SmoothingRadius: -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "smoothing radius")
}

func TestNewSolverInitializesParticles(t *testing.T) {
	box := geometry.NewBox(mgl32.Vec3{}, 1, 1, 1)
	cfg := testConfig(64)
	s, err := NewSolver(box, cfg)
	require.NoError(t, err)

	require.Len(t, s.Particles(), 64)
	wantMass := cfg.TotalVolume * cfg.RestDensity / 64
	for i := range s.particles {
		p := &s.particles[i]
		assert.Equal(t, wantMass, p.Mass, "uniform mass from total volume")
		assert.Equal(t, cfg.RestDensity, p.Density, "density starts at rest")
		assert.Equal(t, wantMass/cfg.RestDensity, p.Volume, "volume is mass over density")
		assert.Equal(t, mgl32.Vec3{}, p.Velocity, "particles start at rest")
		if !box.Bounds().Contains(p.Position) {
			t.Errorf("particle %d placed outside the container at %v", i, p.Position)
		}
		assert.Equal(t, s.index.CellIndex(p.Position), p.Cell, "cell invariant at init")
	}
}

func TestDensityPassPositiveDensityAndDerivedFields(t *testing.T) {
	box := geometry.NewBox(mgl32.Vec3{}, 1, 1, 1)
	s, err := NewSolver(box, testConfig(64))
	require.NoError(t, err)

	s.computeDensities()
	for i := range s.particles {
		p := &s.particles[i]
		if p.Density <= 0 {
			t.Fatalf("particle %d density %g not positive after the pass", i, p.Density)
		}
		assert.Equal(t, p.Mass/p.Density, p.Volume, "volume tracks the corrected density")
		assert.Equal(t, s.equationOfState(p.Density), p.Pressure, "pressure from the corrected density")
	}
}

func TestEquationOfStateSign(t *testing.T) {
	box := geometry.NewBox(mgl32.Vec3{}, 1, 1, 1)
	s, err := NewSolver(box, testConfig(8))
	require.NoError(t, err)

	assert.Zero(t, s.equationOfState(1000), "rest density is pressure free")
	assert.Negative(t, s.equationOfState(900))
	assert.Positive(t, s.equationOfState(1100))
}

func TestIsolatedParticleAccelerationEqualsGravity(t *testing.T) {
	//No neighbor within 2h, so every SPH term cancels and only gravity remains
	box := geometry.NewBox(mgl32.Vec3{}, 10, 10, 10)
	cfg := testConfig(1)
	s, err := NewSolver(box, cfg)
	require.NoError(t, err)
	place(s, 0, mgl32.Vec3{0, 0, 0})

	s.computeDensities()
	s.computeForces()
	assert.Equal(t, cfg.Gravity, s.particles[0].Acceleration)
}

func TestGravityFollowsSolverTransform(t *testing.T) {
	box := geometry.NewBox(mgl32.Vec3{}, 10, 10, 10)
	s, err := NewSolver(box, testConfig(1))
	require.NoError(t, err)
	place(s, 0, mgl32.Vec3{0, 0, 0})

	//Rotate the solver frame a quarter turn about z: parent-frame gravity
	//(0,-9.8,0) maps to (-9.8,0,0) in the local frame
	s.SetTransform(mgl32.HomogRotate3DZ(math.Pi / 2))
	s.computeDensities()
	s.computeForces()

	a := s.particles[0].Acceleration
	assert.InDelta(t, -9.8, float64(a[0]), 1e-5)
	assert.InDelta(t, 0, float64(a[1]), 1e-5)
	assert.InDelta(t, 0, float64(a[2]), 1e-5)
}

func TestRestingCubeStaysAtRest(t *testing.T) {
	box := geometry.NewBox(mgl32.Vec3{}, 1, 1, 1)
	cfg := testConfig(8)
	cfg.Gravity = mgl32.Vec3{}
	cfg.Viscosity = 0
	cfg.Pressure = 0
	cfg.SurfaceTension = 0
	s, err := NewSolver(box, cfg)
	require.NoError(t, err)

	before := make([]mgl32.Vec3, len(s.particles))
	for i := range s.particles {
		before[i] = s.particles[i].Position
	}

	s.Step(1e-9)
	s.Step(0.01)

	for i := range s.particles {
		assert.Equal(t, before[i], s.particles[i].Position, "position drifted with no forces")
		assert.Equal(t, mgl32.Vec3{}, s.particles[i].Velocity, "velocity appeared with no forces")
	}
}

func TestSingleParticleGravityStep(t *testing.T) {
	box := geometry.NewBox(mgl32.Vec3{}, 10, 10, 10)
	cfg := testConfig(1)
	s, err := NewSolver(box, cfg)
	require.NoError(t, err)
	start := mgl32.Vec3{0, 2, 0}
	place(s, 0, start)

	dt := float32(0.01)
	s.Step(dt)

	p := s.particles[0]
	assert.InDelta(t, 0, float64(p.Velocity[0]), 1e-7)
	assert.InDelta(t, -0.098, float64(p.Velocity[1]), 1e-7)
	assert.InDelta(t, 0, float64(p.Velocity[2]), 1e-7)

	want := start.Add(p.Velocity.Mul(dt))
	for a := 0; a < 3; a++ {
		assert.InDelta(t, float64(want[a]), float64(p.Position[a]), 1e-6)
	}
}

func TestStepClampsTimestep(t *testing.T) {
	box := geometry.NewBox(mgl32.Vec3{}, 10, 10, 10)
	cfg := testConfig(1)
	cfg.MaxDeltaTime = 0.01
	s, err := NewSolver(box, cfg)
	require.NoError(t, err)
	place(s, 0, mgl32.Vec3{0, 2, 0})

	//An oversized frame time must behave exactly like the configured maximum
	s.Step(10)
	assert.InDelta(t, -0.098, float64(s.particles[0].Velocity[1]), 1e-7)
}

func TestCollisionKillsNormalVelocity(t *testing.T) {
	box := geometry.NewBox(mgl32.Vec3{}, 2, 2, 2)
	cfg := testConfig(1)
	cfg.Gravity = mgl32.Vec3{}
	s, err := NewSolver(box, cfg)
	require.NoError(t, err)

	place(s, 0, mgl32.Vec3{0, -0.9, 0})
	before := mgl32.Vec3{0.3, -5, 0}
	s.particles[0].Velocity = before

	s.Step(0.1)

	p := s.particles[0]
	assert.Zero(t, p.Velocity[1], "normal component fully absorbed")
	assert.InDelta(t, 0.3, float64(p.Velocity[0]), 1e-6, "tangential component survives the slide")
	if p.Velocity.Len() > before.Len() {
		t.Errorf("collision gained speed: |V'|=%g > |V|=%g", p.Velocity.Len(), before.Len())
	}
	assert.InDelta(t, -1+collisionBias, float64(p.Position[1]), 1e-5, "rests one bias off the floor")
}

func TestBiasOffsetPerpendicularImpact(t *testing.T) {
	box := geometry.NewBox(mgl32.Vec3{}, 2, 2, 2)
	cfg := testConfig(1)
	cfg.Gravity = mgl32.Vec3{}
	s, err := NewSolver(box, cfg)
	require.NoError(t, err)

	//Start exactly one bias above the floor, moving straight down
	place(s, 0, mgl32.Vec3{0, -1 + collisionBias, 0})
	s.particles[0].Velocity = mgl32.Vec3{0, -2, 0}

	s.Step(0.1)

	p := s.particles[0]
	assert.Equal(t, mgl32.Vec3{}, p.Velocity, "head-on impact leaves no velocity")
	assert.InDelta(t, -1+collisionBias, float64(p.Position[1]), 1e-5, "held one bias off the surface")
}

func TestReindexInvariantHoldsAcrossSteps(t *testing.T) {
	box := geometry.NewBox(mgl32.Vec3{}, 1, 1, 1)
	cfg := testConfig(200)
	cfg.MaxDeltaTime = 0.005
	s, err := NewSolver(box, cfg)
	require.NoError(t, err)

	for step := 0; step < 5; step++ {
		s.Step(0.005)
	}

	for i := range s.particles {
		p := &s.particles[i]
		assert.Equal(t, s.index.CellIndex(p.Position), p.Cell, "stored cell matches the indexed position")
	}

	//Every slot must be filed exactly once across all buckets
	grid := s.index.(*UniformGrid)
	seen := make(map[int]int)
	for cell := 0; cell < grid.CellCount(); cell++ {
		for _, slot := range grid.CellParticles(cell) {
			seen[slot]++
		}
	}
	require.Len(t, seen, len(s.particles))
	for slot, count := range seen {
		if count != 1 {
			t.Errorf("slot %d filed %d times", slot, count)
		}
	}
}

func TestResetVelocitiesOnlyClearsVelocities(t *testing.T) {
	box := geometry.NewBox(mgl32.Vec3{}, 1, 1, 1)
	s, err := NewSolver(box, testConfig(32))
	require.NoError(t, err)

	s.Step(0.01)
	before := make([]Particle, len(s.particles))
	copy(before, s.particles)

	s.ResetVelocities()
	for i := range s.particles {
		assert.Equal(t, mgl32.Vec3{}, s.particles[i].Velocity)
		assert.Equal(t, before[i].Position, s.particles[i].Position, "positions untouched")
		assert.Equal(t, before[i].Density, s.particles[i].Density, "densities untouched")
		assert.Equal(t, before[i].Pressure, s.particles[i].Pressure, "pressures untouched")
	}
}

func TestRenderModeAndMaterialToggles(t *testing.T) {
	box := geometry.NewBox(mgl32.Vec3{}, 1, 1, 1)
	s, err := NewSolver(box, testConfig(8))
	require.NoError(t, err)

	assert.Equal(t, RenderParticles, s.RenderMode())
	s.ToggleRenderMode()
	assert.Equal(t, RenderSurface, s.RenderMode())
	s.ToggleRenderMode()
	assert.Equal(t, RenderParticles, s.RenderMode())

	assert.Equal(t, MaterialOpaque, s.Material())
	s.ToggleMaterial()
	assert.Equal(t, MaterialWater, s.Material())
	assert.InDelta(t, 1.33, float64(s.Material().RefractiveIndex), 1e-6)
	s.ToggleMaterial()
	assert.Equal(t, MaterialOpaque, s.Material())
}
