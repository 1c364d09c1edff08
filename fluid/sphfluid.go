package fluid

import (
	"fmt"
	"math"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl32"

	"github.com/bhamel27/AnimationFluide/geometry"
)

//SPH fluid solver. A fixed set of particles carries mass, density, pressure
//and velocity; every step runs three ordered passes: a corrected density sweep, a
//force sweep, then sequential integration with inelastic container collisions.
//The density and force sweeps are data parallel; integration re-files moved
//particles in the spatial index and must run alone.

const (
	collisionBias   = 0.0005 //Pushback off a hit face before the next cast
	maxBounces      = 8      //Collision resolutions per particle per step
	boundsInflation = 1.2    //Index bounds scale about the container center
	defaultOffset   = 0.3    //Implicit surface bias
)

//Config fixes every solver parameter at construction.
type Config struct {
	SmoothingRadius float32    //Kernel support radius h
	Viscosity       float32    //Viscosity force coefficient
	Pressure        float32    //Pressure stiffness coefficient
	SurfaceTension  float32    //Surface tension coefficient
	RestDensity     float32    //Fluid density at rest
	TotalVolume     float32    //Total fluid volume, fixes the uniform particle mass
	Particles       int        //Particle count, immutable after construction
	GridCells       [3]int     //Spatial index resolution per axis
	MaxDeltaTime    float32    //Upper clamp applied to every step
	Gravity         mgl32.Vec3 //Gravity in the parent frame
	SurfaceOffset   float32    //Isosurface bias, defaults to 0.3
	Workers         int        //Sweep goroutines, defaults to runtime.NumCPU()
	Seed            int64      //Seeds particle placement, 0 draws from the clock
}

//Validate rejects parameters that would produce undefined kernel coefficients
//or divisions by zero inside the passes.
func (c Config) Validate() error {
	if c.SmoothingRadius <= 0 {
		return fmt.Errorf("smoothing radius must be positive, got %g", c.SmoothingRadius)
	}
	if c.Particles <= 0 {
		return fmt.Errorf("particle count must be positive, got %d", c.Particles)
	}
	if c.RestDensity <= 0 {
		return fmt.Errorf("rest density must be positive, got %g", c.RestDensity)
	}
	if c.TotalVolume <= 0 {
		return fmt.Errorf("total volume must be positive, got %g", c.TotalVolume)
	}
	if c.MaxDeltaTime <= 0 {
		return fmt.Errorf("maximum timestep must be positive, got %g", c.MaxDeltaTime)
	}
	for axis, n := range c.GridCells {
		if n < 1 {
			return fmt.Errorf("grid cell count on axis %d must be at least 1, got %d", axis, n)
		}
	}
	return nil
}

//Solver owns the particle set, the spatial index over the inflated container
//bounds, and the render state queried by the viewer.
type Solver struct {
	container geometry.Container
	index     SpatialIndex
	kernel    Kernel
	particles []Particle

	restDensity    float32
	viscosity      float32
	pressure       float32
	surfaceTension float32
	maxDeltaTime   float32
	surfaceOffset  float32
	gravity        mgl32.Vec3
	transform      mgl32.Mat4
	bounds         geometry.BoundingBox
	workers        int

	renderMode RenderMode
	material   Material

	//Staged density sweep results, committed only after every worker joins so
	//each task reads the previous step's densities
	densities []float32
	pressures []float32
}

//NewSolver validates the configuration, builds the spatial index over the
//container's inflated bounds, and places the particles. Every particle starts
//at a random interior point with uniform mass totalVolume*restDensity/count,
//rest density, and its cell registered in the index.
func NewSolver(container geometry.Container, cfg Config) (*Solver, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("fluid: %w", err)
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	offset := cfg.SurfaceOffset
	if offset == 0 {
		offset = defaultOffset
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &Solver{
		container:      container,
		kernel:         InitKernel(cfg.SmoothingRadius),
		restDensity:    cfg.RestDensity,
		viscosity:      cfg.Viscosity,
		pressure:       cfg.Pressure,
		surfaceTension: cfg.SurfaceTension,
		maxDeltaTime:   cfg.MaxDeltaTime,
		surfaceOffset:  offset,
		gravity:        cfg.Gravity,
		transform:      mgl32.Ident4(),
		workers:        workers,
		renderMode:     RenderParticles,
		material:       MaterialOpaque,
		particles:      make([]Particle, cfg.Particles),
		densities:      make([]float32, cfg.Particles),
		pressures:      make([]float32, cfg.Particles),
	}
	s.bounds = container.Bounds().Inflated(boundsInflation)
	s.index = NewUniformGrid(s.bounds, cfg.GridCells[0], cfg.GridCells[1], cfg.GridCells[2], cfg.SmoothingRadius)

	rng := rand.New(rand.NewSource(seed))
	mass := cfg.TotalVolume * cfg.RestDensity / float32(cfg.Particles)
	for i := range s.particles {
		p := &s.particles[i]
		p.Position = container.RandomInteriorPoint(rng)
		p.Mass = mass
		p.Density = cfg.RestDensity
		p.Volume = mass / cfg.RestDensity
		p.Cell = s.index.CellIndex(p.Position)
		s.index.AddParticle(p.Cell, i)
	}
	return s, nil
}

//Step advances the simulation by dt seconds, clamped to the configured
//maximum. The three passes are strictly ordered; a step returns only after
//integration has committed every position and cell.
func (s *Solver) Step(dt float32) {
	if dt > s.maxDeltaTime {
		dt = s.maxDeltaTime
	}
	s.computeDensities()
	s.computeForces()
	s.integrate(dt)
}

//Particles exposes the particle slice for rendering and inspection. The slice
//is owned by the solver; callers must not mutate it.
func (s *Solver) Particles() []Particle {
	return s.particles
}

//Bounds reports the inflated bounding box the spatial index covers.
func (s *Solver) Bounds() geometry.BoundingBox {
	return s.bounds
}

//Transform is the solver's local-to-parent placement. Gravity arrives in the
//parent frame and is mapped through the inverse once per force pass.
func (s *Solver) Transform() mgl32.Mat4 {
	return s.transform
}

func (s *Solver) SetTransform(m mgl32.Mat4) {
	s.transform = m
}

func (s *Solver) RenderMode() RenderMode {
	return s.renderMode
}

//ToggleRenderMode flips between the particle cloud and the implicit surface.
func (s *Solver) ToggleRenderMode() {
	if s.renderMode == RenderParticles {
		s.renderMode = RenderSurface
	} else {
		s.renderMode = RenderParticles
	}
}

func (s *Solver) Material() Material {
	return s.material
}

//ToggleMaterial flips between the opaque gray and refractive water presets.
func (s *Solver) ToggleMaterial() {
	if s.material.RefractiveIndex == 1 {
		s.material = MaterialWater
	} else {
		s.material = MaterialOpaque
	}
}

//ResetVelocities zeroes every particle velocity. Positions, densities and
//pressures stay untouched.
func (s *Solver) ResetVelocities() {
	for i := range s.particles {
		s.particles[i].Velocity = mgl32.Vec3{}
	}
}

//equationOfState maps density to a normalized linear pressure, zero at rest.
func (s *Solver) equationOfState(density float32) float32 {
	return density/s.restDensity - 1
}

//forEachParticle splits the particle range into one contiguous chunk per
//worker and joins before returning.
func (s *Solver) forEachParticle(fn func(lo, hi int)) {
	n := len(s.particles)
	chunk := (n + s.workers - 1) / s.workers
	var wg sync.WaitGroup
	for lo := 0; lo < n; lo += chunk {
		hi := lo + chunk
		if hi > n {
			hi = n
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			fn(lo, hi)
		}(lo, hi)
	}
	wg.Wait()
}

//computeDensities runs the corrected density sweep. The correction divides the
//raw kernel sum by a kernel weighted sum of inverse neighbor densities from
//the previous step, which de-biases the estimate near free surfaces. Tasks
//read the previous densities while writing new ones, so results land in the
//staging slices and commit after the join.
func (s *Solver) computeDensities() {
	s.forEachParticle(func(lo, hi int) {
		for i := lo; i < hi; i++ {
			p := &s.particles[i]
			var density, correction float32
			for _, cell := range s.index.Neighborhood(p.Cell) {
				for _, j := range s.index.CellParticles(cell) {
					n := &s.particles[j]
					diff := p.Position.Sub(n.Position)
					r2 := diff.Dot(diff)
					if r2 < s.kernel.H2 {
						w := s.kernel.Density(r2) * n.Mass
						density += w
						correction += w / n.Density
					}
				}
			}
			//The self term keeps correction nonzero whenever h > 0
			corrected := density / correction
			s.densities[i] = corrected
			s.pressures[i] = s.equationOfState(corrected)
		}
	})
	for i := range s.particles {
		p := &s.particles[i]
		p.Density = s.densities[i]
		p.Volume = p.Mass / p.Density
		p.Pressure = s.pressures[i]
	}
}

//computeForces accumulates pressure, viscosity and surface tension over each
//particle's neighborhood, renormalizes by the kernel weighted volume, and
//converts to acceleration. Each task writes only its own particles'
//accelerations, which nothing else reads during the sweep.
func (s *Solver) computeForces() {
	//Gravity lives in the parent frame; map it into the local frame once per
	//pass since the placement can change between steps
	gravity := s.transform.Inv().Mat3().Mul3x1(s.gravity)

	s.forEachParticle(func(lo, hi int) {
		for i := lo; i < hi; i++ {
			p := &s.particles[i]
			var pressureForce, viscosityForce, tensionForce mgl32.Vec3
			var correction float32
			for _, cell := range s.index.Neighborhood(p.Cell) {
				for _, j := range s.index.CellParticles(cell) {
					n := &s.particles[j]
					diff := p.Position.Sub(n.Position)
					r2 := diff.Dot(diff)
					if r2 >= s.kernel.H2 {
						continue
					}
					r := float32(math.Sqrt(float64(r2)))
					meanPressure := (n.Pressure + p.Pressure) * 0.5
					pressureForce = pressureForce.Sub(diff.Mul(s.kernel.Pressure(r) * meanPressure * n.Volume))
					viscosityForce = viscosityForce.Add(n.Velocity.Sub(p.Velocity).Mul(s.kernel.Viscosity(r) * n.Volume))
					w := s.kernel.Density(r2)
					tensionForce = tensionForce.Add(diff.Mul(w))
					correction += w * n.Volume
				}
			}
			inv := 1 / correction
			pressureForce = pressureForce.Mul(s.pressure * inv)
			viscosityForce = viscosityForce.Mul(s.viscosity * inv)
			tensionForce = tensionForce.Mul(s.surfaceTension * inv)
			p.Acceleration = viscosityForce.Sub(pressureForce).Sub(tensionForce).Mul(1 / p.Density).Add(gravity)
		}
	})
}

//integrate advances velocities and positions with symplectic Euler and
//resolves container collisions as bounded inelastic slides. It mutates the
//shared spatial index, so it runs sequentially after both sweeps.
func (s *Solver) integrate(dt float32) {
	for i := range s.particles {
		p := &s.particles[i]
		velocity := p.Velocity.Add(p.Acceleration.Mul(dt))
		position := p.Position
		target := position.Add(velocity.Mul(dt))
		movement := target.Sub(position)

		for bounce := 0; bounce < maxBounces; bounce++ {
			length := movement.Len()
			if length == 0 {
				break
			}
			ray := geometry.Ray{Origin: position, Direction: movement.Mul(1 / length)}
			hit, ok := s.container.Intersect(ray)
			if !ok || hit.Distance >= length {
				//Clear path: commit the move
				position = position.Add(movement)
				break
			}
			//Inelastic slide: stop at the face nudged back along the normal,
			//drop the normal component of the remaining movement and of the
			//velocity, then retry toward the slid target. If the bounce cap
			//runs out the particle stays at its last surface position.
			position = hit.Position.Sub(hit.Normal.Mul(collisionBias))
			movement = target.Sub(position)
			movement = movement.Sub(hit.Normal.Mul(movement.Dot(hit.Normal)))
			target = position.Add(movement)
			velocity = velocity.Sub(hit.Normal.Mul(velocity.Dot(hit.Normal)))
		}

		p.Position = position
		p.Velocity = velocity

		cell := s.index.CellIndex(position)
		if cell != p.Cell {
			s.index.RemoveParticle(p.Cell, i)
			s.index.AddParticle(cell, i)
			p.Cell = cell
		}
	}
}
