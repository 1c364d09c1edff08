package fluid

import "github.com/go-gl/mathgl/mgl32"

//Particle state advanced by the solver. A particle is identified by its slot
//in the solver's slice; the set is fixed at construction, never grown or
//shrunk, only relocated between spatial cells. Mass is fixed at init, density
//and pressure are recomputed every step, volume is the derived mass/density.
//Cell tracks the spatial index bucket holding the slot and matches the indexed
//position at the end of every step.
type Particle struct {
	Position     mgl32.Vec3
	Velocity     mgl32.Vec3
	Acceleration mgl32.Vec3
	Mass         float32
	Density      float32
	Pressure     float32
	Volume       float32
	Cell         int
}
