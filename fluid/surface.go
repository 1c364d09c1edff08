package fluid

import "github.com/go-gl/mathgl/mgl32"

//SurfaceInfo samples the implicit fluid field at an arbitrary world point.
//The scalar is the smoothed density normalized by the rest density and shifted
//by the surface offset, so its zero level set is the free surface: positive
//inside the fluid, negative outside. The normal is the negated normalized
//density gradient and points out of the fluid; it stays zero when no particle
//is within the smoothing radius.
//
//The query walks the same spatial index as the sweeps without mutating it. It
//is safe to call concurrently with itself and with the density and force
//passes, but never while integrate is re-filing cells.
func (s *Solver) SurfaceInfo(point mgl32.Vec3) (float32, mgl32.Vec3) {
	var density float32
	var gradient mgl32.Vec3
	for _, cell := range s.index.Neighborhood(s.index.CellIndex(point)) {
		for _, j := range s.index.CellParticles(cell) {
			n := &s.particles[j]
			diff := point.Sub(n.Position)
			r2 := diff.Dot(diff)
			if r2 < s.kernel.H2 {
				density += s.kernel.Density(r2) * n.Mass
				gradient = gradient.Add(diff.Mul(2 * s.kernel.DensityGradient(r2) * n.Mass))
			}
		}
	}

	normal := gradient.Mul(1 / s.restDensity)
	if length := normal.Len(); length > 0 {
		normal = normal.Mul(-1 / length)
	}
	value := density/s.restDensity - (1 - s.surfaceOffset)
	return value, normal
}
