package fluid

import "math"

//Smoothing kernels for the SPH field estimators. The coefficients depend only
//on the smoothing radius h, so they are precomputed once at construction.
//Callers gate every evaluation by squared distance; the kernels assume
//0 <= r <= h and are conceptually zero beyond the support radius.
type Kernel struct {
	H  float32 //Smoothing radius
	H2 float32 //Radius squared, the gate for neighbor loops

	coeffDensity   float32 //315/(64*pi*h^9)
	coeffPressure  float32 //45/(pi*h^6)
	coeffViscosity float32 //45/(pi*h^6)
}

//InitKernel precomputes the radius powers shared by the three estimators.
func InitKernel(h float32) Kernel {
	h2 := h * h
	h6 := h2 * h2 * h2
	h9 := h6 * h2 * h
	return Kernel{
		H:              h,
		H2:             h2,
		coeffDensity:   315.0 / (64.0 * math.Pi * h9),
		coeffPressure:  45.0 / (math.Pi * h6),
		coeffViscosity: 45.0 / (math.Pi * h6),
	}
}

//Density is the poly6 kernel over squared distance.
func (k Kernel) Density(r2 float32) float32 {
	d := k.H2 - r2
	return k.coeffDensity * d * d * d
}

//DensityGradient is the radial derivative factor of the poly6 kernel. A
//Cartesian gradient component is assembled as 2*delta*DensityGradient(r2)*mass
//per axis.
func (k Kernel) DensityGradient(r2 float32) float32 {
	d := k.H2 - r2
	return -3 * k.coeffDensity * d * d
}

//Pressure is the spiky gradient kernel. A coincident pair has no direction, so
//r == 0 short circuits to zero instead of dividing by it.
func (k Kernel) Pressure(r float32) float32 {
	if r == 0 {
		return 0
	}
	d := k.H - r
	return k.coeffPressure * d * d / r
}

//Viscosity is the Laplacian of the viscosity kernel.
func (k Kernel) Viscosity(r float32) float32 {
	return k.coeffViscosity * (k.H - r)
}
