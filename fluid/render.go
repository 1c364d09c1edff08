package fluid

//RenderMode selects how the rendering collaborator draws the fluid.
type RenderMode int

const (
	RenderParticles RenderMode = iota
	RenderSurface
)

func (m RenderMode) String() string {
	if m == RenderSurface {
		return "surface"
	}
	return "particles"
}

//Material is the shading preset the rendering collaborator reads. The solver
//only switches between the two fixed presets below; it never interprets the
//fields itself.
type Material struct {
	Color           [4]float32
	RefractiveIndex float32
}

var (
	//MaterialOpaque is flat mid gray.
	MaterialOpaque = Material{
		Color:           [4]float32{128.0 / 255.0, 128.0 / 255.0, 128.0 / 255.0, 1},
		RefractiveIndex: 1,
	}
	//MaterialWater is the refractive preset, index 1.33.
	MaterialWater = Material{
		Color:           [4]float32{0.4, 0.65, 0.9, 0.6},
		RefractiveIndex: 1.33,
	}
)
