package app

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/gcfg.v1"

	"github.com/bhamel27/AnimationFluide/fluid"
	"github.com/bhamel27/AnimationFluide/geometry"
)

//Config mirrors the INI scene file consumed by gcfg, one struct field per
//section. LoadConfig overlays a file on top of DefaultConfig, so every key
//is optional.
type Config struct {
	Fluid   FluidConfig
	Grid    GridConfig
	Surface SurfaceConfig
	Window  WindowConfig
}

//FluidConfig is the [fluid] section: the solver parameters plus the tank the
//particles are seeded into. Width, Height and Depth size the tank around the
//origin.
type FluidConfig struct {
	Particles       int
	SmoothingRadius float64
	Viscosity       float64
	Pressure        float64
	SurfaceTension  float64
	RestDensity     float64
	TotalVolume     float64
	MaxDeltaTime    float64
	GravityX        float64
	GravityY        float64
	GravityZ        float64
	SurfaceOffset   float64
	Width           float64
	Height          float64
	Depth           float64
	Workers         int
	Seed            int64
}

//GridConfig is the [grid] section: spatial index resolution per axis.
type GridConfig struct {
	CellsX int
	CellsY int
	CellsZ int
}

//SurfaceConfig is the [surface] section: marching lattice resolution per axis.
type SurfaceConfig struct {
	CellsX int
	CellsY int
	CellsZ int
}

//WindowConfig is the [window] section.
type WindowConfig struct {
	Width     int
	Height    int
	PointSize float64
}

//CheckInit validates the fields the solver never sees. The physical
//parameters are validated by fluid.Config when the scene is built.
func (c *FluidConfig) CheckInit() error {
	if c.Width <= 0 || c.Height <= 0 || c.Depth <= 0 {
		return fmt.Errorf("[fluid] tank dimensions must be positive, got %gx%gx%g",
			c.Width, c.Height, c.Depth)
	}
	return nil
}

func (c *WindowConfig) CheckInit() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("[window] dimensions must be positive, got %dx%d", c.Width, c.Height)
	}
	if c.PointSize <= 0 {
		return fmt.Errorf("[window] pointsize must be positive, got %g", c.PointSize)
	}
	return nil
}

//CheckInit validates every section that carries app-level constraints.
func (c *Config) CheckInit() error {
	if err := c.Fluid.CheckInit(); err != nil {
		return err
	}
	return c.Window.CheckInit()
}

//SolverConfig converts the section into the solver's native configuration.
func (c *FluidConfig) SolverConfig(grid GridConfig) fluid.Config {
	return fluid.Config{
		SmoothingRadius: float32(c.SmoothingRadius),
		Viscosity:       float32(c.Viscosity),
		Pressure:        float32(c.Pressure),
		SurfaceTension:  float32(c.SurfaceTension),
		RestDensity:     float32(c.RestDensity),
		TotalVolume:     float32(c.TotalVolume),
		Particles:       c.Particles,
		GridCells:       [3]int{grid.CellsX, grid.CellsY, grid.CellsZ},
		MaxDeltaTime:    float32(c.MaxDeltaTime),
		Gravity:         mgl32.Vec3{float32(c.GravityX), float32(c.GravityY), float32(c.GravityZ)},
		SurfaceOffset:   float32(c.SurfaceOffset),
		Workers:         c.Workers,
		Seed:            c.Seed,
	}
}

//Tank builds the container box centered at the origin.
func (c *FluidConfig) Tank() *geometry.Box {
	return geometry.NewBox(mgl32.Vec3{}, float32(c.Width), float32(c.Height), float32(c.Depth))
}

//DefaultConfig is the built-in scene: two thousand particles dropped into a
//two meter tank under standard gravity.
func DefaultConfig() Config {
	return Config{
		Fluid: FluidConfig{
			Particles:       2000,
			SmoothingRadius: 0.2,
			Viscosity:       0.4,
			Pressure:        12,
			SurfaceTension:  1.2,
			RestDensity:     1000,
			TotalVolume:     0.8,
			MaxDeltaTime:    0.01,
			GravityY:        -9.81,
			Width:           2,
			Height:          2,
			Depth:           2,
		},
		Grid:    GridConfig{CellsX: 12, CellsY: 12, CellsZ: 12},
		Surface: SurfaceConfig{CellsX: 32, CellsY: 32, CellsZ: 32},
		Window:  WindowConfig{Width: 1024, Height: 768, PointSize: 6},
	}
}

//LoadConfig merges the INI file at path over the defaults. An empty path
//returns the default scene untouched.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		if err := gcfg.ReadFileInto(&cfg, path); err != nil {
			return Config{}, fmt.Errorf("app: reading %s: %w", path, err)
		}
	}
	if err := cfg.CheckInit(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
