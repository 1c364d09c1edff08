package app

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bhamel27/AnimationFluide/fluid"
)

func sceneConfig() Config {
	cfg := DefaultConfig()
	cfg.Fluid.Particles = 64
	cfg.Fluid.Seed = 7
	cfg.Fluid.Workers = 2
	cfg.Grid = GridConfig{CellsX: 6, CellsY: 6, CellsZ: 6}
	cfg.Surface = SurfaceConfig{CellsX: 8, CellsY: 8, CellsZ: 8}
	return cfg
}

func TestNewSceneBuildsVertexStreams(t *testing.T) {
	s, err := NewScene(sceneConfig())
	require.NoError(t, err)

	assert.Equal(t, 64, s.ParticleCount())
	assert.Len(t, s.ParticleVertices(), 64*6)
	assert.Len(t, s.TankVertices(), 12*2*6)

	surface := s.SurfaceVertices()
	assert.Zero(t, len(surface)%6)
}

func TestNewSceneRejectsBadSolverConfig(t *testing.T) {
	cfg := sceneConfig()
	cfg.Fluid.SmoothingRadius = 0

	_, err := NewScene(cfg)

	require.Error(t, err)
}

func TestNewSceneRejectsBadLattice(t *testing.T) {
	cfg := sceneConfig()
	cfg.Surface.CellsY = 0

	_, err := NewScene(cfg)

	require.Error(t, err)
}

func TestSceneAdvanceHonorsPause(t *testing.T) {
	s, err := NewScene(sceneConfig())
	require.NoError(t, err)

	before := append([]float32(nil), s.ParticleVertices()...)

	s.TogglePause()
	assert.True(t, s.Paused())
	s.Advance(0.01)
	assert.Equal(t, before, append([]float32(nil), s.ParticleVertices()...))

	s.TogglePause()
	assert.False(t, s.Paused())
	s.Advance(0.01)
	assert.NotEqual(t, before, append([]float32(nil), s.ParticleVertices()...))
}

func TestSceneCommandsReachSolver(t *testing.T) {
	s, err := NewScene(sceneConfig())
	require.NoError(t, err)

	assert.Equal(t, fluid.RenderParticles, s.RenderMode())
	s.ToggleRenderMode()
	assert.Equal(t, fluid.RenderSurface, s.RenderMode())

	assert.Equal(t, fluid.MaterialOpaque, s.Material())
	s.ToggleMaterial()
	assert.Equal(t, fluid.MaterialWater, s.Material())

	s.Advance(0.01)
	s.ResetVelocities()
	data := s.ParticleVertices()
	rest := s.speedColor(0)
	for i := 0; i < len(data); i += 6 {
		assert.Equal(t, rest[0], data[i+3])
		assert.Equal(t, rest[1], data[i+4])
		assert.Equal(t, rest[2], data[i+5])
	}
}

func TestTankVerticesSpanTheTank(t *testing.T) {
	s, err := NewScene(sceneConfig())
	require.NoError(t, err)

	b := s.tank.Bounds()
	data := s.TankVertices()
	for i := 0; i < len(data); i += 6 {
		assert.GreaterOrEqual(t, data[i], b.Min[0])
		assert.LessOrEqual(t, data[i], b.Max[0])
		assert.GreaterOrEqual(t, data[i+1], b.Min[1])
		assert.LessOrEqual(t, data[i+1], b.Max[1])
	}
}

func TestSpeedColorSaturates(t *testing.T) {
	s, err := NewScene(sceneConfig())
	require.NoError(t, err)

	assert.Equal(t, s.palette[0], s.speedColor(0))
	top := s.palette[len(s.palette)-1]
	assert.Equal(t, top, s.speedColor(speedScale))
	assert.Equal(t, top, s.speedColor(100*speedScale))
}
