package app

import (
	"fmt"
	"log"
	"math"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"github.com/bhamel27/AnimationFluide/fluid"
)

const windowTitle = "SPH Fluid"

const maxPitch = 1.45

//flatVertexShader draws the point cloud and the tank wireframe with colors
//baked into the vertex stream.
const flatVertexShader = `
#version 410
layout (location = 0) in vec3 position;
layout (location = 1) in vec3 color;

uniform mat4 projection;
uniform mat4 view;
uniform mat4 model;

out vec3 vertexColor;

void main() {
	vertexColor = color;
	gl_Position = projection * view * model * vec4(position, 1.0);
}
` + "\x00"

const flatFragmentShader = `
#version 410
in vec3 vertexColor;
out vec4 outputColor;

void main() {
	outputColor = vec4(vertexColor, 1.0);
}
` + "\x00"

//surfaceVertexShader shades the polygonized surface with the solver's
//material preset.
const surfaceVertexShader = `
#version 410
layout (location = 0) in vec3 position;
layout (location = 1) in vec3 normal;

uniform mat4 projection;
uniform mat4 view;
uniform mat4 model;

out vec3 worldNormal;
out vec3 worldPosition;

void main() {
	worldNormal = mat3(model) * normal;
	worldPosition = vec3(model * vec4(position, 1.0));
	gl_Position = projection * view * vec4(worldPosition, 1.0);
}
` + "\x00"

const surfaceFragmentShader = `
#version 410
in vec3 worldNormal;
in vec3 worldPosition;

uniform vec4 materialColor;
uniform float refractiveIndex;
uniform vec3 lightPosition;
uniform vec3 cameraPosition;

out vec4 outputColor;

void main() {
	vec3 n = normalize(worldNormal);
	vec3 l = normalize(lightPosition - worldPosition);
	vec3 v = normalize(cameraPosition - worldPosition);

	float diffuse = max(dot(n, l), 0.0);
	float rim = pow(1.0 - max(dot(n, v), 0.0), 5.0);

	vec3 shaded = materialColor.rgb * (0.25 + 0.75 * diffuse)
		+ vec3(rim) * (refractiveIndex - 1.0);
	outputColor = vec4(shaded, materialColor.a);
}
` + "\x00"

//renderer owns the GL objects and the camera. All of its methods must run on
//the thread holding the GL context.
type renderer struct {
	window *glfw.Window

	flatProgram uint32
	flatProj    int32
	flatView    int32
	flatModel   int32

	surfaceProgram uint32
	surfProj       int32
	surfView       int32
	surfModel      int32
	surfMaterial   int32
	surfIndex      int32
	surfLight      int32
	surfCamera     int32

	tankVAO     uint32
	tankVBO     uint32
	particleVAO uint32
	particleVBO uint32
	surfaceVAO  uint32
	surfaceVBO  uint32
	surfaceCap  int

	projection mgl32.Mat4
	light      mgl32.Vec3
	pointSize  float32

	yaw      float32
	pitch    float32
	distance float32
}

//Run builds the scene from the configuration, opens a window and drives the
//animation loop until the window closes. It must be called from the main
//goroutine with the OS thread locked.
func Run(cfg Config) error {
	scene, err := NewScene(cfg)
	if err != nil {
		return err
	}

	window, err := initWindow(cfg.Window)
	if err != nil {
		return err
	}
	defer glfw.Terminate()

	r, err := newRenderer(window, scene, cfg.Window)
	if err != nil {
		return err
	}
	r.loop(scene)
	return nil
}

func initWindow(cfg WindowConfig) (*glfw.Window, error) {
	if err := glfw.Init(); err != nil {
		return nil, fmt.Errorf("app: initializing glfw: %w", err)
	}
	glfw.WindowHint(glfw.Resizable, glfw.False)
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)

	window, err := glfw.CreateWindow(cfg.Width, cfg.Height, windowTitle, nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, fmt.Errorf("app: creating window: %w", err)
	}
	window.MakeContextCurrent()
	glfw.SwapInterval(1)
	return window, nil
}

func newRenderer(window *glfw.Window, scene *Scene, cfg WindowConfig) (*renderer, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("app: initializing gl: %w", err)
	}
	log.Println("OpenGL version", gl.GoStr(gl.GetString(gl.VERSION)))

	r := &renderer{window: window, pointSize: float32(cfg.PointSize)}

	var err error
	if r.flatProgram, err = newProgram(flatVertexShader, flatFragmentShader); err != nil {
		return nil, err
	}
	r.flatProj = uniform(r.flatProgram, "projection")
	r.flatView = uniform(r.flatProgram, "view")
	r.flatModel = uniform(r.flatProgram, "model")

	if r.surfaceProgram, err = newProgram(surfaceVertexShader, surfaceFragmentShader); err != nil {
		return nil, err
	}
	r.surfProj = uniform(r.surfaceProgram, "projection")
	r.surfView = uniform(r.surfaceProgram, "view")
	r.surfModel = uniform(r.surfaceProgram, "model")
	r.surfMaterial = uniform(r.surfaceProgram, "materialColor")
	r.surfIndex = uniform(r.surfaceProgram, "refractiveIndex")
	r.surfLight = uniform(r.surfaceProgram, "lightPosition")
	r.surfCamera = uniform(r.surfaceProgram, "cameraPosition")

	tank := scene.TankVertices()
	r.tankVAO, r.tankVBO = makeVAO(len(tank)*4, gl.STATIC_DRAW)
	gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(tank)*4, gl.Ptr(tank))

	r.particleVAO, r.particleVBO = makeVAO(scene.ParticleCount()*6*4, gl.DYNAMIC_DRAW)

	r.surfaceCap = 1 << 16
	r.surfaceVAO, r.surfaceVBO = makeVAO(r.surfaceCap*4, gl.DYNAMIC_DRAW)

	bounds := scene.Bounds()
	diag := bounds.Size().Len()
	width, height := window.GetSize()
	r.projection = mgl32.Perspective(mgl32.DegToRad(45),
		float32(width)/float32(height), 0.1, 100)
	r.light = mgl32.Vec3{0.8, 1.6, 1.0}.Mul(diag)
	r.yaw = 0.6
	r.pitch = 0.35
	r.distance = 1.4 * diag

	gl.Enable(gl.DEPTH_TEST)
	gl.ClearColor(0.08, 0.09, 0.11, 1)

	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		if action != glfw.Press {
			return
		}
		switch key {
		case glfw.KeyEscape:
			w.SetShouldClose(true)
		case glfw.KeySpace:
			scene.ToggleRenderMode()
		case glfw.KeyM:
			scene.ToggleMaterial()
		case glfw.KeyR:
			scene.ResetVelocities()
		case glfw.KeyP:
			scene.TogglePause()
		}
	})
	window.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		r.distance *= 1 - 0.1*float32(yoff)
		if r.distance < 0.2*diag {
			r.distance = 0.2 * diag
		}
	})

	return r, nil
}

//loop is the frame loop: advance the solver by the elapsed wall clock, draw,
//and refresh the title once a second.
func (r *renderer) loop(scene *Scene) {
	last := glfw.GetTime()
	tick := last
	frames := 0

	for !r.window.ShouldClose() {
		now := glfw.GetTime()
		dt := float32(now - last)
		last = now

		r.orbit(dt)
		scene.Advance(dt)
		r.draw(scene)

		r.window.SwapBuffers()
		glfw.PollEvents()

		frames++
		if now-tick >= 1 {
			title := fmt.Sprintf("%s | %d particles | %.0f fps | %s",
				windowTitle, scene.ParticleCount(), float64(frames)/(now-tick), scene.RenderMode())
			if scene.Paused() {
				title += " | paused"
			}
			r.window.SetTitle(title)
			frames = 0
			tick = now
		}
	}
}

func (r *renderer) draw(scene *Scene) {
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	view := mgl32.LookAtV(r.eye(), mgl32.Vec3{}, mgl32.Vec3{0, 1, 0})
	model := scene.Transform()

	gl.UseProgram(r.flatProgram)
	gl.UniformMatrix4fv(r.flatProj, 1, false, &r.projection[0])
	gl.UniformMatrix4fv(r.flatView, 1, false, &view[0])
	gl.UniformMatrix4fv(r.flatModel, 1, false, &model[0])

	gl.BindVertexArray(r.tankVAO)
	gl.DrawArrays(gl.LINES, 0, 24)

	switch scene.RenderMode() {
	case fluid.RenderParticles:
		data := scene.ParticleVertices()
		gl.BindVertexArray(r.particleVAO)
		gl.BindBuffer(gl.ARRAY_BUFFER, r.particleVBO)
		gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(data)*4, gl.Ptr(data))
		gl.PointSize(r.pointSize)
		gl.DrawArrays(gl.POINTS, 0, int32(len(data)/6))

	case fluid.RenderSurface:
		data := scene.SurfaceVertices()
		if len(data) == 0 {
			return
		}
		mat := scene.Material()
		eye := r.eye()

		gl.UseProgram(r.surfaceProgram)
		gl.UniformMatrix4fv(r.surfProj, 1, false, &r.projection[0])
		gl.UniformMatrix4fv(r.surfView, 1, false, &view[0])
		gl.UniformMatrix4fv(r.surfModel, 1, false, &model[0])
		gl.Uniform4fv(r.surfMaterial, 1, &mat.Color[0])
		gl.Uniform1f(r.surfIndex, mat.RefractiveIndex)
		gl.Uniform3fv(r.surfLight, 1, &r.light[0])
		gl.Uniform3fv(r.surfCamera, 1, &eye[0])

		gl.BindVertexArray(r.surfaceVAO)
		gl.BindBuffer(gl.ARRAY_BUFFER, r.surfaceVBO)
		if len(data) > r.surfaceCap {
			r.surfaceCap = 2 * len(data)
			gl.BufferData(gl.ARRAY_BUFFER, r.surfaceCap*4, nil, gl.DYNAMIC_DRAW)
		}
		gl.BufferSubData(gl.ARRAY_BUFFER, 0, len(data)*4, gl.Ptr(data))

		if mat.Color[3] < 1 {
			gl.Enable(gl.BLEND)
			gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)
		}
		gl.DrawArrays(gl.TRIANGLES, 0, int32(len(data)/6))
		gl.Disable(gl.BLEND)
	}
}

func (r *renderer) orbit(dt float32) {
	const speed = 1.6
	if r.window.GetKey(glfw.KeyLeft) == glfw.Press {
		r.yaw -= speed * dt
	}
	if r.window.GetKey(glfw.KeyRight) == glfw.Press {
		r.yaw += speed * dt
	}
	if r.window.GetKey(glfw.KeyUp) == glfw.Press {
		r.pitch += speed * dt
	}
	if r.window.GetKey(glfw.KeyDown) == glfw.Press {
		r.pitch -= speed * dt
	}
	if r.pitch > maxPitch {
		r.pitch = maxPitch
	}
	if r.pitch < -maxPitch {
		r.pitch = -maxPitch
	}
}

//eye is the camera position orbiting the origin.
func (r *renderer) eye() mgl32.Vec3 {
	cp := float32(math.Cos(float64(r.pitch)))
	return mgl32.Vec3{
		r.distance * cp * float32(math.Sin(float64(r.yaw))),
		r.distance * float32(math.Sin(float64(r.pitch))),
		r.distance * cp * float32(math.Cos(float64(r.yaw))),
	}
}

//makeVAO allocates a vertex array with one interleaved buffer laid out as
//two vec3 attributes. The buffer stays bound on return.
func makeVAO(sizeBytes int, usage uint32) (vao, vbo uint32) {
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, sizeBytes, nil, usage)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, 6*4, 0)
	gl.EnableVertexAttribArray(1)
	gl.VertexAttribPointerWithOffset(1, 3, gl.FLOAT, false, 6*4, 3*4)
	return vao, vbo
}

func newProgram(vertexSource, fragmentSource string) (uint32, error) {
	vertex, err := compileShader(vertexSource, gl.VERTEX_SHADER)
	if err != nil {
		return 0, err
	}
	fragment, err := compileShader(fragmentSource, gl.FRAGMENT_SHADER)
	if err != nil {
		return 0, err
	}

	program := gl.CreateProgram()
	gl.AttachShader(program, vertex)
	gl.AttachShader(program, fragment)
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLength)
		infoLog := strings.Repeat("\x00", int(logLength+1))
		gl.GetProgramInfoLog(program, logLength, nil, gl.Str(infoLog))
		return 0, fmt.Errorf("app: linking program: %v", infoLog)
	}

	gl.DeleteShader(vertex)
	gl.DeleteShader(fragment)
	return program, nil
}

func compileShader(source string, shaderType uint32) (uint32, error) {
	shader := gl.CreateShader(shaderType)
	csources, free := gl.Strs(source)
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLength int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLength)
		infoLog := strings.Repeat("\x00", int(logLength+1))
		gl.GetShaderInfoLog(shader, logLength, nil, gl.Str(infoLog))
		return 0, fmt.Errorf("app: compiling shader: %v", infoLog)
	}
	return shader, nil
}

func uniform(program uint32, name string) int32 {
	return gl.GetUniformLocation(program, gl.Str(name+"\x00"))
}
