package brushcursor

import (
	"math"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/mathgl/mgl32"

	"terraining/internal/config"
	"terraining/internal/graphics"
	renderer "terraining/internal/graphics/renderer"
	"terraining/internal/profiling"
	"terraining/internal/terrain"
)

const segments = 64

const vertShader = `#version 410 core
layout(location = 0) in vec3 aPos;
uniform mat4 proj;
uniform mat4 view;
uniform mat4 model;
void main() {
    gl_Position = proj * view * model * vec4(aPos, 1.0);
}
`

const fragShader = `#version 410 core
uniform vec3 color;
out vec4 FragColor;
void main() {
    FragColor = vec4(color, 1.0);
}
`

// BrushCursor outlines the brush footprint at the terrain point under the mouse
type BrushCursor struct {
	shader *graphics.Shader
	vao    uint32
	vbo    uint32
}

func NewBrushCursor() *BrushCursor {
	return &BrushCursor{}
}

// outline returns a unit circle followed by a unit square, as line loops.
func outline() []float32 {
	vertices := make([]float32, 0, (segments+4)*3)
	for i := 0; i < segments; i++ {
		a := 2 * math.Pi * float64(i) / segments
		vertices = append(vertices, float32(math.Cos(a)), 0, float32(math.Sin(a)))
	}
	vertices = append(vertices,
		-1, 0, -1,
		1, 0, -1,
		1, 0, 1,
		-1, 0, 1,
	)
	return vertices
}

func (c *BrushCursor) Init() error {
	var err error
	c.shader, err = graphics.NewShader(vertShader, fragShader)
	if err != nil {
		return err
	}

	vertices := outline()
	gl.GenVertexArrays(1, &c.vao)
	gl.BindVertexArray(c.vao)
	gl.GenBuffers(1, &c.vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, c.vbo)
	gl.BufferData(gl.ARRAY_BUFFER, len(vertices)*4, gl.Ptr(vertices), gl.STATIC_DRAW)
	gl.EnableVertexAttribArray(0)
	gl.VertexAttribPointerWithOffset(0, 3, gl.FLOAT, false, 3*4, 0)
	return nil
}

// Render draws the outline when the mouse is over terrain
func (c *BrushCursor) Render(ctx renderer.RenderContext) {
	if !ctx.HasCursor {
		return
	}
	defer profiling.Track("renderer.renderBrushCursor")()

	brush := config.GetBrush()
	r := ctx.CursorRadius
	if r <= 0 {
		r = brush.Radius
	}

	c.shader.Use()
	c.shader.SetMatrix4("proj", &ctx.Proj[0])
	c.shader.SetMatrix4("view", &ctx.View[0])
	model := mgl32.Translate3D(ctx.Cursor.X(), ctx.Cursor.Y()+0.05, ctx.Cursor.Z()).Mul4(mgl32.Scale3D(r, 1, r))
	c.shader.SetMatrix4("model", &model[0])

	switch brush.Mode {
	case terrain.Lower:
		c.shader.SetVector3("color", 0.9, 0.3, 0.2)
	case terrain.Flatten:
		c.shader.SetVector3("color", 0.2, 0.5, 0.9)
	default:
		c.shader.SetVector3("color", 1.0, 1.0, 0.3)
	}

	gl.BindVertexArray(c.vao)
	gl.LineWidth(1.0)
	if brush.Shape == terrain.Square {
		gl.DrawArrays(gl.LINE_LOOP, segments, 4)
	} else {
		gl.DrawArrays(gl.LINE_LOOP, 0, segments)
	}
}

func (c *BrushCursor) SetViewport(width, height int) {}

func (c *BrushCursor) Dispose() {
	if c.vao != 0 {
		gl.DeleteVertexArrays(1, &c.vao)
	}
	if c.vbo != 0 {
		gl.DeleteBuffers(1, &c.vbo)
	}
	if c.shader != nil {
		c.shader.Delete()
	}
}
