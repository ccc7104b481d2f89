package renderer

import (
	"github.com/go-gl/mathgl/mgl32"

	"terraining/internal/camera"
)

// RenderContext provides shared context for all renderables
type RenderContext struct {
	Camera *camera.FlyCamera
	DT     float64
	View   mgl32.Mat4
	Proj   mgl32.Mat4

	// Cursor is the terrain point under the mouse, valid when HasCursor is set
	Cursor       mgl32.Vec3
	HasCursor    bool
	CursorRadius float32
}

// Renderable interface defines the lifecycle for renderable features
type Renderable interface {
	Init() error
	Render(ctx RenderContext)
	Dispose()
	SetViewport(width, height int)
}
