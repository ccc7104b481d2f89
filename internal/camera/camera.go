// Package camera implements the free-flying viewer camera.
package camera

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"

	"terraining/internal/physics"
)

// Movement directions for Move.
type Direction int

const (
	Forward Direction = iota
	Backward
	Left
	Right
	Up
	Down
)

// FlyCamera holds the view position, orientation and projection.
type FlyCamera struct {
	Position mgl32.Vec3
	Yaw      float64
	Pitch    float64

	AspectRatio float32
	FOV         float32
	NearPlane   float32
	FarPlane    float32

	Speed       float32
	Sensitivity float64

	firstMouse bool
	lastX      float64
	lastY      float64
}

func New(width, height int) *FlyCamera {
	c := &FlyCamera{
		Yaw:         -90,
		FOV:         60.0,
		NearPlane:   0.1,
		FarPlane:    4000.0,
		Speed:       40,
		Sensitivity: 0.1,
		firstMouse:  true,
	}
	c.SetViewport(width, height)
	return c
}

// SetViewport updates the aspect ratio. Degenerate sizes are ignored.
func (c *FlyCamera) SetViewport(width, height int) {
	if width <= 0 || height <= 0 {
		return
	}
	c.AspectRatio = float32(width) / float32(height)
}

func (c *FlyCamera) ProjectionMatrix() mgl32.Mat4 {
	return mgl32.Perspective(mgl32.DegToRad(c.FOV), c.AspectRatio, c.NearPlane, c.FarPlane)
}

func (c *FlyCamera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Position, c.Position.Add(c.Front()), mgl32.Vec3{0, 1, 0})
}

// Front is the unit view direction.
func (c *FlyCamera) Front() mgl32.Vec3 {
	y := mgl32.DegToRad(float32(c.Yaw))
	pt := mgl32.DegToRad(float32(c.Pitch))
	fx := float32(math.Cos(float64(y)) * math.Cos(float64(pt)))
	fy := float32(math.Sin(float64(pt)))
	fz := float32(math.Sin(float64(y)) * math.Cos(float64(pt)))
	return mgl32.Vec3{fx, fy, fz}.Normalize()
}

func (c *FlyCamera) Right() mgl32.Vec3 {
	return c.Front().Cross(mgl32.Vec3{0, 1, 0}).Normalize()
}

// FocusPosition lets the terrain window follow the camera.
func (c *FlyCamera) FocusPosition() mgl32.Vec3 {
	return c.Position
}

// Move advances the camera by Speed*dt along d. Forward and backward
// movement follows the view direction, including pitch.
func (c *FlyCamera) Move(d Direction, dt float64) {
	step := c.Speed * float32(dt)
	switch d {
	case Forward:
		c.Position = c.Position.Add(c.Front().Mul(step))
	case Backward:
		c.Position = c.Position.Sub(c.Front().Mul(step))
	case Left:
		c.Position = c.Position.Sub(c.Right().Mul(step))
	case Right:
		c.Position = c.Position.Add(c.Right().Mul(step))
	case Up:
		c.Position = c.Position.Add(mgl32.Vec3{0, step, 0})
	case Down:
		c.Position = c.Position.Sub(mgl32.Vec3{0, step, 0})
	}
}

// HandleMouseMovement turns the camera by the cursor delta since the last call.
func (c *FlyCamera) HandleMouseMovement(xpos, ypos float64) {
	if c.firstMouse {
		c.lastX = xpos
		c.lastY = ypos
		c.firstMouse = false
		return
	}

	xoffset := (xpos - c.lastX) * c.Sensitivity
	yoffset := (c.lastY - ypos) * c.Sensitivity
	c.lastX = xpos
	c.lastY = ypos

	c.Yaw += xoffset
	c.Pitch += yoffset

	// Constrain pitch
	if c.Pitch > 89.0 {
		c.Pitch = 89.0
	}
	if c.Pitch < -89.0 {
		c.Pitch = -89.0
	}
}

// ResetMouse forgets the last cursor position, e.g. after the cursor was released.
func (c *FlyCamera) ResetMouse() {
	c.firstMouse = true
}

// ScreenRay returns the world ray through the pixel (x, y) of a width*height
// viewport, with y growing downward.
func (c *FlyCamera) ScreenRay(x, y float64, width, height int) physics.Ray {
	if width <= 0 || height <= 0 {
		return physics.Ray{Position: c.Position, Direction: c.Front()}
	}
	ndcX := float32(2*x/float64(width) - 1)
	ndcY := float32(1 - 2*y/float64(height))

	inv := c.ProjectionMatrix().Mul4(c.ViewMatrix()).Inv()
	near := mgl32.TransformCoordinate(mgl32.Vec3{ndcX, ndcY, -1}, inv)
	far := mgl32.TransformCoordinate(mgl32.Vec3{ndcX, ndcY, 1}, inv)
	return physics.Ray{Position: near, Direction: far.Sub(near).Normalize()}
}
