// Package viewer runs the interactive sculpting window.
package viewer

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"terraining/internal/camera"
	"terraining/internal/config"
	"terraining/internal/editor"
	"terraining/internal/graphics/renderables/brushcursor"
	"terraining/internal/graphics/renderables/crosshair"
	"terraining/internal/graphics/renderer"
	"terraining/internal/graphics/terrainmesh"
	standardInput "terraining/internal/input"
	"terraining/internal/physics"
	"terraining/internal/profiling"
	"terraining/internal/terrain"
	"terraining/internal/workers"
)

const sprintFactor = 4

type App struct {
	window       *glfw.Window
	inputManager *standardInput.InputManager
	camera       *camera.FlyCamera
	renderer     *renderer.Renderer
	mesh         *terrainmesh.Backend
	editor       *editor.Editor
	cfg          config.Config

	cursorFree    bool
	showProfiling bool
	mouseX        float64
	mouseY        float64
	cursor        mgl32.Vec3
	hasCursor     bool

	fpsLimiter       *FPSLimiter
	lastTime         time.Time
	frames           int
	lastFPSCheckTime time.Time
}

// NewApp wires the editor's terrain to a GL backend and a camera that the
// tile window follows. pool may be nil for synchronous fills.
func NewApp(window *glfw.Window, cfg config.Config, ed *editor.Editor, pool *workers.Pool) (*App, error) {
	width, height := window.GetSize()
	cam := camera.New(width, height)
	cam.Speed = cfg.Camera.Speed
	cam.Sensitivity = float64(cfg.Camera.Sensitivity)
	cam.Position = mgl32.Vec3{0, cfg.Camera.Height, 0}
	cam.Pitch = -35

	mesh := terrainmesh.New()
	r, err := renderer.NewRenderer(cam, mesh, brushcursor.NewBrushCursor(), crosshair.NewCrosshair())
	if err != nil {
		return nil, err
	}
	r.UpdateViewport(width, height)

	m := ed.Terrain()
	m.SetWorkerPool(pool)
	m.SetBackend(mesh)
	m.SetFocusProvider(cam)
	mesh.SetOrigin(m.Origin())
	if m.TileCount() == 0 {
		m.GenerateDefaultTerrain()
	}

	app := &App{
		window:           window,
		inputManager:     standardInput.NewInputManager(),
		camera:           cam,
		renderer:         r,
		mesh:             mesh,
		editor:           ed,
		cfg:              cfg,
		fpsLimiter:       NewFPSLimiter(cfg.Window.TargetFPS),
		lastTime:         time.Now(),
		lastFPSCheckTime: time.Now(),
	}
	app.setupInputHandlers()
	return app, nil
}

func (a *App) Run() {
	for !a.window.ShouldClose() {
		a.tick()
	}
}

// Close releases GPU resources. The terrain keeps its edits in its store.
func (a *App) Close() {
	a.editor.Terrain().Close()
	a.renderer.Dispose()
}

func (a *App) tick() {
	profiling.ResetFrame()
	startTick := time.Now()
	now := time.Now()
	dt := now.Sub(a.lastTime).Seconds()
	a.lastTime = now

	func() { defer profiling.Track("glfw.PollEvents")(); glfw.PollEvents() }()

	a.handleActions(dt)
	a.updateCursor()
	a.sculpt(now)

	m := a.editor.Terrain()
	m.Update(a.cfg.FrameBudget())
	a.mesh.SetOrigin(m.Origin())

	a.renderer.Render(renderer.RenderContext{
		DT:        dt,
		Cursor:    a.cursor,
		HasCursor: a.hasCursor,
	})
	a.window.SwapBuffers()
	a.frames++

	if time.Since(a.lastFPSCheckTime) >= time.Second {
		a.window.SetTitle(fmt.Sprintf("%s | %d fps | %d tiles, %d pending, %d drawn",
			a.cfg.Window.Title, a.frames, m.TileCount(), m.PendingCount(), a.mesh.Drawn))
		if a.showProfiling {
			log.Printf("Profile: %s", profiling.TopN(8))
		}
		a.frames = 0
		a.lastFPSCheckTime = time.Now()
	}

	// Check if frame took too long (> 16ms)
	processingDuration := time.Since(startTick)
	if processingDuration > 16*time.Millisecond {
		log.Printf("Slow frame: %v. Top tasks: %s", processingDuration, profiling.TopN(5))
	}

	a.inputManager.PostUpdate() // Clear "JustPressed" flags

	a.fpsLimiter.Wait(a.window.GetAttrib(glfw.Iconified) == glfw.True)
}

// aimRay is the ray under the mouse when the cursor is free and through the
// screen center otherwise.
func (a *App) aimRay() physics.Ray {
	width, height := a.window.GetSize()
	if a.cursorFree {
		return a.camera.ScreenRay(a.mouseX, a.mouseY, width, height)
	}
	return a.camera.ScreenRay(float64(width)/2, float64(height)/2, width, height)
}

func (a *App) updateCursor() {
	defer profiling.Track("terrain.Pick")()
	a.cursor, a.hasCursor = a.editor.Pick(a.aimRay())
}

func (a *App) sculpt(now time.Time) {
	im := a.inputManager
	left := im.IsActive(standardInput.ActionMouseLeft)
	right := im.IsActive(standardInput.ActionMouseRight)
	if im.JustReleased(standardInput.ActionMouseLeft) || im.JustReleased(standardInput.ActionMouseRight) {
		a.editor.EndStroke()
	}
	if !left && !right {
		return
	}

	defer profiling.Track("terrain.Sculpt")()
	b := config.GetBrush()
	if right {
		b = editor.Invert(b)
	}
	a.editor.Stroke(a.aimRay(), b, now)
}

func (a *App) handleActions(dt float64) {
	im := a.inputManager

	if im.JustPressed(standardInput.ActionReleaseCursor) {
		a.cursorFree = !a.cursorFree
		if a.cursorFree {
			a.window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
		} else {
			a.window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
			a.camera.ResetMouse()
		}
	}

	step := dt
	if im.IsActive(standardInput.ActionSprint) {
		step *= sprintFactor
	}
	moves := []struct {
		action standardInput.Action
		dir    camera.Direction
	}{
		{standardInput.ActionMoveForward, camera.Forward},
		{standardInput.ActionMoveBackward, camera.Backward},
		{standardInput.ActionMoveLeft, camera.Left},
		{standardInput.ActionMoveRight, camera.Right},
		{standardInput.ActionMoveUp, camera.Up},
		{standardInput.ActionMoveDown, camera.Down},
	}
	for _, mv := range moves {
		if im.IsActive(mv.action) {
			a.camera.Move(mv.dir, step)
		}
	}

	a.handleBrushActions()
	a.handleTerrainActions()

	if im.JustPressed(standardInput.ActionToggleWireframe) {
		a.renderer.ToggleWireframe()
	}
	if im.JustPressed(standardInput.ActionToggleGrid) {
		a.mesh.ShowGrid = !a.mesh.ShowGrid
	}
	if im.JustPressed(standardInput.ActionToggleProfiling) {
		a.showProfiling = !a.showProfiling
	}
}

func (a *App) handleBrushActions() {
	im := a.inputManager
	b := config.GetBrush()

	switch {
	case im.JustPressed(standardInput.ActionModeRaise):
		config.SetBrushMode(terrain.Raise)
	case im.JustPressed(standardInput.ActionModeLower):
		config.SetBrushMode(terrain.Lower)
	case im.JustPressed(standardInput.ActionModeFlatten):
		config.SetBrushMode(terrain.Flatten)
	}
	if im.JustPressed(standardInput.ActionCycleAxis) {
		log.Printf("brush axis: %v", config.CycleBrushAxis())
	}
	if im.JustPressed(standardInput.ActionToggleShape) {
		log.Printf("brush shape: %v", config.ToggleBrushShape())
	}

	radius := b.Radius
	if im.JustPressed(standardInput.ActionRadiusUp) {
		radius *= 1.25
	}
	if im.JustPressed(standardInput.ActionRadiusDown) {
		radius /= 1.25
	}
	if s := im.ScrollDelta(); s != 0 {
		radius *= float32(1 + 0.1*s)
	}
	if radius != b.Radius {
		config.SetBrushRadius(radius)
	}

	if im.JustPressed(standardInput.ActionStrengthUp) {
		config.SetBrushStrength(b.Strength + 0.25)
	}
	if im.JustPressed(standardInput.ActionStrengthDown) {
		config.SetBrushStrength(b.Strength - 0.25)
	}
}

func (a *App) handleTerrainActions() {
	im := a.inputManager
	ctx := context.Background()
	m := a.editor.Terrain()

	if im.JustPressed(standardInput.ActionTogglePreview) {
		if a.editor.TogglePreview() {
			log.Printf("viewer: showing procedural terrain")
		} else {
			log.Printf("viewer: showing edits")
		}
	}
	if im.JustPressed(standardInput.ActionClearEdits) && im.IsActive(standardInput.ActionModControl) {
		a.editor.ClearEdits()
	}
	if im.JustPressed(standardInput.ActionSave) {
		rev, err := a.editor.Save(ctx, "viewer")
		if err != nil {
			log.Printf("viewer: save failed: %v", err)
		} else {
			log.Printf("viewer: saved, revision %s", rev.ID)
		}
	}
	if im.JustPressed(standardInput.ActionRestoreJournal) {
		if rev, err := a.editor.Restore(ctx); err != nil {
			log.Printf("viewer: restore failed: %v", err)
		} else {
			log.Printf("viewer: restored revision %s from %s", rev.ID, rev.Created.Format(time.RFC3339))
		}
	}
	if im.JustPressed(standardInput.ActionRenew) {
		m.Renew()
	}
	if im.JustPressed(standardInput.ActionReseed) {
		a.editor.Reseed(int64(rand.Intn(1999999) - 999999))
	}
	if im.JustPressed(standardInput.ActionToggleFollow) {
		on, err := a.editor.ToggleFollow()
		if err != nil {
			log.Printf("viewer: %v", err)
		} else {
			log.Printf("viewer: follow camera %v", on)
		}
	}
}

func (a *App) setupInputHandlers() {
	window := a.window
	im := a.inputManager

	window.SetCursorPosCallback(func(w *glfw.Window, xpos, ypos float64) {
		a.mouseX, a.mouseY = xpos, ypos
		if !a.cursorFree {
			a.camera.HandleMouseMovement(xpos, ypos)
		}
	})
	im.SetKeyCallback(window)
	im.SetMouseButtonCallback(window)
	im.SetScrollCallback(window)

	window.SetFramebufferSizeCallback(func(w *glfw.Window, fbWidth, fbHeight int) {
		gl.Viewport(0, 0, int32(fbWidth), int32(fbHeight))
		winW, winH := w.GetSize()
		a.renderer.UpdateViewport(winW, winH)
	})

	window.SetFocusCallback(func(w *glfw.Window, focused bool) {
		if focused {
			return
		}
		im.ReleaseAll()
		if !a.cursorFree {
			a.cursorFree = true
			w.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
		}
	})
}
