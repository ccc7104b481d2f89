// Package input maps glfw keys and mouse buttons to viewer actions.
package input

import (
	"sync"

	"github.com/go-gl/glfw/v3.3/glfw"
)

// Action represents a logical viewer action, not a physical key
type Action int

const (
	ActionMoveForward Action = iota
	ActionMoveBackward
	ActionMoveLeft
	ActionMoveRight
	ActionMoveUp
	ActionMoveDown
	ActionSprint
	ActionReleaseCursor
	ActionModeRaise
	ActionModeLower
	ActionModeFlatten
	ActionCycleAxis
	ActionToggleShape
	ActionRadiusUp
	ActionRadiusDown
	ActionStrengthUp
	ActionStrengthDown
	ActionTogglePreview
	ActionClearEdits
	ActionSave
	ActionRestoreJournal
	ActionRenew
	ActionReseed
	ActionToggleFollow
	ActionToggleWireframe
	ActionToggleGrid
	ActionToggleProfiling
	ActionMouseLeft
	ActionMouseRight
	ActionMouseMiddle
	ActionModControl
	ActionModShift
	ActionModAlt
	ActionModSuper
	ActionCount // Sentinel value for array sizing
)

var defaultKeys = []struct {
	key    glfw.Key
	action Action
}{
	{glfw.KeyW, ActionMoveForward},
	{glfw.KeyS, ActionMoveBackward},
	{glfw.KeyA, ActionMoveLeft},
	{glfw.KeyD, ActionMoveRight},
	{glfw.KeySpace, ActionMoveUp},
	{glfw.KeyC, ActionMoveDown},
	{glfw.KeyLeftShift, ActionSprint},
	{glfw.KeyEscape, ActionReleaseCursor},
	{glfw.Key1, ActionModeRaise},
	{glfw.Key2, ActionModeLower},
	{glfw.Key3, ActionModeFlatten},
	{glfw.KeyX, ActionCycleAxis},
	{glfw.KeyB, ActionToggleShape},
	{glfw.KeyRightBracket, ActionRadiusUp},
	{glfw.KeyLeftBracket, ActionRadiusDown},
	{glfw.KeyEqual, ActionStrengthUp},
	{glfw.KeyMinus, ActionStrengthDown},
	{glfw.KeyP, ActionTogglePreview},
	{glfw.KeyBackspace, ActionClearEdits},
	{glfw.KeyF5, ActionSave},
	{glfw.KeyF9, ActionRestoreJournal},
	{glfw.KeyR, ActionRenew},
	{glfw.KeyN, ActionReseed},
	{glfw.KeyT, ActionToggleFollow},
	{glfw.KeyF, ActionToggleWireframe},
	{glfw.KeyG, ActionToggleGrid},
	{glfw.KeyV, ActionToggleProfiling},

	{glfw.KeyLeftControl, ActionModControl},
	{glfw.KeyRightControl, ActionModControl},
	{glfw.KeyLeftShift, ActionModShift},
	{glfw.KeyRightShift, ActionModShift},
	{glfw.KeyLeftAlt, ActionModAlt},
	{glfw.KeyRightAlt, ActionModAlt},
	{glfw.KeyLeftSuper, ActionModSuper},
	{glfw.KeyRightSuper, ActionModSuper},
}

// InputManager tracks which actions are held. An action bound to several
// keys stays held until the last of them is released.
type InputManager struct {
	mu sync.Mutex

	keys    map[glfw.Key][]Action
	buttons map[glfw.MouseButton][]Action

	// number of bound inputs currently down, per action
	held [ActionCount]int

	// edge flags, cleared by PostUpdate
	pressed  [ActionCount]bool
	released [ActionCount]bool

	scrollY float64
}

// NewInputManager creates a manager with the default bindings.
func NewInputManager() *InputManager {
	im := &InputManager{
		keys:    make(map[glfw.Key][]Action),
		buttons: make(map[glfw.MouseButton][]Action),
	}
	for _, b := range defaultKeys {
		im.BindKey(b.key, b.action)
	}
	im.BindMouseButton(glfw.MouseButtonLeft, ActionMouseLeft)
	im.BindMouseButton(glfw.MouseButtonRight, ActionMouseRight)
	im.BindMouseButton(glfw.MouseButtonMiddle, ActionMouseMiddle)
	return im
}

func valid(a Action) bool { return a >= 0 && a < ActionCount }

// BindKey adds action to key. A key may drive several actions.
func (im *InputManager) BindKey(key glfw.Key, action Action) {
	if !valid(action) {
		return
	}
	im.mu.Lock()
	im.keys[key] = append(im.keys[key], action)
	im.mu.Unlock()
}

func (im *InputManager) UnbindKey(key glfw.Key) {
	im.mu.Lock()
	delete(im.keys, key)
	im.mu.Unlock()
}

func (im *InputManager) BindMouseButton(button glfw.MouseButton, action Action) {
	if !valid(action) {
		return
	}
	im.mu.Lock()
	im.buttons[button] = append(im.buttons[button], action)
	im.mu.Unlock()
}

// transition applies one press or release to every action in actions.
func (im *InputManager) transition(actions []Action, down bool) {
	for _, a := range actions {
		switch {
		case down:
			if im.held[a] == 0 {
				im.pressed[a] = true
			}
			im.held[a]++
		case im.held[a] > 0:
			im.held[a]--
			if im.held[a] == 0 {
				im.released[a] = true
			}
		}
	}
}

// HandleKeyEvent processes a glfw key event. Repeats are ignored.
func (im *InputManager) HandleKeyEvent(key glfw.Key, action glfw.Action) {
	if action == glfw.Repeat {
		return
	}
	im.mu.Lock()
	defer im.mu.Unlock()
	if actions, ok := im.keys[key]; ok {
		im.transition(actions, action == glfw.Press)
	}
}

func (im *InputManager) HandleMouseButtonEvent(button glfw.MouseButton, action glfw.Action) {
	im.mu.Lock()
	defer im.mu.Unlock()
	if actions, ok := im.buttons[button]; ok {
		im.transition(actions, action == glfw.Press)
	}
}

// HandleScroll adds a vertical scroll offset to the current frame
func (im *InputManager) HandleScroll(yoff float64) {
	im.mu.Lock()
	im.scrollY += yoff
	im.mu.Unlock()
}

// SetKeyCallback routes the window's key events to im.
func (im *InputManager) SetKeyCallback(window *glfw.Window) {
	window.SetKeyCallback(func(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
		im.HandleKeyEvent(key, action)
	})
}

func (im *InputManager) SetMouseButtonCallback(window *glfw.Window) {
	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		im.HandleMouseButtonEvent(button, action)
	})
}

func (im *InputManager) SetScrollCallback(window *glfw.Window) {
	window.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		im.HandleScroll(yoff)
	})
}

// ScrollDelta returns the vertical scroll of the current frame
func (im *InputManager) ScrollDelta() float64 {
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.scrollY
}

// PostUpdate clears the per-frame edge flags and scroll. Call it once at
// the end of each frame.
func (im *InputManager) PostUpdate() {
	im.mu.Lock()
	defer im.mu.Unlock()
	im.scrollY = 0
	im.pressed = [ActionCount]bool{}
	im.released = [ActionCount]bool{}
}

// ReleaseAll drops every held action, for example when the window loses focus.
func (im *InputManager) ReleaseAll() {
	im.mu.Lock()
	defer im.mu.Unlock()
	for a := range im.held {
		if im.held[a] > 0 {
			im.held[a] = 0
			im.released[a] = true
		}
	}
}

// IsActive returns true if the action is currently being held down
func (im *InputManager) IsActive(action Action) bool {
	if !valid(action) {
		return false
	}
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.held[action] > 0
}

// JustPressed returns true only if the action was pressed in the current frame
func (im *InputManager) JustPressed(action Action) bool {
	if !valid(action) {
		return false
	}
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.pressed[action]
}

// JustReleased returns true only if the action was released in the current frame
func (im *InputManager) JustReleased(action Action) bool {
	if !valid(action) {
		return false
	}
	im.mu.Lock()
	defer im.mu.Unlock()
	return im.released[action]
}
