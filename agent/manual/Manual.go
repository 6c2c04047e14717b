// Package manual implements an agent controlled from the keyboard.
// Arrow keys or WASD steer the agent and space requests a jump.
package manual

import (
	"sync"

	"github.com/gdamore/tcell/v2"
	"github.com/samuelfneumann/rollerwall/timestep"
	"gonum.org/v1/gonum/mat"
)

// KeyHold is the number of actions a key press lasts for. Terminals
// report key presses but not key releases, so a pressed key is held
// down for KeyHold actions or until the opposite key is pressed.
const KeyHold int = 8

// Keys is the set of keys held down at some point in time
type Keys struct {
	Left, Right bool
	Up, Down    bool
	Jump        bool
}

// Heuristic maps held keys to an action. The first action coordinate
// is the horizontal axis (right positive), the second is the vertical
// axis (up positive), and the third is 1 if a jump is requested and 0
// otherwise.
func Heuristic(k Keys) *mat.VecDense {
	action := mat.NewVecDense(3, nil)

	switch {
	case k.Right && !k.Left:
		action.SetVec(0, 1)
	case k.Left && !k.Right:
		action.SetVec(0, -1)
	}

	switch {
	case k.Up && !k.Down:
		action.SetVec(1, 1)
	case k.Down && !k.Up:
		action.SetVec(1, -1)
	}

	if k.Jump {
		action.SetVec(2, 1)
	}
	return action
}

// Manual is an agent whose actions come from key presses. Key presses
// may be sent from a different goroutine than the one selecting
// actions. Manual does not learn, so its Learner methods do nothing.
type Manual struct {
	mu   sync.Mutex
	hold map[tcell.Key]int
	jump int
	eval bool
}

// New returns a new Manual agent with no keys held
func New() *Manual {
	return &Manual{hold: make(map[tcell.Key]int)}
}

// HandleKey records a key press. It returns false if the key is not a
// control of the agent.
func (m *Manual) HandleKey(ev *tcell.EventKey) bool {
	key := ev.Key()
	if key == tcell.KeyRune {
		switch ev.Rune() {
		case 'a', 'A':
			key = tcell.KeyLeft
		case 'd', 'D':
			key = tcell.KeyRight
		case 'w', 'W':
			key = tcell.KeyUp
		case 's', 'S':
			key = tcell.KeyDown
		case ' ':
			m.mu.Lock()
			m.jump = 1
			m.mu.Unlock()
			return true
		default:
			return false
		}
	}

	var opposite tcell.Key
	switch key {
	case tcell.KeyLeft:
		opposite = tcell.KeyRight
	case tcell.KeyRight:
		opposite = tcell.KeyLeft
	case tcell.KeyUp:
		opposite = tcell.KeyDown
	case tcell.KeyDown:
		opposite = tcell.KeyUp
	default:
		return false
	}

	m.mu.Lock()
	m.hold[key] = KeyHold
	delete(m.hold, opposite)
	m.mu.Unlock()
	return true
}

// Keys returns the keys which are currently held
func (m *Manual) Keys() Keys {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.keys()
}

func (m *Manual) keys() Keys {
	return Keys{
		Left:  m.hold[tcell.KeyLeft] > 0,
		Right: m.hold[tcell.KeyRight] > 0,
		Up:    m.hold[tcell.KeyUp] > 0,
		Down:  m.hold[tcell.KeyDown] > 0,
		Jump:  m.jump > 0,
	}
}

// SelectAction returns the action of the currently held keys and
// releases keys whose hold has run out. A jump request lasts for a
// single action.
func (m *Manual) SelectAction(_ timestep.TimeStep) *mat.VecDense {
	m.mu.Lock()
	defer m.mu.Unlock()

	action := Heuristic(m.keys())

	for key, n := range m.hold {
		if n <= 1 {
			delete(m.hold, key)
		} else {
			m.hold[key] = n - 1
		}
	}
	m.jump = 0

	return action
}

// Eval sets the agent to evaluation mode
func (m *Manual) Eval() { m.eval = true }

// Train sets the agent to training mode
func (m *Manual) Train() { m.eval = false }

// IsEval returns whether the agent is in evaluation mode
func (m *Manual) IsEval() bool { return m.eval }

// Step performs no update
func (m *Manual) Step() error { return nil }

// Observe ignores the transition
func (m *Manual) Observe(mat.Vector, timestep.TimeStep) error { return nil }

// ObserveFirst ignores the first timestep of an episode
func (m *Manual) ObserveFirst(timestep.TimeStep) error { return nil }

// EndEpisode releases all held keys
func (m *Manual) EndEpisode() {
	m.mu.Lock()
	m.hold = make(map[tcell.Key]int)
	m.jump = 0
	m.mu.Unlock()
}
