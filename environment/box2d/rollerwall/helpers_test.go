package rollerwall

import (
	"bytes"
	"log"

	"gonum.org/v1/gonum/spatial/r3"
)

// fakeBody is a Body whose motion is scripted by tests
type fakeBody struct {
	position r3.Vec
	velocity r3.Vec
	angular  r3.Vec

	forces   []r3.Vec
	impulses []r3.Vec

	// next, if set, is where the body moves on the next Advance
	next *r3.Vec

	// contacts are returned by the next Advance
	contacts []Contact
	advances int
}

func newFakeBody(position r3.Vec) *fakeBody {
	return &fakeBody{position: position}
}

func (f *fakeBody) ApplyForce(force r3.Vec) { f.forces = append(f.forces, force) }

func (f *fakeBody) ApplyImpulse(j r3.Vec) { f.impulses = append(f.impulses, j) }

func (f *fakeBody) Position() r3.Vec { return f.position }

func (f *fakeBody) SetPosition(p r3.Vec) { f.position = p }

func (f *fakeBody) Velocity() r3.Vec { return f.velocity }

func (f *fakeBody) AngularVelocity() r3.Vec { return f.angular }

func (f *fakeBody) SetVelocity(linear, angular r3.Vec) {
	f.velocity = linear
	f.angular = angular
}

func (f *fakeBody) Advance() []Contact {
	f.advances++
	if f.next != nil {
		f.position = *f.next
		f.next = nil
	}
	contacts := f.contacts
	f.contacts = nil
	return contacts
}

// moveTo scripts the body to move to p on the next Advance
func (f *fakeBody) moveTo(p r3.Vec) {
	f.next = &p
}

// newTestLogger returns a logger writing into the returned buffer
func newTestLogger() (*log.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return log.New(&buf, "", 0), &buf
}

// newTestEnv returns a RollerWall driven by a fakeBody resting at the
// spawn point
func newTestEnv(cutoff int, seed uint64) (*RollerWall, *fakeBody,
	*bytes.Buffer) {
	logger, buf := newTestLogger()
	params := DefaultParams()
	params.Logger = logger

	body := newFakeBody(SpawnPosition)
	task := NewTouchGoals(NewSpawnStarter(seed), cutoff, ReachDistance)
	env, _, err := NewWithBody(task, body, 0.99, seed, params)
	if err != nil {
		panic(err)
	}
	return env, body, buf
}
