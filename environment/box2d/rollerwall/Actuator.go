package rollerwall

import (
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	// Default actuation strengths
	ForceMultiplier float64 = 10.0
	JumpForce       float64 = 5.0

	// JumpThreshold is the value the jump component of an action must
	// exceed to request a jump
	JumpThreshold float64 = 0.5
)

// Actuator turns actions into forces on the agent's body.
//
// Actions are [x, z, jump]. The first two components scale a planar
// force of ForceMultiplier. If the jump component exceeds
// JumpThreshold and the agent is grounded, an upward impulse of
// JumpForce is applied and the agent stops being grounded until a
// contact grounds it again. A 2-dimensional action never jumps.
type Actuator struct {
	forceMultiplier float64
	jumpForce       float64
}

// NewActuator returns a new Actuator
func NewActuator(forceMultiplier, jumpForce float64) Actuator {
	return Actuator{forceMultiplier, jumpForce}
}

// Apply applies action a to body and returns whether the agent jumped
func (act Actuator) Apply(a mat.Vector, agent *AgentState, body Body) bool {
	force := r3.Vec{
		X: a.AtVec(0) * act.forceMultiplier,
		Z: a.AtVec(1) * act.forceMultiplier,
	}
	body.ApplyForce(force)

	jump := 0.0
	if a.Len() > 2 {
		jump = a.AtVec(2)
	}

	if jump > JumpThreshold && agent.Grounded {
		body.ApplyImpulse(r3.Vec{Y: act.jumpForce})
		agent.Grounded = false
		return true
	}
	return false
}
