package rollerwall

import "gonum.org/v1/gonum/spatial/r3"

const (
	// GroundNormalY is the vertical component a contact normal must
	// exceed for the contact surface to count as floor
	GroundNormalY float64 = 0.5
)

// Contact is a contact event between the agent and another body.
// Normal points from the other body towards the agent.
type Contact struct {
	Other  string
	Tag    string
	Normal r3.Vec
}

// Classify applies contact events to the agent and episode context.
// Contacts with the wall set ctx.ResetOnNextEpisode and make Classify
// return true, which ends the episode as a failure. Contacts with the
// ground, or with any surface whose normal is mostly upward, ground
// the agent. Every event is checked against both rules.
func Classify(events []Contact, ctx *EpisodeContext,
	agent *AgentState) (hitWall bool) {
	for _, c := range events {
		if c.Other == WallName {
			ctx.ResetOnNextEpisode = true
			hitWall = true
		}

		if c.Tag == GroundTag || c.Normal.Y > GroundNormalY {
			agent.Grounded = true
		}
	}
	return hitWall
}
