package rollerwall

import (
	"math"

	"github.com/ByteArena/box2d"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	FPS     float64 = 50
	Gravity float64 = 9.81

	// AgentMass is the mass of the agent's body; the circle fixture
	// density is chosen so that box2d agrees with it
	AgentMass     float64 = 1.0
	LinearDamping float64 = 0.05

	velocityIterations int = 6
	positionIterations int = 2
)

// Body is the dynamic body of the agent in a physics simulation.
// Positions and velocities are in the arena frame, with y pointing up.
type Body interface {
	ApplyForce(f r3.Vec)
	ApplyImpulse(j r3.Vec)

	Position() r3.Vec
	SetPosition(p r3.Vec)
	Velocity() r3.Vec
	AngularVelocity() r3.Vec
	SetVelocity(linear, angular r3.Vec)

	// Advance integrates the simulation over one decision step and
	// returns the contact events which occurred, in order
	Advance() []Contact
}

// contactDetector records the agent touching the wall
type contactDetector struct {
	p *arenaPhysics
}

func newContactDetector(p *arenaPhysics) *contactDetector {
	return &contactDetector{p}
}

func (c *contactDetector) BeginContact(contact box2d.B2ContactInterface) {
	bodyA := contact.GetFixtureA().GetBody()
	bodyB := contact.GetFixtureB().GetBody()

	var other *box2d.B2Body
	switch c.p.agent {
	case bodyA:
		other = bodyB
	case bodyB:
		other = bodyA
	default:
		return
	}

	if other == c.p.wall {
		c.p.record(Contact{Other: WallName, Normal: c.p.wallNormal()})
	}
}

func (c *contactDetector) EndContact(contact box2d.B2ContactInterface) {}

func (c *contactDetector) PreSolve(contact box2d.B2ContactInterface,
	oldManifold box2d.B2Manifold) {
}

func (c *contactDetector) PostSolve(contact box2d.B2ContactInterface,
	impulse *box2d.B2ContactImpulse) {
}

// arenaPhysics simulates the agent in the RollerWall arena. Motion in
// the horizontal plane, including collisions with the wall, is
// simulated by Box2D with the Box2D y axis as the arena z axis. The
// vertical axis is integrated separately: the agent rests on the
// platform at RestHeight and falls under gravity once it jumps or
// rolls off the platform edge.
type arenaPhysics struct {
	world box2d.B2World
	agent *box2d.B2Body
	wall  *box2d.B2Body

	y, vy   float64
	resting bool

	force    r3.Vec
	dt       float64
	substeps int

	contacts []Contact
}

// NewBody returns a new Box2D backed Body resting at spawn. Each call
// to Advance integrates substeps ticks of 1/FPS seconds.
func NewBody(spawn r3.Vec, substeps int) Body {
	if substeps < 1 {
		substeps = 1
	}

	p := &arenaPhysics{
		world:    box2d.MakeB2World(box2d.MakeB2Vec2(0, 0)),
		dt:       1.0 / FPS,
		substeps: substeps,
	}
	p.world.SetContactListener(newContactDetector(p))

	// Wall
	wallDef := box2d.MakeB2BodyDef()
	wallDef.Type = 0 // Static body
	wallDef.Position = box2d.MakeB2Vec2((Obstacle.X.Min+Obstacle.X.Max)/2,
		(Obstacle.Z.Min+Obstacle.Z.Max)/2)
	wallDef.UserData = WallName
	p.wall = p.world.CreateBody(&wallDef)

	wallShape := box2d.NewB2PolygonShape()
	wallShape.SetAsBox((Obstacle.X.Max-Obstacle.X.Min)/2,
		(Obstacle.Z.Max-Obstacle.Z.Min)/2)
	wallFix := box2d.MakeB2FixtureDef()
	wallFix.Shape = wallShape
	wallFix.Friction = 0.0
	p.wall.CreateFixtureFromDef(&wallFix)

	// Agent
	agentDef := box2d.MakeB2BodyDef()
	agentDef.Type = 2 // Dynamic body
	agentDef.Position = box2d.MakeB2Vec2(spawn.X, spawn.Z)
	agentDef.LinearDamping = LinearDamping
	agentDef.Bullet = true
	p.agent = p.world.CreateBody(&agentDef)

	agentShape := box2d.NewB2CircleShape()
	agentShape.M_radius = AgentRadius
	agentFix := box2d.MakeB2FixtureDef()
	agentFix.Shape = agentShape
	agentFix.Density = AgentMass / (math.Pi * AgentRadius * AgentRadius)
	agentFix.Friction = 0.0
	agentFix.Restitution = 0.0
	p.agent.CreateFixtureFromDef(&agentFix)

	p.y = spawn.Y
	p.resting = onPlatform(spawn) && spawn.Y <= RestHeight

	return p
}

// record queues a contact event
func (p *arenaPhysics) record(c Contact) {
	p.contacts = append(p.contacts, c)
}

// wallNormal returns the normal of the wall surface closest to the
// agent, pointing towards the agent
func (p *arenaPhysics) wallNormal() r3.Vec {
	pos := p.Position()
	diff := r3.Sub(pos, Obstacle.Closest(pos))
	diff.Y = 0

	if norm := r3.Norm(diff); norm > 0 {
		return r3.Scale(1/norm, diff)
	}

	// Agent centre inside the wall footprint, push out along the
	// shortest axis
	dx := math.Min(pos.X-Obstacle.X.Min, Obstacle.X.Max-pos.X)
	dz := math.Min(pos.Z-Obstacle.Z.Min, Obstacle.Z.Max-pos.Z)
	if dx < dz {
		return r3.Vec{X: math.Copysign(1, pos.X)}
	}
	return r3.Vec{Z: math.Copysign(1, pos.Z)}
}

// ApplyForce applies a continuous force to the agent for the next
// call to Advance
func (p *arenaPhysics) ApplyForce(f r3.Vec) {
	p.force = r3.Add(p.force, f)
}

// ApplyImpulse instantly changes the momentum of the agent
func (p *arenaPhysics) ApplyImpulse(j r3.Vec) {
	v := p.agent.GetLinearVelocity()
	p.agent.SetLinearVelocity(box2d.MakeB2Vec2(v.X+j.X/AgentMass,
		v.Y+j.Z/AgentMass))
	p.vy += j.Y / AgentMass
	if j.Y > 0 {
		p.resting = false
	}
}

// Position returns the position of the agent's centre
func (p *arenaPhysics) Position() r3.Vec {
	pos := p.agent.GetPosition()
	return r3.Vec{X: pos.X, Y: p.y, Z: pos.Y}
}

// SetPosition teleports the agent
func (p *arenaPhysics) SetPosition(pos r3.Vec) {
	p.agent.SetTransform(box2d.MakeB2Vec2(pos.X, pos.Z), 0)
	p.y = pos.Y
	p.resting = onPlatform(pos) && math.Abs(pos.Y-RestHeight) < 1e-9
}

// Velocity returns the linear velocity of the agent
func (p *arenaPhysics) Velocity() r3.Vec {
	v := p.agent.GetLinearVelocity()
	return r3.Vec{X: v.X, Y: p.vy, Z: v.Y}
}

// AngularVelocity returns the angular velocity of the agent. Only
// rotation about the vertical axis is simulated.
func (p *arenaPhysics) AngularVelocity() r3.Vec {
	return r3.Vec{Y: p.agent.GetAngularVelocity()}
}

// SetVelocity sets the linear and angular velocity of the agent
func (p *arenaPhysics) SetVelocity(linear, angular r3.Vec) {
	p.agent.SetLinearVelocity(box2d.MakeB2Vec2(linear.X, linear.Z))
	p.agent.SetAngularVelocity(angular.Y)
	p.vy = linear.Y
	if linear.Y > 0 {
		p.resting = false
	}
}

// Advance integrates the simulation over one decision step
func (p *arenaPhysics) Advance() []Contact {
	for i := 0; i < p.substeps; i++ {
		p.agent.ApplyForceToCenter(box2d.MakeB2Vec2(p.force.X, p.force.Z),
			true)
		p.world.Step(p.dt, velocityIterations, positionIterations)
		p.stepVertical(p.force.Y)
	}
	p.force = r3.Vec{}

	contacts := p.contacts
	p.contacts = nil
	return contacts
}

// stepVertical integrates the vertical axis over one tick
func (p *arenaPhysics) stepVertical(forceY float64) {
	pos := p.Position()
	supported := onPlatform(pos)

	if p.resting && supported && forceY <= Gravity*AgentMass {
		p.vy = 0
		p.y = RestHeight
		return
	}
	p.resting = false

	prevY := p.y
	p.vy += (forceY/AgentMass - Gravity) * p.dt
	p.y += p.vy * p.dt

	// Land only when coming down onto the platform surface from above
	if supported && p.vy <= 0 && p.y <= RestHeight && prevY >= RestHeight {
		p.y = RestHeight
		p.vy = 0
		p.resting = true
		p.record(Contact{
			Other:  GroundTag,
			Tag:    GroundTag,
			Normal: r3.Vec{Y: 1},
		})
	}
}
