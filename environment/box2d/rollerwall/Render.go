package rollerwall

import (
	"fmt"
	"image/color"

	"github.com/fogleman/gg"
	"gonum.org/v1/gonum/spatial/r3"
)

const (
	ViewportW float64 = 600
	ViewportH float64 = 600

	// Pixels per arena unit
	Scale float64 = ViewportW / (2 * (PlatformHalfWidth + 1))
)

var (
	skyShade      = color.RGBA{R: 30, G: 30, B: 30, A: 255}
	platformShade = color.RGBA{R: 200, G: 200, B: 200, A: 255}
	wallShade     = color.RGBA{R: 255, G: 166, B: 0, A: 255}
	goalColour    = color.RGBA{R: 60, G: 179, B: 113, A: 255}
	reachedColour = color.RGBA{R: 60, G: 179, B: 113, A: 80}
	agentColour1  = color.RGBA{R: 128, G: 102, B: 230, A: 255}
	agentColour2  = color.RGBA{R: 77, G: 77, B: 128, A: 255}
)

// ArenaToPixelCoord converts horizontal arena coordinates to pixel
// coordinates of a top-down view, with +z pointing up the image
func ArenaToPixelCoord(p r3.Vec) [2]float64 {
	pixelX := ViewportW/2 + Scale*p.X
	pixelY := ViewportH/2 - Scale*p.Z

	return [2]float64{pixelX, pixelY}
}

// Render saves a top-down image of the arena to filename as a PNG.
// Active goals are filled, reached goals are faded. The agent is drawn
// larger the higher it is above the platform.
func (r *RollerWall) Render(filename string) error {
	dc := gg.NewContext(int(ViewportW), int(ViewportH))
	dc.SetColor(skyShade)
	dc.Clear()

	// Platform
	corner := ArenaToPixelCoord(r3.Vec{X: -PlatformHalfWidth, Z: PlatformHalfWidth})
	dc.DrawRectangle(corner[0], corner[1], 2*PlatformHalfWidth*Scale,
		2*PlatformHalfWidth*Scale)
	dc.SetColor(platformShade)
	dc.Fill()

	// Wall
	corner = ArenaToPixelCoord(r3.Vec{X: Obstacle.X.Min, Z: Obstacle.Z.Max})
	dc.DrawRectangle(corner[0], corner[1],
		(Obstacle.X.Max-Obstacle.X.Min)*Scale,
		(Obstacle.Z.Max-Obstacle.Z.Min)*Scale)
	dc.SetColor(wallShade)
	dc.Fill()

	// Goals
	for _, goal := range r.goals {
		centre := ArenaToPixelCoord(goal.Position)
		half := GoalRenderWidth * Scale / 2
		dc.DrawRectangle(centre[0]-half, centre[1]-half, 2*half, 2*half)
		if goal.Active {
			dc.SetColor(goalColour)
		} else {
			dc.SetColor(reachedColour)
		}
		dc.Fill()
	}

	// Agent, scaled with its height above the platform
	centre := ArenaToPixelCoord(r.agent.Position)
	radius := AgentRadius * Scale * (r.agent.Position.Y / RestHeight)
	if radius < 1 {
		radius = 1
	}
	dc.DrawCircle(centre[0], centre[1], radius)
	if r.agent.Grounded {
		dc.SetColor(agentColour1)
	} else {
		dc.SetColor(agentColour2)
	}
	dc.Fill()

	if err := dc.SavePNG(filename); err != nil {
		return fmt.Errorf("render: could not save %v: %v", filename, err)
	}
	return nil
}
