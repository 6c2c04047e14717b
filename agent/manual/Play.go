package manual

import (
	"fmt"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/samuelfneumann/rollerwall/environment/box2d/rollerwall"
	"gonum.org/v1/gonum/spatial/r3"
)

// cueLength is how long each tone of a Cue is played for
const cueLength = 80 * time.Millisecond

// arenaHalfWidth is half the width of the region of the arena drawn
// on the screen
const arenaHalfWidth = rollerwall.PlatformHalfWidth + 1

var (
	platformStyle = tcell.StyleDefault.Foreground(tcell.ColorGray)
	wallStyle     = tcell.StyleDefault.Foreground(tcell.ColorOrange)
	goalStyle     = tcell.StyleDefault.Foreground(tcell.ColorGreen)
	reachedStyle  = tcell.StyleDefault.Foreground(tcell.ColorDarkGreen)
	agentStyle    = tcell.StyleDefault.Foreground(tcell.ColorPurple).Bold(true)
	statusStyle   = tcell.StyleDefault.Foreground(tcell.ColorWhite)
)

// Game lets a person play RollerWall in a terminal with a Manual
// agent. The environment is stepped at a fixed rate whether or not
// keys are pressed.
type Game struct {
	screen tcell.Screen
	env    *rollerwall.RollerWall
	agent  *Manual
	cue    *Cue

	episodes int
	status   string
}

// NewGame returns a new Game which draws to screen. The screen must
// already be initialised. The cue may be nil for a silent game.
func NewGame(screen tcell.Screen, env *rollerwall.RollerWall, agent *Manual,
	cue *Cue) *Game {
	return &Game{
		screen: screen,
		env:    env,
		agent:  agent,
		cue:    cue,
		status: "arrows/WASD: roll  space: jump  esc: quit",
	}
}

// Run runs the game until Esc or Ctrl-C is pressed, taking one
// environment step every tick
func (g *Game) Run(tick time.Duration) error {
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	eventChan := make(chan tcell.Event, 100)
	go func() {
		for {
			ev := g.screen.PollEvent()
			if ev == nil {
				return
			}
			eventChan <- ev
		}
	}()

	g.draw()
	for {
		select {
		case ev := <-eventChan:
			if !g.handleEvent(ev) {
				return nil
			}

		case <-ticker.C:
			if err := g.step(); err != nil {
				return fmt.Errorf("run: %w", err)
			}
			g.draw()
		}
	}
}

// handleEvent handles a terminal event and returns false if the game
// should quit
func (g *Game) handleEvent(ev tcell.Event) bool {
	switch ev := ev.(type) {
	case *tcell.EventKey:
		if ev.Key() == tcell.KeyEscape || ev.Key() == tcell.KeyCtrlC {
			return false
		}
		g.agent.HandleKey(ev)

	case *tcell.EventResize:
		g.screen.Sync()
	}
	return true
}

// step takes one environment step with the Manual agent's action and
// starts a new episode when the current one ends
func (g *Game) step() error {
	before := g.env.Agent()
	action := g.agent.SelectAction(g.env.CurrentTimeStep())

	step, done, err := g.env.Step(action)
	if err != nil {
		return fmt.Errorf("step: %w", err)
	}

	after := g.env.Agent()
	if (after.Target1Reached && !before.Target1Reached) ||
		(after.Target2Reached && !before.Target2Reached) {
		g.cue.Play(GoalTone, cueLength)
	}

	if !done {
		return nil
	}

	g.episodes++
	outcome := g.env.Outcome()
	switch outcome {
	case rollerwall.Success:
		g.cue.Play(SuccessTone, 2*cueLength)
	case rollerwall.Fell, rollerwall.HitWall:
		g.cue.Play(FailureTone, 2*cueLength)
	}
	g.status = fmt.Sprintf("episode %v: %v after %v steps, return %.3f",
		g.episodes, outcome, step.Number, g.env.Return())

	g.agent.EndEpisode()
	if _, err := g.env.Reset(); err != nil {
		return fmt.Errorf("step: %w", err)
	}
	return nil
}

// toCell converts horizontal arena coordinates to a screen cell of a
// w by h region, with +z pointing up the screen
func toCell(p r3.Vec, w, h int) (int, int) {
	col := int((p.X + arenaHalfWidth) / (2 * arenaHalfWidth) * float64(w))
	row := int((arenaHalfWidth - p.Z) / (2 * arenaHalfWidth) * float64(h))
	return col, row
}

// toArena converts a screen cell of a w by h region to the arena
// coordinates of its centre
func toArena(col, row, w, h int) r3.Vec {
	return r3.Vec{
		X: (float64(col)+0.5)/float64(w)*2*arenaHalfWidth - arenaHalfWidth,
		Y: rollerwall.RestHeight,
		Z: arenaHalfWidth - (float64(row)+0.5)/float64(h)*2*arenaHalfWidth,
	}
}

// draw draws a top-down view of the arena above a status line
func (g *Game) draw() {
	g.screen.Clear()

	width, height := g.screen.Size()
	h := height - 2
	if h < 1 {
		g.screen.Show()
		return
	}
	// Terminal cells are about twice as tall as they are wide
	w := 2 * h
	if w > width {
		w = width
	}

	for row := 0; row < h; row++ {
		for col := 0; col < w; col++ {
			p := toArena(col, row, w, h)
			switch {
			case rollerwall.Obstacle.Contains(p):
				g.screen.SetContent(col, row, '#', nil, wallStyle)
			case p.X >= -rollerwall.PlatformHalfWidth &&
				p.X <= rollerwall.PlatformHalfWidth &&
				p.Z >= -rollerwall.PlatformHalfWidth &&
				p.Z <= rollerwall.PlatformHalfWidth:
				g.screen.SetContent(col, row, '.', nil, platformStyle)
			}
		}
	}

	for i, goal := range g.env.Goals() {
		col, row := toCell(goal.Position, w, h)
		mark, style := rune('1'+i), goalStyle
		if !goal.Active {
			style = reachedStyle
		}
		g.screen.SetContent(col, row, mark, nil, style)
	}

	agent := g.env.Agent()
	mark := 'o'
	if !agent.Grounded {
		mark = 'O'
	}
	col, row := toCell(agent.Position, w, h)
	g.screen.SetContent(col, row, mark, nil, agentStyle)

	line := fmt.Sprintf("step %v  return %.3f  |  %v",
		g.env.CurrentTimeStep().Number, g.env.Return(), g.status)
	for i, r := range line {
		if i >= width {
			break
		}
		g.screen.SetContent(i, height-1, r, nil, statusStyle)
	}

	g.screen.Show()
}
