package manual

import (
	"testing"

	"github.com/gdamore/tcell/v2"
	"github.com/samuelfneumann/rollerwall/timestep"
	"gonum.org/v1/gonum/mat"
)

func TestHeuristic(t *testing.T) {
	tests := []struct {
		keys Keys
		want []float64
	}{
		{Keys{}, []float64{0, 0, 0}},
		{Keys{Right: true}, []float64{1, 0, 0}},
		{Keys{Left: true, Up: true}, []float64{-1, 1, 0}},
		{Keys{Left: true, Right: true}, []float64{0, 0, 0}},
		{Keys{Down: true, Jump: true}, []float64{0, -1, 1}},
		{Keys{Up: true, Down: true, Jump: true}, []float64{0, 0, 1}},
	}

	for _, test := range tests {
		have := Heuristic(test.keys)
		want := mat.NewVecDense(3, test.want)
		if !mat.Equal(have, want) {
			t.Errorf("Heuristic(%+v) \n\twant(%v) \n\thave(%v)", test.keys,
				test.want, have.RawVector().Data)
		}
	}
}

func key(k tcell.Key) *tcell.EventKey {
	return tcell.NewEventKey(k, 0, tcell.ModNone)
}

func char(r rune) *tcell.EventKey {
	return tcell.NewEventKey(tcell.KeyRune, r, tcell.ModNone)
}

func TestHandleKey(t *testing.T) {
	tests := []struct {
		event *tcell.EventKey
		want  Keys
	}{
		{key(tcell.KeyLeft), Keys{Left: true}},
		{char('d'), Keys{Right: true}},
		{char('W'), Keys{Up: true}},
		{key(tcell.KeyDown), Keys{Down: true}},
		{char(' '), Keys{Jump: true}},
	}

	for _, test := range tests {
		m := New()
		if !m.HandleKey(test.event) {
			t.Errorf("%v: key should be handled", test.event.Name())
		}
		if have := m.Keys(); have != test.want {
			t.Errorf("%v: keys \n\twant(%+v) \n\thave(%+v)",
				test.event.Name(), test.want, have)
		}
	}

	m := New()
	if m.HandleKey(char('x')) || m.HandleKey(key(tcell.KeyEnter)) {
		t.Error("keys which do not control the agent should not be handled")
	}
	if m.Keys() != (Keys{}) {
		t.Errorf("unhandled keys changed held keys: %+v", m.Keys())
	}
}

func TestOppositeKeyReleases(t *testing.T) {
	m := New()
	m.HandleKey(key(tcell.KeyLeft))
	m.HandleKey(key(tcell.KeyUp))
	m.HandleKey(key(tcell.KeyRight))

	if want := (Keys{Right: true, Up: true}); m.Keys() != want {
		t.Errorf("keys \n\twant(%+v) \n\thave(%+v)", want, m.Keys())
	}
}

func TestKeyHold(t *testing.T) {
	m := New()
	m.HandleKey(key(tcell.KeyUp))
	m.HandleKey(char(' '))

	var step timestep.TimeStep
	first := m.SelectAction(step)
	if first.AtVec(1) != 1 || first.AtVec(2) != 1 {
		t.Errorf("first action \n\twant([0 1 1]) \n\thave(%v)",
			first.RawVector().Data)
	}

	for i := 1; i < KeyHold; i++ {
		a := m.SelectAction(step)
		if a.AtVec(1) != 1 {
			t.Fatalf("action %v: key released early", i)
		}
		if a.AtVec(2) != 0 {
			t.Fatalf("action %v: jump should last a single action", i)
		}
	}

	if a := m.SelectAction(step); a.AtVec(1) != 0 {
		t.Errorf("key held for more than %v actions", KeyHold)
	}
}

func TestEndEpisodeReleasesKeys(t *testing.T) {
	m := New()
	m.HandleKey(key(tcell.KeyLeft))
	m.HandleKey(char(' '))
	m.EndEpisode()

	if m.Keys() != (Keys{}) {
		t.Errorf("keys after episode end \n\twant(%+v) \n\thave(%+v)",
			Keys{}, m.Keys())
	}
}

func TestSilentCue(t *testing.T) {
	var c *Cue
	if c.Enabled() {
		t.Error("nil cue should be silent")
	}
	c.Play(GoalTone, cueLength)
	c.Close()

	c = &Cue{}
	c.Play(GoalTone, cueLength)
	c.Close()
}
