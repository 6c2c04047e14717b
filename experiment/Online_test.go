package experiment

import (
	"bytes"
	"log"
	"os"
	"path/filepath"
	"testing"

	"github.com/samuelfneumann/rollerwall/agent/random"
	"github.com/samuelfneumann/rollerwall/environment/envconfig"
	"github.com/samuelfneumann/rollerwall/experiment/checkpointer"
	"github.com/samuelfneumann/rollerwall/experiment/tracker"
	"github.com/samuelfneumann/rollerwall/experiment/trackers"
	"github.com/samuelfneumann/rollerwall/utils/progressbar"
)

func TestOnline(t *testing.T) {
	dir := t.TempDir()

	c := envconfig.Default()
	c.MaxSteps = 20
	c.Seed = 7
	env, _, err := c.Create(log.New(&bytes.Buffer{}, "", 0))
	if err != nil {
		t.Fatal(err)
	}
	a, err := random.New(env, 7)
	if err != nil {
		t.Fatal(err)
	}

	returns := trackers.NewReturn(filepath.Join(dir, "returns.bin"))
	lengths := trackers.NewEpisodeLength(filepath.Join(dir, "lengths.bin"))
	snapshots, err := checkpointer.NewNStep(50,
		checkpointer.SaverFunc(env.Render),
		checkpointer.FilenameEnumerator(0, filepath.Join(dir, "arena"),
			".png"))
	if err != nil {
		t.Fatal(err)
	}

	var out bytes.Buffer
	exp := NewOnline(env, a, 100, []tracker.Tracker{returns},
		[]checkpointer.Checkpointer{snapshots})
	exp.Register(lengths)
	exp.SetProgressBar(progressbar.NewManualProgressBar(&out, 20, 100))

	if err := exp.Run(); err != nil {
		t.Fatal(err)
	}
	if err := exp.Save(); err != nil {
		t.Fatal(err)
	}

	if exp.Steps() != 100 {
		t.Errorf("steps \n\twant(100) \n\thave(%v)", exp.Steps())
	}
	if exp.Episodes() < 5 {
		t.Errorf("episodes of at most 20 steps \n\twant(>= 5) \n\thave(%v)",
			exp.Episodes())
	}

	savedReturns, err := tracker.LoadData(filepath.Join(dir, "returns.bin"))
	if err != nil {
		t.Fatal(err)
	}
	savedLengths, err := tracker.LoadLengths(filepath.Join(dir,
		"lengths.bin"))
	if err != nil {
		t.Fatal(err)
	}
	if len(savedReturns) != exp.Episodes() ||
		len(savedLengths) != exp.Episodes() {
		t.Errorf("tracked episodes \n\twant(%v) \n\thave(%v, %v)",
			exp.Episodes(), len(savedReturns), len(savedLengths))
	}

	total := 0
	for _, l := range savedLengths {
		if l < 1 || l > 20 {
			t.Errorf("episode length %v outside [1, 20]", l)
		}
		total += l
	}
	if total > 100 {
		t.Errorf("episode lengths sum to more than the step limit: %v",
			total)
	}

	for _, name := range []string{"arena1.png", "arena2.png"} {
		if _, err := os.Stat(filepath.Join(dir, name)); err != nil {
			t.Errorf("snapshot %v not saved: %v", name, err)
		}
	}

	if out.Len() == 0 {
		t.Error("progress bar never displayed")
	}
}

func TestCreateExp(t *testing.T) {
	c := Config{
		Type:     OnlineExp,
		Agent:    Random,
		MaxSteps: 10,
		EnvConf:  envconfig.Default(),
	}
	logger := log.New(&bytes.Buffer{}, "", 0)

	exp, env, err := c.CreateExp(logger, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if env == nil {
		t.Fatal("environment should be returned with the experiment")
	}
	if err := exp.Run(); err != nil {
		t.Fatal(err)
	}

	bad := c
	bad.Agent = "Sarsa"
	if _, _, err := bad.CreateExp(logger, nil, nil); err == nil {
		t.Error("expected error for unknown agent type")
	}

	bad = c
	bad.Type = "Offline"
	if _, _, err := bad.CreateExp(logger, nil, nil); err == nil {
		t.Error("expected error for unknown experiment type")
	}
}
