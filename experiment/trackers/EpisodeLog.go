package trackers

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/klauspost/compress/zstd"
	"github.com/samuelfneumann/rollerwall/environment/box2d/rollerwall"
	ts "github.com/samuelfneumann/rollerwall/timestep"
)

// EpisodeRecord is a single line of an episode log
type EpisodeRecord struct {
	RunID   string    `json:"run_id"`
	Episode int       `json:"episode"`
	Time    time.Time `json:"time"`

	Steps   int     `json:"steps"`
	Return  float64 `json:"return"`
	Outcome string  `json:"outcome"`
	EndType string  `json:"end_type"`

	GoalsReached int           `json:"goals_reached"`
	Goals        [2][3]float64 `json:"goals"`
	Quality      string        `json:"placement_quality"`
	Resampled    bool          `json:"resampled"`
	Teleported   bool          `json:"teleported"`
	Separation   float64       `json:"separation"`
}

// ErrWriterClosed is returned by writes to a closed JSONLZstdWriter
var ErrWriterClosed = errors.New("jsonl writer is closed")

// JSONLZstdWriter writes values as zstd compressed JSON lines to a
// single file. It is safe for concurrent use.
type JSONLZstdWriter struct {
	path string

	mu  sync.Mutex
	f   *os.File
	enc *zstd.Encoder
	w   *bufio.Writer

	closed bool
}

// NewJSONLZstdWriter returns a writer to path. The file and its
// directory are created on the first Write.
func NewJSONLZstdWriter(path string) *JSONLZstdWriter {
	return &JSONLZstdWriter{path: path}
}

// Path returns the path of the file being written
func (w *JSONLZstdWriter) Path() string {
	return w.path
}

// Write writes v as a single JSON line. Writing after Close returns
// ErrWriterClosed and leaves the file untouched.
func (w *JSONLZstdWriter) Write(v any) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.closed {
		return ErrWriterClosed
	}

	if w.w == nil {
		if err := w.openLocked(); err != nil {
			return err
		}
	}

	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	if _, err := w.w.Write(b); err != nil {
		return err
	}
	return w.w.WriteByte('\n')
}

// Close flushes all written lines and closes the file. Closing a
// closed writer does nothing.
func (w *JSONLZstdWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.closed = true
	return w.closeLocked()
}

func (w *JSONLZstdWriter) openLocked() error {
	if err := os.MkdirAll(filepath.Dir(w.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(w.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return err
	}
	w.f = f
	w.enc = enc
	w.w = bufio.NewWriterSize(enc, 128*1024)
	return nil
}

func (w *JSONLZstdWriter) closeLocked() error {
	var err error
	if w.w != nil {
		err = w.w.Flush()
	}
	if w.enc != nil {
		if cerr := w.enc.Close(); err == nil {
			err = cerr
		}
		w.enc = nil
	}
	if w.f != nil {
		if cerr := w.f.Close(); err == nil {
			err = cerr
		}
		w.f = nil
	}
	w.w = nil
	return err
}

// EpisodeLog tracks each finished episode of a RollerWall environment
// and streams a record of it to a zstd compressed JSON lines file
// named episodes-<run id>.jsonl.zst. Unlike the other Trackers,
// records are written as episodes finish, and Save only flushes and
// closes the file.
type EpisodeLog struct {
	env   *rollerwall.RollerWall
	runID string
	w     *JSONLZstdWriter

	episode int
	ret     float64
	err     error
}

// NewEpisodeLog returns a new EpisodeLog which writes records of the
// episodes of env to a new file in dir
func NewEpisodeLog(env *rollerwall.RollerWall, dir string) *EpisodeLog {
	runID := uuid.New().String()
	path := filepath.Join(dir, fmt.Sprintf("episodes-%s.jsonl.zst", runID))

	return &EpisodeLog{
		env:   env,
		runID: runID,
		w:     NewJSONLZstdWriter(path),
	}
}

// RunID returns the identifier of the run written in every record
func (e *EpisodeLog) RunID() string {
	return e.runID
}

// Path returns the path of the log file
func (e *EpisodeLog) Path() string {
	return e.w.Path()
}

// Track accumulates the return of the current episode and writes a
// record when the episode ends. Write errors are kept and returned by
// Save.
func (e *EpisodeLog) Track(step ts.TimeStep) {
	if step.First() {
		e.ret = 0
	}
	e.ret += step.Reward

	if !step.Last() {
		return
	}

	agent := e.env.Agent()
	goals := e.env.Goals()
	placement := e.env.Placement()

	reached := 0
	for _, r := range []bool{agent.Target1Reached, agent.Target2Reached} {
		if r {
			reached++
		}
	}

	record := EpisodeRecord{
		RunID:        e.runID,
		Episode:      e.episode,
		Time:         time.Now().UTC(),
		Steps:        step.Number,
		Return:       e.ret,
		Outcome:      e.env.Outcome().String(),
		EndType:      step.EndType().String(),
		GoalsReached: reached,
		Quality:      placement.Quality.String(),
		Resampled:    placement.Resampled,
		Teleported:   placement.Teleported,
		Separation:   placement.Separation,
	}
	for i, g := range goals {
		record.Goals[i] = [3]float64{g.Position.X, g.Position.Y, g.Position.Z}
	}

	e.episode++
	e.ret = 0
	if err := e.w.Write(record); err != nil && e.err == nil {
		e.err = fmt.Errorf("track: could not write episode record: %w", err)
	}
}

// Save flushes and closes the log file
func (e *EpisodeLog) Save() error {
	if err := e.w.Close(); err != nil {
		return fmt.Errorf("save: %w", err)
	}
	return e.err
}

// ReadEpisodeLog reads all records from an episode log file
func ReadEpisodeLog(path string) ([]EpisodeRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("readEpisodeLog: %w", err)
	}
	defer f.Close()

	dec, err := zstd.NewReader(f)
	if err != nil {
		return nil, fmt.Errorf("readEpisodeLog: %w", err)
	}
	defer dec.Close()

	return decodeRecords(dec)
}

func decodeRecords(r io.Reader) ([]EpisodeRecord, error) {
	var records []EpisodeRecord
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)

	for scanner.Scan() {
		var record EpisodeRecord
		if err := json.Unmarshal(scanner.Bytes(), &record); err != nil {
			return nil, fmt.Errorf("readEpisodeLog: %w", err)
		}
		records = append(records, record)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("readEpisodeLog: %w", err)
	}
	return records, nil
}
