package checkpointer

import (
	"fmt"
	"time"
)

// TimeLayout is the layout FileTimer formats save times with
const TimeLayout = "20060102T150405.000000"

// fileTimer names files by the time they are saved at
type fileTimer struct {
	name      string
	extension string
	now       func() time.Time

	last   string
	repeat int
}

// filename returns the name of the file saved at the current time
func (f *fileTimer) filename() string {
	stamp := f.now().Format(TimeLayout)
	if stamp != f.last {
		f.last, f.repeat = stamp, 0
		return fmt.Sprintf("%v-%v%v", f.name, stamp, f.extension)
	}

	f.repeat++
	return fmt.Sprintf("%v-%v-%v%v", f.name, stamp, f.repeat, f.extension)
}

// FileTimer returns a function which appends the current time,
// formatted with TimeLayout, to a filename. Files named in the same
// microsecond get an increasing counter suffix so that no name is
// returned twice.
func FileTimer(filename, extension string) func() string {
	return newFileTimer(filename, extension, time.Now)
}

func newFileTimer(filename, extension string,
	now func() time.Time) func() string {
	timer := fileTimer{name: filename, extension: extension, now: now}
	return timer.filename
}
