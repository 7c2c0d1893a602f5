package formatter

import (
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
)

// lineSpinner shares its frames with the TUI map view.
var lineSpinner = spinner.MiniDot

// Spinner keeps a status line moving on w while a line-mode request runs.
type Spinner struct {
	w     io.Writer
	label string
	tick  time.Duration

	started atomic.Bool
	once    sync.Once
	quit    chan struct{}
	exited  chan struct{}
}

func NewSpinner(w io.Writer, label string) *Spinner {
	return &Spinner{
		w:      w,
		label:  label,
		tick:   lineSpinner.FPS,
		quit:   make(chan struct{}),
		exited: make(chan struct{}),
	}
}

// Start launches the animation goroutine. Only the first call has effect.
func (s *Spinner) Start() {
	if s.started.CompareAndSwap(false, true) {
		go s.run()
	}
}

func (s *Spinner) run() {
	defer close(s.exited)
	t := time.NewTicker(s.tick)
	defer t.Stop()

	frames := lineSpinner.Frames
	for n := 0; ; n++ {
		select {
		case <-s.quit:
			io.WriteString(s.w, "\r\033[K")
			return
		case <-t.C:
			fmt.Fprintf(s.w, "\r  %s %s", StylePurple.Render(frames[n%len(frames)]), Dim(s.label))
		}
	}
}

// Stop erases the line and returns once the goroutine is gone.
// It may be called more than once, and before Start.
func (s *Spinner) Stop() {
	s.once.Do(func() {
		close(s.quit)
		if s.started.Load() {
			<-s.exited
		}
	})
}

// StartSpinner starts a Spinner and hands back its Stop.
func StartSpinner(w io.Writer, label string) func() {
	s := NewSpinner(w, label)
	s.Start()
	return s.Stop
}
