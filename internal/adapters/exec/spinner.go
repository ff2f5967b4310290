package exec

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"golang.org/x/term"
)

const (
	spinnerFrames   = `|/-\`
	spinnerInterval = 100 * time.Millisecond
)

// Spinner is the liveness indicator shown while a long running call is busy.
// It carries no data, Stop joins the animation goroutine before returning so nothing is
// printed after the caller moved on.
type Spinner struct {
	out     io.Writer
	message string
	animate bool

	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewSpinner prepares an indicator writing to out. The animation only runs on a terminal,
// anywhere else a single line is printed.
func NewSpinner(out io.Writer, message string) *Spinner {
	return &Spinner{
		out:     out,
		message: message,
		animate: isTerminal(out),
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Start launches the animation. Always pair it with a deferred Stop
func (s *Spinner) Start() *Spinner {
	if !s.animate {
		fmt.Fprintf(s.out, "%s...\n", s.message)
		close(s.done)
		return s
	}
	go s.run()
	return s
}

func (s *Spinner) run() {
	defer close(s.done)
	ticker := time.NewTicker(spinnerInterval)
	defer ticker.Stop()
	for i := 0; ; i++ {
		fmt.Fprintf(s.out, "\r%c %s...", spinnerFrames[i%len(spinnerFrames)], s.message)
		select {
		case <-s.stop:
			fmt.Fprint(s.out, "\r"+strings.Repeat(" ", len(s.message)+6)+"\r")
			return
		case <-ticker.C:
		}
	}
}

// Stop halts the animation and waits for it. Calling it more than once is fine
func (s *Spinner) Stop() {
	s.once.Do(func() { close(s.stop) })
	<-s.done
}
