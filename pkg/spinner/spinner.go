package spinner

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"
)

type Spinner struct {
	chars    []string
	delay    time.Duration
	message  string
	width    int
	out      io.Writer
	active   bool
	mu       sync.Mutex
	stopChan chan struct{}
	done     chan struct{}
}

// New returns a spinner that draws on stdout.
func New(message string) *Spinner {
	return NewWithWriter(os.Stdout, message)
}

// NewWithWriter returns a spinner that draws on out. Passing io.Discard
// makes every call a no-op on the terminal.
func NewWithWriter(out io.Writer, message string) *Spinner {
	return &Spinner{
		chars:   []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"},
		delay:   100 * time.Millisecond,
		message: message,
		width:   len(message),
		out:     out,
	}
}

func (s *Spinner) Start() {
	s.mu.Lock()
	if s.active {
		s.mu.Unlock()
		return
	}
	s.active = true
	s.stopChan = make(chan struct{})
	s.done = make(chan struct{})
	stop, done := s.stopChan, s.done
	s.mu.Unlock()

	go func() {
		defer close(done)
		ticker := time.NewTicker(s.delay)
		defer ticker.Stop()

		i := 0
		for {
			s.mu.Lock()
			fmt.Fprintf(s.out, "\r%s %-*s", s.chars[i%len(s.chars)], s.width, s.message)
			s.mu.Unlock()
			i++

			select {
			case <-stop:
				return
			case <-ticker.C:
			}
		}
	}()
}

// Stop halts the animation and clears the spinner line. It returns once the
// drawing goroutine has exited.
func (s *Spinner) Stop() {
	s.mu.Lock()
	if !s.active {
		s.mu.Unlock()
		return
	}
	s.active = false
	close(s.stopChan)
	done := s.done
	s.mu.Unlock()

	<-done

	s.mu.Lock()
	fmt.Fprint(s.out, "\r"+strings.Repeat(" ", s.width+10)+"\r")
	s.mu.Unlock()
}

func (s *Spinner) Update(message string) {
	s.mu.Lock()
	s.message = message
	s.width = max(s.width, len(message))
	s.mu.Unlock()
}

func (s *Spinner) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}
