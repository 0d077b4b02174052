package assistant

import (
	"bufio"
	"io"
	"strings"
)

// TypedInput reads newline-delimited commands from a reader onto a
// channel, so the CLI can drive the assistant without a microphone.
type TypedInput struct {
	out chan string
}

// NewTypedInput starts reading from r immediately. The returned
// channel closes when r reaches EOF.
func NewTypedInput(r io.Reader) *TypedInput {
	t := &TypedInput{out: make(chan string)}
	go t.readLoop(r)
	return t
}

// Lines returns the channel of typed commands.
func (t *TypedInput) Lines() <-chan string {
	return t.out
}

func (t *TypedInput) readLoop(r io.Reader) {
	defer close(t.out)

	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		t.out <- line
	}
}
