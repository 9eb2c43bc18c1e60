package chat

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
)

type line struct {
	text string
	err  error
}

// LineReader reads input lines, of any length, without blocking the caller
// past ctx. A single pump goroutine owns the reader; it exits at end of
// input or after Close. A read blocked on an idle terminal cannot be
// interrupted, so in that case the goroutine lives until the process exits.
type LineReader struct {
	out   io.Writer
	lines chan line
	stop  chan struct{}
	done  bool
}

// NewLineReader starts reading in.
func NewLineReader(in io.Reader, out io.Writer) *LineReader {
	r := &LineReader{out: out, lines: make(chan line), stop: make(chan struct{})}
	go r.pump(in)
	return r
}

func (r *LineReader) pump(in io.Reader) {
	br := bufio.NewReader(in)
	defer close(r.lines)
	for {
		text, err := br.ReadString('\n')
		if text != "" && (err == nil || err == io.EOF) {
			if !r.send(line{text: strings.TrimRight(text, "\r\n")}) {
				return
			}
		}
		if err != nil {
			r.send(line{err: err})
			return
		}
	}
}

func (r *LineReader) send(l line) bool {
	select {
	case r.lines <- l:
		return true
	case <-r.stop:
		return false
	}
}

// Close releases the pump goroutine once its current read returns.
func (r *LineReader) Close() {
	select {
	case <-r.stop:
	default:
		close(r.stop)
	}
}

// ReadLine prints prompt and returns the next line. It returns io.EOF at
// end of input and ctx.Err() when ctx is cancelled first.
func (r *LineReader) ReadLine(ctx context.Context, prompt string) (string, error) {
	if r.done {
		return "", io.EOF
	}
	fmt.Fprint(r.out, prompt)
	select {
	case <-ctx.Done():
		fmt.Fprintln(r.out)
		return "", ctx.Err()
	case l, ok := <-r.lines:
		if !ok {
			r.done = true
			return "", io.EOF
		}
		if l.err != nil {
			r.done = true
			fmt.Fprintln(r.out)
			return "", l.err
		}
		return l.text, nil
	}
}

// Confirm asks a yes/no question defaulting to yes. End of input accepts
// the default; cancellation declines.
func (r *LineReader) Confirm(ctx context.Context, question string) bool {
	answer, err := r.ReadLine(ctx, question+" [Y/n] ")
	if err != nil {
		return err == io.EOF
	}
	switch strings.ToLower(strings.TrimSpace(answer)) {
	case "", "y", "yes":
		return true
	default:
		return false
	}
}
