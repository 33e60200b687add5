package main

import (
	"bufio"
	"bytes"
	"fmt"
	"io"
	"sync"
	"unicode"
)

const (
	keyCtrlC     = 3
	keyCtrlD     = 4
	keyBackspace = 8
	keyEscape    = 27
	keyDelete    = 127
)

// console serializes terminal output from the input loop and channel callbacks, and
// edits the line being composed.
type console struct {
	sync.Mutex

	w     io.Writer
	input []rune
	onKey func()
}

func newConsole(w io.Writer, raw bool) *console {
	if raw {
		w = crlfWriter{w}
	}
	return &console{w: w}
}

// crlfWriter writes "\r\n" for "\n": a raw mode terminal does not.
type crlfWriter struct {
	w io.Writer
}

func (c crlfWriter) Write(p []byte) (int, error) {
	if _, err := c.w.Write(bytes.ReplaceAll(p, []byte("\n"), []byte("\r\n"))); err != nil {
		return 0, err
	}
	return len(p), nil
}

func (c *console) do(fn func(w io.Writer)) {
	c.Lock()
	defer c.Unlock()
	fn(c.w)
}

// redraw writes the screen, then the line being composed after the prompt.
func (c *console) redraw(fn func(w io.Writer)) {
	c.Lock()
	defer c.Unlock()
	fn(c.w)
	fmt.Fprint(c.w, string(c.input))
}

// setOnKey sets the callback of every key that edits the composed line.
func (c *console) setOnKey(fn func()) {
	c.Lock()
	c.onKey = fn
	c.Unlock()
}

// readKeys reads a raw mode terminal key by key. Completed lines are sent to the
// returned channel, which is closed on Ctrl-C, Ctrl-D or EOF.
func (c *console) readKeys(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		br := bufio.NewReader(r)
		for {
			ch, _, err := br.ReadRune()
			if err != nil {
				return
			}
			switch {
			case ch == '\r' || ch == '\n':
				c.Lock()
				line := string(c.input)
				c.input = nil
				fmt.Fprint(c.w, "\n")
				c.Unlock()
				lines <- line
			case ch == keyCtrlC || ch == keyCtrlD:
				return
			case ch == keyBackspace || ch == keyDelete:
				c.Lock()
				if n := len(c.input); n > 0 {
					c.input = c.input[:n-1]
					fmt.Fprint(c.w, "\b \b")
				}
				c.Unlock()
			case ch == keyEscape:
				skipEscape(br)
			case unicode.IsPrint(ch):
				c.Lock()
				c.input = append(c.input, ch)
				fmt.Fprint(c.w, string(ch))
				onKey := c.onKey
				c.Unlock()
				if onKey != nil {
					onKey()
				}
			}
		}
	}()
	return lines
}

// skipEscape drops the rest of an escape sequence such as an arrow key.
func skipEscape(br *bufio.Reader) {
	next, _, err := br.ReadRune()
	if err != nil || (next != '[' && next != 'O') {
		return
	}
	for {
		r, _, err := br.ReadRune()
		if err != nil || (r >= 0x40 && r <= 0x7e) {
			return
		}
	}
}

// readLines reads a non terminal input line by line.
func readLines(r io.Reader) <-chan string {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(r)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()
	return lines
}
