package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
)

// Prompt reads answers line by line from one shared input. Lines are read
// on a background goroutine so a pending question gives way to cancellation.
type Prompt struct {
	scanner *bufio.Scanner
	out     io.Writer
	lines   chan promptLine
	once    sync.Once
}

type promptLine struct {
	text string
	err  error
}

func NewPrompt(in io.Reader, out io.Writer) *Prompt {
	return &Prompt{
		scanner: bufio.NewScanner(in),
		out:     out,
		lines:   make(chan promptLine),
	}
}

func (p *Prompt) read() {
	defer close(p.lines)
	for p.scanner.Scan() {
		p.lines <- promptLine{text: p.scanner.Text()}
	}
	if err := p.scanner.Err(); err != nil {
		p.lines <- promptLine{err: err}
	}
}

// Ask prints question and returns the trimmed answer. io.EOF signals that
// the input is exhausted; a cancelled ctx returns its error without waiting
// for input.
func (p *Prompt) Ask(ctx context.Context, question string) (string, error) {
	fmt.Fprint(p.out, question)
	p.once.Do(func() { go p.read() })

	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case l, ok := <-p.lines:
		if !ok {
			return "", io.EOF
		}
		if l.err != nil {
			return "", l.err
		}
		return strings.TrimSpace(l.text), nil
	}
}

func (p *Prompt) Println(a ...interface{}) {
	fmt.Fprintln(p.out, a...)
}

func (p *Prompt) Printf(format string, a ...interface{}) {
	fmt.Fprintf(p.out, format, a...)
}

// ConsoleNamer asks for a name per group. An empty answer keeps the
// current one.
type ConsoleNamer struct {
	prompt *Prompt
}

func NewConsoleNamer(p *Prompt) *ConsoleNamer {
	return &ConsoleNamer{prompt: p}
}

func (n *ConsoleNamer) Names(ctx context.Context, current []string) ([]string, error) {
	names := make([]string, len(current))
	for i, label := range current {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		answer, err := n.prompt.Ask(ctx, fmt.Sprintf("Name for group %d (current: %s): ", i+1, label))
		if err != nil {
			return nil, err
		}
		names[i] = answer
	}
	return names, nil
}
