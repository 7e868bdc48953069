// Package view displays scan results and indexed error context: tables for
// the terminal and the sinks a looked-up document is shown through.
package view

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"
)

// DefaultPager is used when neither the configuration nor $PAGER names one.
const DefaultPager = "less"

// Sink shows a text document to the operator.
type Sink interface {
	Show(ctx context.Context, doc string) error
}

// WriterSink writes the document to W followed by a newline.
type WriterSink struct {
	W io.Writer
}

func (s WriterSink) Show(_ context.Context, doc string) error {
	_, err := fmt.Fprintln(s.W, doc)
	return err
}

// PagerSink streams the document to an external pager process and waits
// for it to exit.
type PagerSink struct {
	Command string // e.g. "less -R"; empty means DefaultPager
	Stdout  io.Writer
	Stderr  io.Writer
}

// PagerCommand picks the pager: the configured one, then $PAGER, then less.
func PagerCommand(configured string) string {
	if configured != "" {
		return configured
	}
	if env := os.Getenv("PAGER"); env != "" {
		return env
	}
	return DefaultPager
}

func (s PagerSink) Show(ctx context.Context, doc string) error {
	command := s.Command
	if strings.TrimSpace(command) == "" {
		command = DefaultPager
	}
	args := strings.Fields(command)

	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Stdin = strings.NewReader(doc)
	cmd.Stdout = s.Stdout
	cmd.Stderr = s.Stderr
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}
	if err := cmd.Run(); err != nil {
		return fmt.Errorf("pager %s: %w", args[0], err)
	}
	return nil
}
