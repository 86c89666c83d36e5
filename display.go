package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/charmbracelet/lipgloss"
	"go.uber.org/zap"
)

// DisplaySink renders text onto a named surface.
type DisplaySink interface {
	SetText(sinkID, text string)
}

// fileSink keeps one text file per sink, the format streaming software
// text sources read when set to "read from file".
type fileSink struct {
	dir    string
	logger *zap.Logger

	mu   sync.Mutex
	last map[string]string
}

func NewFileSink(dir string, logger *zap.Logger) *fileSink {
	return &fileSink{dir: dir, logger: logger, last: make(map[string]string)}
}

func (f *fileSink) SetText(sinkID, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if prev, ok := f.last[sinkID]; ok && prev == text {
		return
	}
	if err := f.write(sinkID, text); err != nil {
		f.logger.Warn("Failed to write display file", zap.String("sink", sinkID), zap.Error(err))
		return
	}
	f.last[sinkID] = text
}

func (f *fileSink) path(sinkID string) string {
	return filepath.Join(f.dir, filepath.Base(sinkID)+".txt")
}

// write replaces the file atomically so readers never see a partial value
func (f *fileSink) write(sinkID, text string) error {
	tmp, err := os.CreateTemp(f.dir, ".stagetimer-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	if _, err := tmp.WriteString(text); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("write temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("close temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), f.path(sinkID)); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("rename: %w", err)
	}
	return nil
}

var (
	sinkLabelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	countdownStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14"))
	finishedStyle  = countdownStyle.Foreground(lipgloss.Color("9"))
)

// terminalSink prints a styled line whenever a sink's text changes.
type terminalSink struct {
	out io.Writer

	mu   sync.Mutex
	last map[string]string
}

func NewTerminalSink(out io.Writer) *terminalSink {
	return &terminalSink{out: out, last: make(map[string]string)}
}

func (t *terminalSink) SetText(sinkID, text string) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if prev, ok := t.last[sinkID]; ok && prev == text {
		return
	}
	t.last[sinkID] = text
	fmt.Fprintln(t.out, renderLine(sinkID, text))
}

func renderLine(sinkID, text string) string {
	style := countdownStyle
	if isZero(text) {
		style = finishedStyle
	}
	return lipgloss.JoinHorizontal(lipgloss.Bottom,
		sinkLabelStyle.Render(sinkID),
		"  ",
		style.Render(text))
}

func isZero(text string) bool {
	for _, r := range text {
		if r != '0' && r != ':' {
			return false
		}
	}
	return true
}
