// Package progressbar implements functionality of printing a progress
// bar to the terminal window
package progressbar

import (
	"fmt"
	"io"
	"strings"
	"time"
)

// ProgressBar implements a progress bar that must be manually managed.
// That is, Display must be called whenever an updated progress bar
// should be written.
//
// ProgressBar does not use concurrency.
type ProgressBar struct {
	w               io.Writer
	width           int
	maxProgress     int
	currentProgress int
	bar             strings.Builder
	startTime       time.Time
}

// New returns a new ProgressBar that is width characters wide, writes
// to w, and reaches 100% after max calls to Increment
func New(w io.Writer, width, max int) *ProgressBar {
	if max < 1 {
		max = 1
	}
	return &ProgressBar{
		w:           w,
		width:       width,
		maxProgress: max,
		startTime:   time.Now(),
	}
}

// Increment increments the internal progress counter. Each time an
// iteration is performed, Increment should be called.
func (p *ProgressBar) Increment() {
	if p.currentProgress < p.maxProgress {
		p.currentProgress++
	}
}

// Progress returns the fraction of iterations completed
func (p *ProgressBar) Progress() float64 {
	return float64(p.currentProgress) / float64(p.maxProgress)
}

// Display writes the progress bar over the current line
func (p *ProgressBar) Display() error {
	p.bar.Reset()
	p.bar.WriteString("\r|")

	filled := p.currentProgress * p.width / p.maxProgress
	p.bar.WriteString(strings.Repeat("█", filled))
	p.bar.WriteString(strings.Repeat(" ", p.width-filled))

	fmt.Fprintf(&p.bar, "| [%.2f%% | elapsed: %v]", p.Progress()*100,
		time.Since(p.startTime).Truncate(time.Second))

	_, err := io.WriteString(p.w, p.bar.String())
	return err
}

// Close ends the line of the progress bar
func (p *ProgressBar) Close() error {
	_, err := io.WriteString(p.w, "\n")
	return err
}
