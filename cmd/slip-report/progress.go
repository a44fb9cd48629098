package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/bubbles/progress"

	"github.com/Sternrassler/alma-slip-report/pkg/pagination"
)

// progressBar draws a single-line bar that is redrawn in place.
type progressBar struct {
	mu   sync.Mutex
	out  io.Writer
	bar  progress.Model
	last float64
	done bool
}

func newProgressBar(out io.Writer, width int) *progressBar {
	bar := progress.New(progress.WithDefaultGradient())
	bar.Width = width
	return &progressBar{out: out, bar: bar, last: -1}
}

// Update renders percent (0-100). The bar is finished by a value of 100.
func (p *progressBar) Update(percent float64) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.done || percent == p.last {
		return
	}
	p.last = percent
	fmt.Fprintf(p.out, "\r%s", p.bar.ViewAs(percent/100))
	if percent >= 100 {
		fmt.Fprintln(p.out)
		p.done = true
	}
}

// progressFunc returns the callback for Find, or nil when no bar should be
// drawn.
func (a *app) progressFunc(out io.Writer, interactive bool) pagination.ProgressFunc {
	if a.quiet || !interactive {
		return nil
	}
	return newProgressBar(out, 60).Update
}
