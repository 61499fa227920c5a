package main

import (
	"fmt"
	"io"
	"sync"

	"github.com/schollz/progressbar/v3"
)

// progressReporter draws one bar per product on a terminal and stays
// silent otherwise; the log carries the same information.
type progressReporter struct {
	out     io.Writer
	enabled bool

	mu    sync.Mutex
	bar   *progressbar.ProgressBar
	label string
}

func newProgress(out io.Writer) *progressReporter {
	return &progressReporter{out: out, enabled: isTerminal(out)}
}

func (p *progressReporter) update(label string, done, total int) {
	if !p.enabled {
		return
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bar == nil || p.label != label {
		p.finishLocked()
		p.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(p.out),
			progressbar.OptionSetDescription(label),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(40),
		)
		p.label = label
	}
	_ = p.bar.Set(done)
}

func (p *progressReporter) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finishLocked()
}

func (p *progressReporter) finishLocked() {
	if p.bar == nil {
		return
	}
	_ = p.bar.Finish()
	fmt.Fprintln(p.out)
	p.bar = nil
}
