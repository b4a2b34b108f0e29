package main

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/schollz/progressbar/v3"

	"textifier/internal/workflow"
)

// progressRenderer draws one bar per job on a terminal and stays silent
// otherwise; logs carry progress for non-interactive runs.
type progressRenderer struct {
	out     io.Writer
	enabled bool

	mu  sync.Mutex
	bar *progressbar.ProgressBar
	job string
}

func newProgressRenderer(out io.Writer, quiet bool) *progressRenderer {
	return &progressRenderer{out: out, enabled: !quiet && isTerminal(out)}
}

func isTerminal(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// callback returns a workflow progress hook for source.
func (r *progressRenderer) callback(source string) func(workflow.Progress) {
	if !r.enabled {
		return nil
	}
	name := filepath.Base(source)
	return func(p workflow.Progress) {
		r.mu.Lock()
		defer r.mu.Unlock()
		if r.bar == nil || r.job != source {
			r.finishLocked()
			r.job = source
			r.bar = progressbar.NewOptions(100,
				progressbar.OptionSetWriter(r.out),
				progressbar.OptionSetWidth(30),
				progressbar.OptionThrottle(100*time.Millisecond),
				progressbar.OptionClearOnFinish(),
				progressbar.OptionSetPredictTime(false),
			)
		}
		label := p.Stage
		if p.Cues > 0 {
			label = fmt.Sprintf("%s, %d cues", p.Stage, p.Cues)
		}
		r.bar.Describe(fmt.Sprintf("%-24s %s", truncate(name, 24), label))
		_ = r.bar.Set(int(p.Percent))
		if p.Stage == workflow.StageDone {
			r.finishLocked()
		}
	}
}

func (r *progressRenderer) finish() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.finishLocked()
}

func (r *progressRenderer) finishLocked() {
	if r.bar != nil {
		_ = r.bar.Finish()
		r.bar = nil
	}
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
