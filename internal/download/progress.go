package download

import (
	"fmt"
	"io"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/dustin/go-humanize"
)

// progressBar renders a single-line bar that is redrawn in place with '\r'.
// A nil *progressBar is valid and draws nothing.
type progressBar struct {
	out      io.Writer
	model    progress.Model
	total    int64
	lastPerm int
}

func newProgressBar(out io.Writer, total int64) *progressBar {
	if out == nil || total <= 0 {
		return nil
	}
	return &progressBar{
		out:      out,
		model:    progress.New(progress.WithDefaultGradient(), progress.WithWidth(40)),
		total:    total,
		lastPerm: -1,
	}
}

// update redraws the bar when the completed share moved by at least 0.1%.
func (p *progressBar) update(done int64) {
	if p == nil {
		return
	}
	if done > p.total {
		done = p.total
	}
	perm := int(done * 1000 / p.total)
	if perm == p.lastPerm {
		return
	}
	p.lastPerm = perm
	_, _ = fmt.Fprintf(p.out, "\r%s %s/%s", p.model.ViewAs(float64(done)/float64(p.total)), humanize.IBytes(uint64(done)), humanize.IBytes(uint64(p.total)))
}

func (p *progressBar) finish() {
	if p == nil {
		return
	}
	_, _ = fmt.Fprintln(p.out)
}
