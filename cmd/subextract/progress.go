package main

import (
	"io"

	"github.com/schollz/progressbar/v3"

	"github.com/lovemyFamilyFovever/subtitle-extractor/internal/session"
)

// barReporter draws extraction progress on the terminal. Only the extract
// stage gets a bar; composing is a single step.
type barReporter struct {
	w   io.Writer
	bar *progressbar.ProgressBar
}

func newBarReporter(w io.Writer) *barReporter {
	return &barReporter{w: w}
}

func (r *barReporter) Progress(stage string, done, total int) {
	if stage != session.StageExtract {
		return
	}
	if r.bar == nil {
		r.bar = progressbar.NewOptions(total,
			progressbar.OptionSetWriter(r.w),
			progressbar.OptionSetDescription("Extracting"),
			progressbar.OptionSetTheme(progressbar.Theme{
				Saucer:        "█",
				SaucerHead:    "█",
				SaucerPadding: "░",
				BarStart:      "▐",
				BarEnd:        "▌",
			}),
			progressbar.OptionShowCount(),
			progressbar.OptionSetWidth(50),
			progressbar.OptionSetRenderBlankState(true),
		)
	}
	_ = r.bar.Set(done)
}

func (r *barReporter) Finish() {
	if r.bar != nil {
		_ = r.bar.Finish()
		_, _ = io.WriteString(r.w, "\n")
	}
}
