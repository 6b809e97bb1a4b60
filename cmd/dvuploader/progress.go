package main

import (
	"context"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/vbauerster/mpb/v4"
	"github.com/vbauerster/mpb/v4/decor"
	"golang.org/x/crypto/ssh/terminal"

	"github.com/gdcc/dvuploader-go/bytefmt"
)

// progressUpdate contains deltas for each tracked value.
type progressUpdate struct {
	FilesWritten int64
	BytesWritten int64
}

// progressTracker tracks the status of a batch upload.
type progressTracker interface {
	Update(*progressUpdate)
	Close() error
}

// noTracker implements progressTracker but does nothing.
var noTracker = &nopTracker{}

// defaultTracker prints a line on each update and a summary on close.
func defaultTracker() progressTracker {
	return &lineTracker{start: time.Now()}
}

// boundedTracker shows upload progress against a known total byte count.
// Falls back to defaultTracker if stdout is not a terminal.
func boundedTracker(ctx context.Context, totalBytes int64) progressTracker {
	if !terminal.IsTerminal(int(os.Stdout.Fd())) {
		return defaultTracker()
	}
	if totalBytes == 0 {
		return noTracker
	}

	progress := mpb.NewWithContext(ctx, mpb.WithWidth(50))
	bar := progress.AddBar(totalBytes,
		mpb.PrependDecorators(newByteRatioDecorator(" %-10s / %10s")),
		mpb.AppendDecorators(
			newPercentageDecorator("%3d%% "),
			newRateDecorator("%s"),
			decor.OnComplete(decor.Spinner(nil, decor.WCSyncSpace), "done")))
	return &barTracker{progress: progress, bar: bar}
}

type nopTracker struct{}

func (t *nopTracker) Update(u *progressUpdate) {}
func (t *nopTracker) Close() error             { return nil }

type lineTracker struct {
	lock  sync.Mutex
	p     progressUpdate
	start time.Time
}

func (t *lineTracker) Update(u *progressUpdate) {
	t.lock.Lock()
	defer t.lock.Unlock()

	t.p.FilesWritten += u.FilesWritten
	t.p.BytesWritten += u.BytesWritten

	fmt.Printf("uploaded %d files, %s\n", t.p.FilesWritten, bytefmt.FormatBytes(t.p.BytesWritten))
}

func (t *lineTracker) Close() error {
	t.lock.Lock()
	defer t.lock.Unlock()

	elapsed := time.Since(t.start)
	fmt.Printf("completed in %s (%s)\n", elapsed.Truncate(time.Second/10), bytefmt.FormatRate(t.p.BytesWritten, elapsed))
	return nil
}

type barTracker struct {
	lock     sync.Mutex
	progress *mpb.Progress
	bar      *mpb.Bar
}

func (t *barTracker) Update(u *progressUpdate) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.bar.IncrBy(int(u.BytesWritten))
}

func (t *barTracker) Close() error {
	t.progress.Wait()
	return nil
}

type byteRatioDecorator struct {
	decor.WC
	format string
}

func newByteRatioDecorator(format string) *byteRatioDecorator {
	return &byteRatioDecorator{format: format}
}

func (d *byteRatioDecorator) Decor(s *decor.Statistics) string {
	return fmt.Sprintf(d.format, bytefmt.FormatBytes(s.Current), bytefmt.FormatBytes(s.Total))
}

type percentageDecorator struct {
	decor.WC
	format string
}

func newPercentageDecorator(format string) *percentageDecorator {
	return &percentageDecorator{format: format}
}

func (d *percentageDecorator) Decor(s *decor.Statistics) string {
	return fmt.Sprintf(d.format, int(math.Round(float64(100*s.Current))/float64(s.Total)))
}

type rateDecorator struct {
	decor.WC
	format string
	start  time.Time
}

func newRateDecorator(format string) *rateDecorator {
	return &rateDecorator{format: format, start: time.Now()}
}

func (d *rateDecorator) Decor(s *decor.Statistics) string {
	return fmt.Sprintf(d.format, bytefmt.FormatRate(s.Current, time.Since(d.start)))
}
