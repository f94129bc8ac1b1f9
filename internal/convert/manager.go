package convert

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"github.com/handiism/moviedata/internal/codec"
	"github.com/handiism/moviedata/internal/collection"
	"github.com/handiism/moviedata/internal/config"
	"github.com/handiism/moviedata/internal/history"
	"golang.org/x/sync/errgroup"
)

// ProgressLevel indicates the severity/type of a progress message.
type ProgressLevel int

const (
	LevelInfo ProgressLevel = iota
	LevelVerbose
	LevelWarning
	LevelError
	LevelSuccess
)

func (l ProgressLevel) String() string {
	switch l {
	case LevelVerbose:
		return "verbose"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	case LevelSuccess:
		return "success"
	}
	return "info"
}

// ProgressEvent represents a conversion progress update.
type ProgressEvent struct {
	Message string
	Level   ProgressLevel
	Job     Job
}

// ErrJobsFailed is returned by Convert when at least one job failed.
var ErrJobsFailed = errors.New("conversion failed")

// xmlExt is handled outside the registry: it is read with ImportDOM and
// written with ExportXML.
const xmlExt = ".xml"

// Job converts one collection file into another format.
type Job struct {
	Source string
	Target string
}

// JobFor returns a job that writes src next to itself, or into outDir when
// it is not empty, with its extension replaced by ext.
func JobFor(src, outDir, ext string) Job {
	if !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	base := strings.TrimSuffix(filepath.Base(src), filepath.Ext(src)) + ext
	dir := outDir
	if dir == "" {
		dir = filepath.Dir(src)
	}
	return Job{Source: src, Target: filepath.Join(dir, base)}
}

// Manager runs conversion jobs concurrently.
type Manager struct {
	settings *config.Settings
	registry *codec.Registry
	history  *history.Store
	logger   *slog.Logger

	totalJobs  int32
	doneJobs   int32
	failedJobs int32

	onProgress func(ProgressEvent)
}

// NewManager creates a new conversion Manager.
func NewManager(settings *config.Settings, onProgress func(ProgressEvent)) *Manager {
	return &Manager{
		settings:   settings,
		registry:   codec.DefaultRegistry(),
		logger:     slog.New(slog.DiscardHandler),
		onProgress: onProgress,
	}
}

// WithHistory records every successfully written file in h.
func (m *Manager) WithHistory(h *history.Store) *Manager {
	m.history = h
	return m
}

// WithLogger passes logger on to the containers used for each job.
func (m *Manager) WithLogger(logger *slog.Logger) *Manager {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// Convert runs jobs with at most MaxConcurrentConversions in flight. A failed
// job is reported through the progress callback and does not stop the
// others. Cancelling ctx stops new jobs from starting; jobs already running
// finish.
func (m *Manager) Convert(ctx context.Context, jobs []Job) error {
	atomic.StoreInt32(&m.totalJobs, int32(len(jobs)))
	atomic.StoreInt32(&m.doneJobs, 0)
	atomic.StoreInt32(&m.failedJobs, 0)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(1, m.settings.MaxConcurrentConversions))

	for _, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := m.convert(job); err != nil {
				atomic.AddInt32(&m.failedJobs, 1)
				m.progress(ProgressEvent{Message: fmt.Sprintf("Error converting %s: %v", filepath.Base(job.Source), err), Level: LevelError, Job: job})
				return nil // Continue with other jobs
			}
			atomic.AddInt32(&m.doneJobs, 1)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if failed := atomic.LoadInt32(&m.failedJobs); failed > 0 {
		return fmt.Errorf("%w: %d of %d jobs", ErrJobsFailed, failed, len(jobs))
	}
	return nil
}

// Progress returns how many jobs have finished, how many of those failed and
// how many were submitted.
func (m *Manager) Progress() (done, failed, total int32) {
	return atomic.LoadInt32(&m.doneJobs), atomic.LoadInt32(&m.failedJobs), atomic.LoadInt32(&m.totalJobs)
}

func (m *Manager) convert(job Job) error {
	if sameFile(job.Source, job.Target) {
		return errors.New("source and target are the same file")
	}
	m.progress(ProgressEvent{Message: fmt.Sprintf("Converting %s to %s", filepath.Base(job.Source), filepath.Base(job.Target)), Level: LevelVerbose, Job: job})

	c := collection.New(collection.WithRegistry(m.registry), collection.WithLogger(m.logger))
	var err error
	if isXML(job.Source) {
		_, err = c.ImportDOM(job.Source)
	} else {
		_, err = c.Load(job.Source)
	}
	if err != nil {
		return err
	}

	var msg, format string
	if isXML(job.Target) {
		msg, err = c.ExportXML(job.Target)
		format = codec.XML{}.Name()
	} else {
		msg, err = c.Save(job.Target)
		if cd, lookupErr := m.registry.Lookup(job.Target); lookupErr == nil {
			format = cd.Name()
		}
	}
	if err != nil {
		return err
	}
	m.progress(ProgressEvent{Message: msg, Level: LevelSuccess, Job: job})

	if m.history != nil {
		if err := m.history.Touch(job.Target, format, c.Len(), time.Now()); err != nil {
			m.progress(ProgressEvent{Message: fmt.Sprintf("Error recording %s in history: %v", filepath.Base(job.Target), err), Level: LevelWarning, Job: job})
		}
	}
	return nil
}

func (m *Manager) progress(event ProgressEvent) {
	if m.onProgress != nil {
		m.onProgress(event)
	}
}

func isXML(path string) bool {
	return strings.EqualFold(filepath.Ext(path), xmlExt)
}

func sameFile(a, b string) bool {
	absA, errA := filepath.Abs(a)
	absB, errB := filepath.Abs(b)
	if errA != nil || errB != nil {
		return a == b
	}
	return absA == absB
}
