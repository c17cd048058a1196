package http

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// ArtifactWatcher reloads model artifacts when training overwrites them.
type ArtifactWatcher struct {
	watcher *fsnotify.Watcher
	svc     *PredictionService
	log     *zap.Logger

	pricingPath      string
	availabilityPath string

	done chan struct{}
}

// NewArtifactWatcher watches the directories containing the artifact
// files. Either path may be empty to skip that task.
func NewArtifactWatcher(svc *PredictionService, pricingPath, availabilityPath string, log *zap.Logger) (*ArtifactWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	// Watch directories, not files: editors and training jobs replace
	// artifacts by rename, which drops a file-level watch.
	dirs := map[string]bool{}
	for _, p := range []string{pricingPath, availabilityPath} {
		if p == "" {
			continue
		}
		dir := filepath.Dir(p)
		if !dirs[dir] {
			if err := watcher.Add(dir); err != nil {
				watcher.Close()
				return nil, err
			}
			dirs[dir] = true
		}
	}

	return &ArtifactWatcher{
		watcher:          watcher,
		svc:              svc,
		log:              log,
		pricingPath:      pricingPath,
		availabilityPath: availabilityPath,
		done:             make(chan struct{}),
	}, nil
}

// Run processes events until Close. Reloads are debounced so a writer
// emitting several events for one save triggers one reload.
func (w *ArtifactWatcher) Run() {
	var (
		pending = map[string]bool{}
		timer   *time.Timer
		fire    <-chan time.Time
	)

	for {
		select {
		case ev, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			path := filepath.Clean(ev.Name)
			if path != filepath.Clean(w.pricingPath) && path != filepath.Clean(w.availabilityPath) {
				continue
			}
			pending[path] = true
			if timer == nil {
				timer = time.NewTimer(500 * time.Millisecond)
			} else {
				timer.Reset(500 * time.Millisecond)
			}
			fire = timer.C

		case <-fire:
			for path := range pending {
				w.reload(path)
			}
			pending = map[string]bool{}
			fire = nil

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("artifact watcher error", zap.Error(err))

		case <-w.done:
			return
		}
	}
}

func (w *ArtifactWatcher) reload(path string) {
	var err error
	switch path {
	case filepath.Clean(w.pricingPath):
		err = w.svc.LoadPricing(w.pricingPath)
	case filepath.Clean(w.availabilityPath):
		err = w.svc.LoadAvailability(w.availabilityPath)
	}
	if err != nil {
		// Keep serving the previous artifact.
		w.log.Error("artifact reload failed", zap.String("path", path), zap.Error(err))
	}
}

// Close stops the watcher.
func (w *ArtifactWatcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}
