package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"

	domainconfig "github.com/solm0/solmee-xyz-keystone/domain/config"
)

const lexiconDebounce = 300 * time.Millisecond

// LexiconSink receives every successfully reloaded lexicon
type LexiconSink interface {
	Swap(lexicon *domainconfig.Lexicon)
}

// LexiconWatcher reloads the lexicon file when it changes. A file that fails
// to parse is logged and the active lexicon stays in place.
type LexiconWatcher struct {
	path     string
	sink     LexiconSink
	logger   *zap.Logger
	debounce time.Duration

	watcher *fsnotify.Watcher
	done    chan struct{}
	once    sync.Once
}

// NewLexiconWatcher creates a watcher for path. The parent directory is
// watched so that editors replacing the file are noticed.
func NewLexiconWatcher(path string, sink LexiconSink, logger *zap.Logger) (*LexiconWatcher, error) {
	fsWatcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to resolve lexicon path: %w", err)
	}

	if err := fsWatcher.Add(filepath.Dir(abs)); err != nil {
		fsWatcher.Close()
		return nil, fmt.Errorf("failed to watch lexicon directory: %w", err)
	}

	return &LexiconWatcher{
		path:     abs,
		sink:     sink,
		logger:   logger,
		debounce: lexiconDebounce,
		watcher:  fsWatcher,
		done:     make(chan struct{}),
	}, nil
}

// Start runs the watch loop until ctx is done or Close is called
func (w *LexiconWatcher) Start(ctx context.Context) {
	go w.watchLoop(ctx)
	w.logger.Info("Lexicon hot reloading enabled", zap.String("file", w.path))
}

// Close stops the watcher
func (w *LexiconWatcher) Close() error {
	var err error
	w.once.Do(func() {
		close(w.done)
		err = w.watcher.Close()
	})
	return err
}

func (w *LexiconWatcher) watchLoop(ctx context.Context) {
	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			w.Close()
			return

		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			w.logger.Debug("Lexicon file changed",
				zap.String("file", event.Name),
				zap.String("operation", event.Op.String()),
			)
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(w.debounce, w.reload)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Error("Lexicon watcher error", zap.Error(err))
		}
	}
}

// reload parses the file and swaps it in
func (w *LexiconWatcher) reload() {
	lexicon, err := domainconfig.LoadLexiconFile(w.path)
	if err != nil {
		w.logger.Warn("Keeping previous lexicon",
			zap.String("file", w.path),
			zap.Error(err),
		)
		return
	}

	w.sink.Swap(lexicon)
	w.logger.Info("Lexicon reloaded",
		zap.String("file", w.path),
		zap.Int("suffixes", len(lexicon.Suffixes())),
		zap.Int("stopwords", lexicon.StopwordCount()),
	)
}
