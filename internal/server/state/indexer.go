package state

import (
	"errors"
	"fmt"
	"net/url"
	"path"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

// DefaultTree is the directory layout the simulated crawler reports under
// every source. Segments are kept percent-encoded the way directory
// listings link them.
var DefaultTree = []string{
	"pub/",
	"pub/linux/",
	"pub/linux/iso/",
	"pub/linux/iso/releases/",
	"pub/docs/",
	"pub/My%20Files/",
	"pub/%E8%B5%84%E6%96%99/",
	"mirror/",
	"mirror/debian/",
	"mirror/debian/pool/",
}

// Indexer simulates the server's background crawl. A crawl walks every
// source, reports each directory as it is visited, then replaces that
// source's entries in the index.
type Indexer struct {
	store  *Store
	step   time.Duration
	tree   []string
	logger *zap.Logger

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewIndexer returns an indexer that pauses step between directories.
func NewIndexer(store *Store, step time.Duration, tree []string, logger *zap.Logger) *Indexer {
	if tree == nil {
		tree = DefaultTree
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Indexer{
		store:  store,
		step:   step,
		tree:   tree,
		logger: logger,
		stop:   make(chan struct{}),
	}
}

// Start launches a crawl unless one is already running, and reports
// whether it started one.
func (ix *Indexer) Start() bool {
	select {
	case <-ix.stop:
		return false
	default:
	}
	if !ix.store.beginJob() {
		return false
	}
	ix.wg.Add(1)
	go ix.run()
	return true
}

// Wait blocks until the current crawl, if any, ends.
func (ix *Indexer) Wait() {
	ix.wg.Wait()
}

// Close aborts a running crawl and waits for it to exit.
func (ix *Indexer) Close() {
	ix.stopOnce.Do(func() { close(ix.stop) })
	ix.wg.Wait()
}

func (ix *Indexer) run() {
	defer ix.wg.Done()
	defer ix.store.finishJob()

	ix.logger.Info("Starting background indexer...")
	ix.store.appendLog("Starting background indexer...")

	if err := ix.crawlAll(); err != nil {
		ix.logger.Warn("Indexer failed", zap.Error(err))
		ix.store.appendLog(fmt.Sprintf("Indexer failed: %v", err))
		return
	}
	ix.logger.Info("Indexing completed.")
	ix.store.appendLog("Indexing completed.")
}

func (ix *Indexer) crawlAll() error {
	found := 0
	for _, src := range ix.store.Sources() {
		ix.logger.Info("Indexing source", zap.String("label", src.Label))
		ix.store.setCurrentSource(src.Label)

		dirs, err := ix.crawl(src, &found)
		if err != nil {
			return err
		}
		if len(dirs) > 0 {
			ix.store.appendLog(fmt.Sprintf("Found %d directories. Inserting...", len(dirs)))
			ix.store.ReplaceDirectories(src.ID, dirs)
		}
	}
	return nil
}

func (ix *Indexer) crawl(src Source, found *int) ([]Directory, error) {
	base, err := url.Parse(src.URL)
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("source %q has an unusable url %q", src.Label, src.URL)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
		base.RawPath = ""
	}

	var dirs []Directory
	for _, rel := range ix.tree {
		ref, err := url.Parse(rel)
		if err != nil {
			continue
		}
		link := base.ResolveReference(ref)
		full := link.String()

		ix.store.progress(*found, full)
		if err := ix.pause(); err != nil {
			return nil, err
		}

		dirs = append(dirs, Directory{
			SourceID:     src.ID,
			Name:         path.Base(strings.TrimSuffix(rel, "/")),
			Path:         link.EscapedPath(),
			OriginalLink: full,
		})
		*found++
	}
	ix.store.setFound(*found)
	return dirs, nil
}

func (ix *Indexer) pause() error {
	if ix.step <= 0 {
		select {
		case <-ix.stop:
			return errStopped
		default:
			return nil
		}
	}
	t := time.NewTimer(ix.step)
	defer t.Stop()
	select {
	case <-ix.stop:
		return errStopped
	case <-t.C:
		return nil
	}
}

var errStopped = errors.New("indexer stopped")
