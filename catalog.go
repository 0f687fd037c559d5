package main

import (
	"io/fs"
	"path"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog/log"
)

const rescanDelay = 500 * time.Millisecond

// Catalog enumerates the playable files under the configured media
// directories. Listings are cached behind a lock and refreshed by a
// filesystem watcher, so readers (admission processing in particular)
// never touch the disk.
type Catalog struct {
	roots []string

	mu       sync.RWMutex
	listings []DirListing

	watcher *fsnotify.Watcher
	closing chan struct{}
	done    chan struct{}
}

func NewCatalog(roots []string) *Catalog {
	return &Catalog{
		roots:   append([]string(nil), roots...),
		closing: make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start performs the initial scan and begins watching the media roots
// for changes. A watcher failure degrades to the initial scan only.
func (c *Catalog) Start() {
	c.rescan()
	w, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn().Err(err).Msg("[catalog] watcher unavailable; listings will not refresh")
		close(c.done)
		return
	}
	c.watcher = w
	c.watchDirs()
	go c.watchLoop()
}

func (c *Catalog) Close() {
	close(c.closing)
	<-c.done
	if c.watcher != nil {
		_ = c.watcher.Close()
	}
}

// Listings returns a snapshot of the cached catalog.
func (c *Catalog) Listings() []DirListing {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]DirListing, len(c.listings))
	for i, l := range c.listings {
		out[i] = DirListing{Dir: l.Dir, Files: append([]string(nil), l.Files...)}
	}
	return out
}

// RefFor builds the media reference path under which dir/file is served.
func (c *Catalog) RefFor(dir, file string) string {
	return mountPath(dir) + "/" + path.Clean(file)
}

// ResolveRef maps a media reference back to its (dir, file) identity.
func (c *Catalog) ResolveRef(ref string) (dir, file string, ok bool) {
	for _, root := range c.roots {
		prefix := mountPath(root) + "/"
		if strings.HasPrefix(ref, prefix) {
			return root, strings.TrimPrefix(ref, prefix), true
		}
	}
	return "", "", false
}

// mountPath is the HTTP path prefix a media directory is served under.
func mountPath(dir string) string {
	return "/media/" + strings.Trim(filepath.ToSlash(filepath.Clean(dir)), "/")
}

func (c *Catalog) watchLoop() {
	defer close(c.done)
	var pending *time.Timer
	var fire <-chan time.Time
	for {
		select {
		case ev, open := <-c.watcher.Events:
			if !open {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename|fsnotify.Write) == 0 {
				continue
			}
			if pending == nil {
				pending = time.NewTimer(rescanDelay)
				fire = pending.C
			} else {
				pending.Reset(rescanDelay)
			}
		case err, open := <-c.watcher.Errors:
			if !open {
				return
			}
			log.Warn().Err(err).Msg("[catalog] watch error")
		case <-fire:
			pending = nil
			fire = nil
			c.rescan()
			c.watchDirs()
		case <-c.closing:
			if pending != nil {
				pending.Stop()
			}
			return
		}
	}
}

// watchDirs registers every known directory with the watcher. fsnotify
// is not recursive, so subdirectories found during a scan are added
// here; vanished paths simply fail to register.
func (c *Catalog) watchDirs() {
	if c.watcher == nil {
		return
	}
	for _, root := range c.roots {
		for _, dir := range subDirs(root) {
			_ = c.watcher.Add(dir)
		}
	}
}

func (c *Catalog) rescan() {
	listings := make([]DirListing, 0, len(c.roots))
	for _, root := range c.roots {
		files, err := scanRoot(root)
		if err != nil {
			log.Warn().Err(err).Str("dir", root).Msg("[catalog] scan failed; listing empty")
			files = []string{}
		}
		listings = append(listings, DirListing{Dir: root, Files: files})
	}
	c.mu.Lock()
	c.listings = listings
	c.mu.Unlock()
}

// scanRoot walks root and returns the playable files it contains, as
// slash-separated paths relative to root.
func scanRoot(root string) ([]string, error) {
	files := []string{}
	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			if p == root {
				return err
			}
			log.Debug().Err(err).Str("path", p).Msg("[catalog] skipping entry")
			return nil
		}
		if d.IsDir() || !playableFile(d.Name()) {
			return nil
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return nil
		}
		files = append(files, filepath.ToSlash(rel))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

func subDirs(root string) []string {
	dirs := []string{}
	_ = filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil
		}
		if d.IsDir() {
			dirs = append(dirs, p)
		}
		return nil
	})
	return dirs
}

func playableFile(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".mp4", ".webm":
		return true
	}
	return false
}
