// Package folders caches the daemon's folder configuration so events can be
// resolved to a label and a filesystem root.
package folders

import (
	"context"
	"sort"
	"sync"

	"stwatch/internal/services"
	"stwatch/internal/syncthing"
)

// Folder is the cached metadata for one synchronized folder.
type Folder struct {
	ID    string
	Label string
	Path  string
}

// Source fetches the current folder set from the daemon.
type Source interface {
	Folders(ctx context.Context) ([]syncthing.Folder, error)
}

// Directory maps folder IDs to their metadata. Refresh replaces the whole map
// so folders removed on the daemon stop resolving.
type Directory struct {
	source Source

	mu      sync.RWMutex
	folders map[string]Folder
}

// NewDirectory returns an empty directory backed by source.
func NewDirectory(source Source) *Directory {
	return &Directory{source: source, folders: map[string]Folder{}}
}

// Refresh fetches the folder configuration and replaces the cache. On error
// the previous contents are kept and the error is returned unchanged in kind.
func (d *Directory) Refresh(ctx context.Context) error {
	if d.source == nil {
		return services.Wrap(services.ErrConfiguration, "folders", "refresh", "no folder source", nil)
	}
	fetched, err := d.source.Folders(ctx)
	if err != nil {
		return services.Wrap(services.ErrTransient, "folders", "refresh", "fetch daemon config", err)
	}
	next := make(map[string]Folder, len(fetched))
	for _, f := range fetched {
		if f.ID == "" {
			continue
		}
		next[f.ID] = Folder{ID: f.ID, Label: f.Label, Path: f.Path}
	}

	d.mu.Lock()
	d.folders = next
	d.mu.Unlock()
	return nil
}

// Lookup returns the cached folder for id.
func (d *Directory) Lookup(id string) (Folder, bool) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	f, ok := d.folders[id]
	return f, ok
}

// Len reports how many folders are cached.
func (d *Directory) Len() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.folders)
}

// List returns the cached folders sorted by label, then ID.
func (d *Directory) List() []Folder {
	d.mu.RLock()
	out := make([]Folder, 0, len(d.folders))
	for _, f := range d.folders {
		out = append(out, f)
	}
	d.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Label != out[j].Label {
			return out[i].Label < out[j].Label
		}
		return out[i].ID < out[j].ID
	})
	return out
}
