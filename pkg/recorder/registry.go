package recorder

import (
	"context"
	"sync"

	"github.com/odvcencio/demoreel/pkg/errors"
	"github.com/odvcencio/demoreel/pkg/page"
)

// ViewportInfo is a point-in-time snapshot of one live viewport.
type ViewportInfo struct {
	ID       int    `json:"id"`
	URL      string `json:"url"`
	Title    string `json:"title"`
	IsActive bool   `json:"isActive"`
}

// Registry tracks the viewports of a running session as a growable arena
// indexed by viewport id. Ids are allocated by a monotonic counter and are
// never reused, even after a close; closed slots stay nil.
type Registry struct {
	mu      sync.Mutex
	handles []page.Page // index id-1; nil means closed
	active  int         // viewport id, re-validated on every access
}

// NewRegistry creates a registry seeded with one viewport, which becomes
// active. A running session always retains at least one live viewport.
func NewRegistry(first page.Page) *Registry {
	return &Registry{
		handles: []page.Page{first},
		active:  1,
	}
}

// Open allocates the next viewport id for the handle. It does not change
// which viewport is active.
func (r *Registry) Open(pg page.Page) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handles = append(r.handles, pg)
	return len(r.handles)
}

// NextID returns the id the next opened viewport will receive. Tool
// invocations are serialized, so the id is stable until the matching Open.
func (r *Registry) NextID() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.handles) + 1
}

// Switch makes the viewport with the given id active and brings it to the
// foreground.
func (r *Registry) Switch(ctx context.Context, id int) (page.Page, error) {
	r.mu.Lock()
	pg := r.lookup(id)
	if pg == nil {
		r.mu.Unlock()
		return nil, errors.New(errors.ErrCodeUnknownViewport, "viewport is not open").
			WithContext("viewport_id", id)
	}
	r.active = id
	r.mu.Unlock()

	if err := pg.BringToFront(ctx); err != nil {
		return nil, err
	}
	return pg, nil
}

// Close closes the viewport with the given id. Closing the last live
// viewport is refused; closing the active viewport deterministically
// activates the lowest remaining id.
func (r *Registry) Close(id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	pg := r.lookup(id)
	if pg == nil {
		return errors.New(errors.ErrCodeUnknownViewport, "viewport is not open").
			WithContext("viewport_id", id)
	}
	if r.liveCount() == 1 {
		return errors.New(errors.ErrCodeLastViewport, "a session must retain at least one viewport").
			WithContext("viewport_id", id)
	}

	r.handles[id-1] = nil
	pg.Close()

	if r.active == id {
		for i, h := range r.handles {
			if h != nil {
				r.active = i + 1
				break
			}
		}
	}
	return nil
}

// Active returns the active viewport's id and handle.
func (r *Registry) Active() (int, page.Page, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pg := r.lookup(r.active)
	if pg == nil {
		return 0, nil, errors.New(errors.ErrCodeNoActiveViewport, "active viewport is unavailable").
			WithContext("viewport_id", r.active)
	}
	return r.active, pg, nil
}

// List snapshots all live viewports in id order.
func (r *Registry) List() []ViewportInfo {
	r.mu.Lock()
	defer r.mu.Unlock()
	infos := make([]ViewportInfo, 0, len(r.handles))
	for i, pg := range r.handles {
		if pg == nil {
			continue
		}
		infos = append(infos, ViewportInfo{
			ID:       i + 1,
			URL:      pg.URL(),
			Title:    pg.Title(),
			IsActive: i+1 == r.active,
		})
	}
	return infos
}

// CloseAll releases every live viewport. Used during session teardown only;
// the at-least-one invariant applies to running sessions.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i, pg := range r.handles {
		if pg != nil {
			pg.Close()
			r.handles[i] = nil
		}
	}
}

func (r *Registry) lookup(id int) page.Page {
	if id < 1 || id > len(r.handles) {
		return nil
	}
	return r.handles[id-1]
}

func (r *Registry) liveCount() int {
	n := 0
	for _, h := range r.handles {
		if h != nil {
			n++
		}
	}
	return n
}
