// Package spatial indexes annotation bounding boxes in an R-tree so the
// interaction layer can ask what lies under the cursor.
package spatial

import (
	"slices"

	"github.com/RoaringBitmap/roaring/v2"
	"github.com/golang/geo/r2"
	"github.com/tidwall/rtree"

	"github.com/inamate/annotate/internal/annotation"
	"github.com/inamate/annotate/internal/host"
)

type entry struct {
	feature *annotation.Feature
	rect    r2.Rect
	seq     uint64
}

// Index maps annotation ids to stable uint32 slots stored in an R-tree.
// Slots are recycled after removal.
type Index struct {
	tree   rtree.RTreeG[uint32]
	bounds BoundsFunc
	camera host.Camera

	slots   map[string]uint32
	entries []entry
	free    []uint32
	seq     uint64

	// slots whose bounds change with the camera
	cameraDependent *roaring.Bitmap
}

type Option func(*Index)

// WithBounds installs a custom bounding box function.
func WithBounds(fn BoundsFunc) Option {
	return func(ix *Index) { ix.bounds = fn }
}

func New(cam host.Camera, opts ...Option) *Index {
	ix := &Index{
		bounds:          DefaultBounds,
		camera:          cam,
		slots:           make(map[string]uint32),
		cameraDependent: roaring.New(),
	}
	for _, opt := range opts {
		opt(ix)
	}
	return ix
}

func (ix *Index) Len() int { return len(ix.slots) }

// Camera is the camera the current bounds were derived with.
func (ix *Index) Camera() host.Camera { return ix.camera }

// Insert adds f, or replaces the indexed record when f.ID is known.
func (ix *Index) Insert(f *annotation.Feature) {
	if slot, ok := ix.slots[f.ID]; ok {
		ix.replace(slot, f)
		return
	}

	var slot uint32
	if n := len(ix.free); n > 0 {
		slot = ix.free[n-1]
		ix.free = ix.free[:n-1]
	} else {
		slot = uint32(len(ix.entries))
		ix.entries = append(ix.entries, entry{})
	}

	ix.seq++
	ix.slots[f.ID] = slot
	ix.entries[slot] = entry{feature: f, seq: ix.seq}
	ix.place(slot)
}

// Update re-derives the bounds of f. Unknown features are inserted.
func (ix *Index) Update(f *annotation.Feature) { ix.Insert(f) }

// Remove drops id from the index. It reports whether id was present.
func (ix *Index) Remove(id string) bool {
	slot, ok := ix.slots[id]
	if !ok {
		return false
	}
	ix.unplace(slot)
	ix.entries[slot] = entry{}
	ix.cameraDependent.Remove(slot)
	delete(ix.slots, id)
	ix.free = append(ix.free, slot)
	return true
}

// Clear empties the index.
func (ix *Index) Clear() {
	ix.tree = rtree.RTreeG[uint32]{}
	ix.slots = make(map[string]uint32)
	ix.entries = nil
	ix.free = nil
	ix.cameraDependent.Clear()
}

// Sync re-indexes the named ids from lookup: ids lookup no longer knows
// are removed, the rest re-inserted.
func (ix *Index) Sync(ids []string, lookup func(id string) (*annotation.Feature, bool)) {
	for _, id := range ids {
		if f, ok := lookup(id); ok {
			ix.Insert(f)
		} else {
			ix.Remove(id)
		}
	}
}

// SetCamera re-derives the bounds of camera-dependent features only. It
// returns how many entries were re-indexed.
func (ix *Index) SetCamera(cam host.Camera) int {
	changed := cam.Scale() != ix.camera.Scale() || cam.Rotation != ix.camera.Rotation
	ix.camera = cam
	if !changed {
		return 0
	}

	slots := ix.cameraDependent.ToArray()
	for _, slot := range slots {
		ix.unplace(slot)
		ix.place(slot)
	}
	return len(slots)
}

// Bounds returns the cached bounding box of id.
func (ix *Index) Bounds(id string) (r2.Rect, bool) {
	slot, ok := ix.slots[id]
	if !ok {
		return r2.EmptyRect(), false
	}
	return ix.entries[slot].rect, true
}

// Query returns the features whose bounds intersect window, oldest first.
func (ix *Index) Query(window r2.Rect) []*annotation.Feature {
	if len(ix.slots) == 0 || window.IsEmpty() {
		return nil
	}

	var hits []entry
	ix.tree.Search(toMin(window), toMax(window), func(_, _ [2]float64, slot uint32) bool {
		hits = append(hits, ix.entries[slot])
		return true
	})
	slices.SortFunc(hits, func(a, b entry) int {
		switch {
		case a.seq < b.seq:
			return -1
		case a.seq > b.seq:
			return 1
		}
		return 0
	})

	out := make([]*annotation.Feature, len(hits))
	for i, h := range hits {
		out[i] = h.feature
	}
	return out
}

func (ix *Index) replace(slot uint32, f *annotation.Feature) {
	ix.unplace(slot)
	ix.entries[slot].feature = f
	ix.place(slot)
}

func (ix *Index) place(slot uint32) {
	e := &ix.entries[slot]
	e.rect = ix.bounds(e.feature, ix.camera)
	ix.tree.Insert(toMin(e.rect), toMax(e.rect), slot)
	if CameraDependent(e.feature) {
		ix.cameraDependent.Add(slot)
	} else {
		ix.cameraDependent.Remove(slot)
	}
}

func (ix *Index) unplace(slot uint32) {
	e := ix.entries[slot]
	ix.tree.Delete(toMin(e.rect), toMax(e.rect), slot)
}

func toMin(r r2.Rect) [2]float64 { return [2]float64{r.X.Lo, r.Y.Lo} }

func toMax(r r2.Rect) [2]float64 { return [2]float64{r.X.Hi, r.Y.Hi} }
