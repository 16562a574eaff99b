// Package heap implements the reference-counted, paged allocator backing
// every garbage-collected Willow value (dynamic arrays, maps, strings,
// interfaces, closures, fibers — spec §4.8). Unlike the rest of this
// module, pointers here cannot be native Go pointers: a weak pointer must
// not keep its target alive, which Go's own garbage collector would do if
// a real *Object reference existed anywhere reachable. Instead every
// pointer — strong or weak — is a Ptr handle of {page id, chunk index},
// generalized here to also cover strong pointers so Go's GC has nothing to
// chase.
package heap

import (
	"fmt"

	"github.com/willow-lang/willow/internal/types"
)

// Ptr is a heap pointer handle: page id packed in the high 32 bits, chunk
// index in the low 32 bits. The zero value is the null pointer.
type Ptr uint64

// NullPtr is the null/"nil" pointer value.
const NullPtr Ptr = 0

func makePtr(page, chunk int32) Ptr {
	return Ptr(uint64(uint32(page))<<32 | uint64(uint32(chunk)))
}

// PageID returns the page component of the handle.
func (p Ptr) PageID() int32 { return int32(p >> 32) }

// Chunk returns the chunk-index component of the handle.
func (p Ptr) Chunk() int32 { return int32(uint32(p)) }

// IsNull reports whether p is the null pointer.
func (p Ptr) IsNull() bool { return p == NullPtr }

// OnFree is called once a chunk's reference count drops to zero, giving an
// optional extern-function callback a chance to release any associated
// host resource.
type OnFree func(data []byte)

type chunk struct {
	refCnt  int32
	data    []byte
	typ     *types.Type
	onFree  OnFree
	isStack bool
	ip      int64 // instruction pointer at allocation, for leak diagnostics
	free    bool
}

// page is a fixed-capacity run of same-size chunks (spec §4.8: "a paged
// chunk allocator") found by a best-fit search across pages.
type page struct {
	id        int32
	chunkSize int
	chunks    []chunk
	occupied  int
}

// Heap owns every page allocated during one VM's lifetime.
type Heap struct {
	pages   []*page
	nextID  int32
	total   int64
	onLeak  func(msg string)
}

// New creates an empty heap. onLeak, if non-nil, is invoked once per chunk
// still allocated when Close runs (spec §8 invariant: "every chunk
// refcounted to zero by program exit, or reported as a leak").
func New(onLeak func(msg string)) *Heap {
	return &Heap{nextID: 1, onLeak: onLeak}
}

const minChunksPerPage = 8

// Alloc reserves size bytes for a value of type typ, returning a strong
// pointer with ref count 1 (spec §4.8, §4.9 "make": "allocates data with
// capacity clamped to fit the allocation limit").
func (h *Heap) Alloc(size int, typ *types.Type, onFree OnFree, isStack bool, ip int64) Ptr {
	if size < 0 {
		size = 0
	}
	pg := h.findForAlloc(size)
	if pg == nil {
		pg = h.addPage(size)
	}

	idx := pg.firstFree()
	pg.chunks[idx] = chunk{
		refCnt:  1,
		data:    make([]byte, size),
		typ:     typ,
		onFree:  onFree,
		isStack: isStack,
		ip:      ip,
	}
	pg.occupied++
	h.total += int64(size)
	return makePtr(pg.id, int32(idx))
}

func (h *Heap) findForAlloc(size int) *page {
	var best *page
	for _, pg := range h.pages {
		if pg.occupied >= len(pg.chunks) {
			continue
		}
		if pg.chunkSize == size {
			return pg
		}
		if pg.chunkSize > size && (best == nil || pg.chunkSize < best.chunkSize) {
			best = pg
		}
	}
	return best
}

func (pg *page) firstFree() int {
	for i := range pg.chunks {
		if pg.chunks[i].free || pg.chunks[i].data == nil {
			return i
		}
	}
	panic("heap: page reported free capacity but has none")
}

func (h *Heap) addPage(chunkSize int) *page {
	n := minChunksPerPage
	pg := &page{id: h.nextID, chunkSize: chunkSize, chunks: make([]chunk, n)}
	for i := range pg.chunks {
		pg.chunks[i].free = true
	}
	h.nextID++
	h.pages = append(h.pages, pg)
	return pg
}

func (h *Heap) findPage(id int32) *page {
	for _, pg := range h.pages {
		if pg.id == id {
			return pg
		}
	}
	return nil
}

// chunkAt resolves a pointer to its backing chunk, or an error if the
// pointer is dangling (spec §8: "dereferencing a freed chunk fails with
// 'Dangling pointer'").
func (h *Heap) chunkAt(p Ptr) (*chunk, error) {
	pg := h.findPage(p.PageID())
	if pg == nil {
		return nil, fmt.Errorf("Dangling pointer at %#x", uint64(p))
	}
	idx := int(p.Chunk())
	if idx < 0 || idx >= len(pg.chunks) || pg.chunks[idx].free {
		return nil, fmt.Errorf("Dangling pointer at %#x", uint64(p))
	}
	return &pg.chunks[idx], nil
}

// Deref returns the raw bytes backing p.
func (h *Heap) Deref(p Ptr) ([]byte, error) {
	c, err := h.chunkAt(p)
	if err != nil {
		return nil, err
	}
	return c.data, nil
}

// Type returns the declared type of the chunk at p, if recorded.
func (h *Heap) Type(p Ptr) (*types.Type, error) {
	c, err := h.chunkAt(p)
	if err != nil {
		return nil, err
	}
	return c.typ, nil
}

// ChangeRefCnt implements the four CHANGE_REF_CNT* opcode forms' shared
// core: adjust the chunk's reference count by delta, releasing it (and
// invoking onFree) once it reaches zero (spec §4.7, §4.8).
func (h *Heap) ChangeRefCnt(p Ptr, delta int32) (int32, error) {
	if p.IsNull() {
		return 0, nil
	}
	c, err := h.chunkAt(p)
	if err != nil {
		return 0, err
	}
	c.refCnt += delta
	if c.refCnt < 0 {
		return 0, fmt.Errorf("negative reference count at %#x", uint64(p))
	}
	if c.refCnt == 0 {
		h.release(p, c)
	}
	return c.refCnt, nil
}

func (h *Heap) release(p Ptr, c *chunk) {
	if c.onFree != nil {
		c.onFree(c.data)
	}
	h.total -= int64(len(c.data))
	pg := h.findPage(p.PageID())
	pg.chunks[p.Chunk()] = chunk{free: true}
	pg.occupied--
}

// Weaken implements WEAKEN_PTR: since strong and weak pointers share the
// same page/chunk encoding, this is an identity conversion that exists (as
// a distinct opcode) purely so the type system can forbid dereferencing a
// weak pointer directly (spec §4.2: weak pointers require STRENGTHEN_PTR
// first).
func (h *Heap) Weaken(p Ptr) Ptr { return p }

// Strengthen implements STRENGTHEN_PTR: look up whether the target chunk is
// still alive and, if so, increment its reference count and return a
// strong pointer; otherwise return the null pointer (spec §4.8).
func (h *Heap) Strengthen(weak Ptr) (Ptr, error) {
	if weak.IsNull() {
		return NullPtr, nil
	}
	c, err := h.chunkAt(weak)
	if err != nil {
		return NullPtr, nil //nolint:nilerr // dead weak pointer strengthens to null, not an error
	}
	c.refCnt++
	return weak, nil
}

// MemUsage reports total bytes currently allocated across all pages, for
// the embedding API's Stats() (spec §6).
func (h *Heap) MemUsage() int64 { return h.total }

// Stats reports the heap's current page/chunk/byte occupancy, backing the
// embedding API's mem-usage operation (spec §6) and the leak invariant test
// (spec §8 invariant 1: "total heap size returns to the stack chunk only").
type Stats struct {
	Pages      int
	LiveChunks int
	LiveBytes  int64
}

func (h *Heap) Stats() Stats {
	s := Stats{Pages: len(h.pages)}
	for _, pg := range h.pages {
		for _, c := range pg.chunks {
			if !c.free {
				s.LiveChunks++
				s.LiveBytes += int64(len(c.data))
			}
		}
	}
	return s
}

// Close reports every chunk still allocated as a leak via onLeak (spec §8).
func (h *Heap) Close() {
	if h.onLeak == nil {
		return
	}
	for _, pg := range h.pages {
		for i, c := range pg.chunks {
			if !c.free && c.data != nil {
				h.onLeak(fmt.Sprintf("chunk leaked: page %d chunk %d, %d bytes, refcnt %d", pg.id, i, len(c.data), c.refCnt))
			}
		}
	}
}
