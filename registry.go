package dieselvk

// Destroyer is a resource that releases its GPU objects and memory together.
type Destroyer interface {
	Destroy()
}

// Handle names a registry entry. The zero Handle is never valid.
type Handle struct {
	index uint32
	gen   uint32
}

func (h Handle) Valid() bool { return h.gen != 0 }

type slot[T Destroyer] struct {
	value T
	gen   uint32
	live  bool
}

// Registry owns resources on behalf of the engine and hands out handles
// instead of names. A handle goes stale when its entry is removed, even if
// the index is reused.
type Registry[T Destroyer] struct {
	slots []slot[T]
	free  []uint32
	live  int
}

func NewRegistry[T Destroyer]() *Registry[T] {
	return &Registry[T]{}
}

func (r *Registry[T]) Add(v T) Handle {
	var i uint32
	if n := len(r.free); n > 0 {
		i = r.free[n-1]
		r.free = r.free[:n-1]
	} else {
		i = uint32(len(r.slots))
		r.slots = append(r.slots, slot[T]{})
	}
	s := &r.slots[i]
	s.gen++
	s.value, s.live = v, true
	r.live++
	return Handle{index: i, gen: s.gen}
}

func (r *Registry[T]) Get(h Handle) (T, bool) {
	if s := r.lookup(h); s != nil {
		return s.value, true
	}
	var zero T
	return zero, false
}

// Remove destroys the entry behind h. It reports false for stale handles.
func (r *Registry[T]) Remove(h Handle) bool {
	s := r.lookup(h)
	if s == nil {
		return false
	}
	s.value.Destroy()
	var zero T
	s.value, s.live = zero, false
	r.free = append(r.free, h.index)
	r.live--
	return true
}

func (r *Registry[T]) Len() int { return r.live }

// DestroyAll destroys every live entry, newest first, and invalidates all
// outstanding handles.
func (r *Registry[T]) DestroyAll() {
	for i := len(r.slots) - 1; i >= 0; i-- {
		if r.slots[i].live {
			r.Remove(Handle{index: uint32(i), gen: r.slots[i].gen})
		}
	}
}

func (r *Registry[T]) lookup(h Handle) *slot[T] {
	if !h.Valid() || int(h.index) >= len(r.slots) {
		return nil
	}
	s := &r.slots[h.index]
	if !s.live || s.gen != h.gen {
		return nil
	}
	return s
}
