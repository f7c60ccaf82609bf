package server

// registry is a name-indexed collection that remembers insertion order.
// Re-inserting a name replaces the value and keeps its original position.
// It is not safe for concurrent use; Server guards it with its own lock.
type registry[T any] struct {
	order []string
	items map[string]T
}

func newRegistry[T any]() registry[T] {
	return registry[T]{items: make(map[string]T)}
}

func (r *registry[T]) put(name string, v T) {
	if _, exists := r.items[name]; !exists {
		r.order = append(r.order, name)
	}
	r.items[name] = v
}

func (r *registry[T]) get(name string) (T, bool) {
	v, ok := r.items[name]
	return v, ok
}

func (r *registry[T]) len() int {
	return len(r.order)
}

// values returns the stored values in insertion order.
func (r *registry[T]) values() []T {
	out := make([]T, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.items[name])
	}
	return out
}
