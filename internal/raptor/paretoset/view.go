package paretoset

// Recent is a read view over the elements added since the last marker.
type Recent[T any] struct {
	set *Set[T]
}

// Len returns the number of elements after the marker.
func (r Recent[T]) Len() int {
	return len(r.set.elements) - r.set.marker
}

// At returns the i-th element after the marker.
func (r Recent[T]) At(i int) T {
	return r.set.elements[r.set.marker+i]
}

// Stream is a read view over every element of a set.
type Stream[T any] struct {
	set *Set[T]
}

// Len returns the number of elements.
func (s Stream[T]) Len() int {
	return len(s.set.elements)
}

// At returns the i-th element in insertion order.
func (s Stream[T]) At(i int) T {
	return s.set.elements[i]
}

// ToSlice copies the elements into a new slice.
func (s Stream[T]) ToSlice() []T {
	out := make([]T, len(s.set.elements))
	copy(out, s.set.elements)
	return out
}
