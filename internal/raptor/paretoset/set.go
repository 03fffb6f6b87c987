// Package paretoset provides a Pareto set: a container keeping only elements that
// are not dominated by any other element under an injected comparator.
package paretoset

// Dominance reports whether left is strictly better than right on at least one
// criterion. Two elements where neither dominates the other are equal on every
// criterion; two elements where both dominate are incomparable and may coexist.
type Dominance[T any] func(left, right T) bool

// Option configures a Set.
type Option[T any] func(*Set[T])

// WithAcceptFunc registers a callback invoked after every accepted element.
func WithAcceptFunc[T any](fn func(T)) Option[T] {
	return func(s *Set[T]) {
		s.onAccept = fn
	}
}

// WithDropFunc registers a callback invoked for every element evicted by a new,
// dominating element.
func WithDropFunc[T any](fn func(dropped, by T)) Option[T] {
	return func(s *Set[T]) {
		s.onDrop = fn
	}
}

// Set is an order-preserving Pareto set. New elements are appended; evicted
// elements are removed without reordering the rest.
//
// Reading is split in two views: Recent lists the elements added since the last
// MarkAtEndOfSet and is meant for per-round loops, Stream lists everything and is
// meant for result extraction and tests.
type Set[T any] struct {
	elements  []T
	dominates Dominance[T]
	marker    int
	onAccept  func(T)
	onDrop    func(dropped, by T)
}

// New creates an empty set using the given comparator.
func New[T any](dominates Dominance[T], opts ...Option[T]) *Set[T] {
	s := &Set[T]{dominates: dominates}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Len returns the number of elements in the set.
func (s *Set[T]) Len() int {
	return len(s.elements)
}

// IsEmpty reports whether the set holds no elements.
func (s *Set[T]) IsEmpty() bool {
	return len(s.elements) == 0
}

// Add inserts v unless it is dominated by, or equal to, an element in the set.
// Elements dominated by v are evicted. It returns true if v was inserted.
func (s *Set[T]) Add(v T) bool {
	if len(s.elements) == 0 {
		s.accept(v)
		return true
	}

	mutual, equivalent := false, false
	for i, e := range s.elements {
		left := s.dominates(v, e)
		right := s.dominates(e, v)

		switch {
		case left && right:
			mutual = true
		case left:
			s.removeDominatedFrom(i, v)
			s.accept(v)
			return true
		case right:
			return false
		default:
			equivalent = true
		}
	}

	if mutual && !equivalent {
		s.accept(v)
		return true
	}
	return false
}

// Qualify reports whether Add(v) would insert v, without modifying the set.
func (s *Set[T]) Qualify(v T) bool {
	if len(s.elements) == 0 {
		return true
	}

	mutual, equivalent := false, false
	for _, e := range s.elements {
		left := s.dominates(v, e)
		right := s.dominates(e, v)

		switch {
		case left && right:
			mutual = true
		case left:
			return true
		case right:
			return false
		default:
			equivalent = true
		}
	}
	return mutual && !equivalent
}

// MarkAtEndOfSet moves the marker behind the last element. Elements added after
// this call are listed by Recent.
func (s *Set[T]) MarkAtEndOfSet() {
	s.marker = len(s.elements)
}

// Recent returns a view of the elements added since the last MarkAtEndOfSet.
func (s *Set[T]) Recent() Recent[T] {
	return Recent[T]{set: s}
}

// Stream returns a view of all elements. It is not meant for per-round loops.
func (s *Set[T]) Stream() Stream[T] {
	return Stream[T]{set: s}
}

func (s *Set[T]) accept(v T) {
	s.elements = append(s.elements, v)
	if s.onAccept != nil {
		s.onAccept(v)
	}
}

// removeDominatedFrom removes the element at index and every later element
// dominated by v, keeping the order of the survivors. Elements before index
// are known to be incomparable with v. The marker moves down by the number of
// removed elements that were before it.
func (s *Set[T]) removeDominatedFrom(index int, v T) {
	marker := s.marker
	s.drop(index, marker, v)
	n := index

	for i := index + 1; i < len(s.elements); i++ {
		e := s.elements[i]
		if s.dominates(v, e) && !s.dominates(e, v) {
			s.drop(i, marker, v)
			continue
		}
		s.elements[n] = e
		n++
	}

	var zero T
	for i := n; i < len(s.elements); i++ {
		s.elements[i] = zero
	}
	s.elements = s.elements[:n]
}

func (s *Set[T]) drop(index, marker int, by T) {
	if index < marker {
		s.marker--
	}
	if s.onDrop != nil {
		s.onDrop(s.elements[index], by)
	}
}
