package rangeraptor

import "github.com/breatheroute/raptor/internal/raptor/transit"

type arrivalKind uint8

const (
	accessArrival arrivalKind = iota + 1
	transitArrival
	transferArrival
)

// noArrival is the previous index of an access arrival.
const noArrival int32 = -1

// arrival is one node of an arrival chain. Nodes are immutable once added to the
// arena and refer to their predecessor by index.
type arrival struct {
	kind    arrivalKind
	onBoard bool
	stop    int32
	round   int32
	prev    int32
	c2      int32

	time      int
	departure int
	c1        int

	access     *transit.AccessEgress
	route      *transit.Route
	trip       *transit.Trip
	boardPos   int32
	alightPos  int32
	constraint *transit.TransferConstraint
	transfer   transit.Transfer
}

// arena owns the arrival nodes of one search iteration.
type arena struct {
	nodes []arrival
}

func newArena(capacity int) *arena {
	return &arena{nodes: make([]arrival, 0, capacity)}
}

func (a *arena) add(n arrival) int32 {
	a.nodes = append(a.nodes, n)
	return int32(len(a.nodes) - 1)
}

func (a *arena) get(i int32) *arrival {
	return &a.nodes[i]
}

func (a *arena) len() int {
	return len(a.nodes)
}

// previousTransit returns the nearest transit arrival in the chain ending at i,
// skipping transfers. It returns nil if the chain starts with an access before
// any transit is found.
func (a *arena) previousTransit(i int32) *arrival {
	for i != noArrival {
		n := &a.nodes[i]
		switch n.kind {
		case transitArrival:
			return n
		case accessArrival:
			return nil
		}
		i = n.prev
	}
	return nil
}

// Arrival is a read-only view of one node of an arrival chain. The concrete type
// is one of AccessArrival, TransitArrival or TransferArrival.
type Arrival interface {
	Stop() int
	Round() int
	Time() int
	DepartureTime() int
	C1() int
	C2() int
	// Previous returns the predecessor; ok is false for an access arrival.
	Previous() (Arrival, bool)

	sealed()
}

type nodeRef struct {
	a *arena
	i int32
}

func (r nodeRef) n() *arrival { return r.a.get(r.i) }
func (r nodeRef) Stop() int { return int(r.n().stop) }
func (r nodeRef) Round() int { return int(r.n().round) }
func (r nodeRef) Time() int { return r.n().time }
func (r nodeRef) DepartureTime() int { return r.n().departure }
func (r nodeRef) C1() int { return r.n().c1 }
func (r nodeRef) C2() int { return int(r.n().c2) }
func (r nodeRef) OnBoard() bool { return r.n().onBoard }
func (r nodeRef) sealed() {}
func (r nodeRef) Previous() (Arrival, bool) {
	if p := r.n().prev; p != noArrival {
		return r.a.view(p), true
	}
	return nil, false
}

// AccessArrival is the first node of a chain.
type AccessArrival struct{ nodeRef }

// Access returns the access path.
func (a AccessArrival) Access() transit.AccessEgress { return *a.n().access }

// TransitArrival is reached by riding a trip.
type TransitArrival struct{ nodeRef }

// Route returns the route ridden.
func (a TransitArrival) Route() *transit.Route { return a.n().route }

// Trip returns the trip ridden.
func (a TransitArrival) Trip() *transit.Trip { return a.n().trip }

// BoardPos returns the stop position where the trip was boarded.
func (a TransitArrival) BoardPos() int { return int(a.n().boardPos) }

// AlightPos returns the stop position where the trip was left.
func (a TransitArrival) AlightPos() int { return int(a.n().alightPos) }

// Constraint returns the constrained transfer used to board, if any.
func (a TransitArrival) Constraint() *transit.TransferConstraint { return a.n().constraint }

// TransferArrival is reached by a street transfer.
type TransferArrival struct{ nodeRef }

// Transfer returns the transfer walked.
func (a TransferArrival) Transfer() transit.Transfer { return a.n().transfer }

func (a *arena) view(i int32) Arrival {
	ref := nodeRef{a: a, i: i}
	switch a.nodes[i].kind {
	case accessArrival:
		return AccessArrival{ref}
	case transitArrival:
		return TransitArrival{ref}
	default:
		return TransferArrival{ref}
	}
}

// chain returns the views of the chain ending at i, in travel order.
func (a *arena) chain(i int32) []Arrival {
	var out []Arrival
	for j := i; j != noArrival; j = a.nodes[j].prev {
		out = append(out, a.view(j))
	}
	for l, r := 0, len(out)-1; l < r; l, r = l+1, r-1 {
		out[l], out[r] = out[r], out[l]
	}
	return out
}
