package rangeraptor

// Subscriptions collects lifecycle callbacks before a search starts. Callbacks
// for one event run synchronously in registration order.
type Subscriptions struct {
	setupIteration            []func(departureTime int)
	prepareForNextRound       []func(round int)
	transitsForRoundComplete  []func(round int)
	transfersForRoundComplete []func(round int)
	roundComplete             []func(round int, destinationReached bool)
	iterationComplete         []func(departureTime int)
	searchComplete            []func()
}

// OnSetupIteration is called before the first round of every iteration.
func (s *Subscriptions) OnSetupIteration(fn func(departureTime int)) {
	s.setupIteration = append(s.setupIteration, fn)
}

// OnPrepareForNextRound is called before the transit relaxation of a round.
func (s *Subscriptions) OnPrepareForNextRound(fn func(round int)) {
	s.prepareForNextRound = append(s.prepareForNextRound, fn)
}

// OnTransitsForRoundComplete is called after all routes of a round are relaxed.
func (s *Subscriptions) OnTransitsForRoundComplete(fn func(round int)) {
	s.transitsForRoundComplete = append(s.transitsForRoundComplete, fn)
}

// OnTransfersForRoundComplete is called after the transfers of a round are relaxed.
func (s *Subscriptions) OnTransfersForRoundComplete(fn func(round int)) {
	s.transfersForRoundComplete = append(s.transfersForRoundComplete, fn)
}

// OnRoundComplete is called at the end of a round.
func (s *Subscriptions) OnRoundComplete(fn func(round int, destinationReached bool)) {
	s.roundComplete = append(s.roundComplete, fn)
}

// OnIterationComplete is called after the last round of an iteration.
func (s *Subscriptions) OnIterationComplete(fn func(departureTime int)) {
	s.iterationComplete = append(s.iterationComplete, fn)
}

// OnSearchComplete is called once after the last iteration.
func (s *Subscriptions) OnSearchComplete(fn func()) {
	s.searchComplete = append(s.searchComplete, fn)
}

// Publisher returns an immutable publisher holding a copy of the callbacks.
// Later subscriptions do not affect it.
func (s *Subscriptions) Publisher() *Publisher {
	return &Publisher{subs: Subscriptions{
		setupIteration:            clone(s.setupIteration),
		prepareForNextRound:       clone(s.prepareForNextRound),
		transitsForRoundComplete:  clone(s.transitsForRoundComplete),
		transfersForRoundComplete: clone(s.transfersForRoundComplete),
		roundComplete:             clone(s.roundComplete),
		iterationComplete:         clone(s.iterationComplete),
		searchComplete:            clone(s.searchComplete),
	}}
}

func clone[T any](in []T) []T {
	return append([]T(nil), in...)
}

// Publisher dispatches lifecycle events to the callbacks it was built with.
type Publisher struct {
	subs Subscriptions
}

func (p *Publisher) setupIteration(departureTime int) {
	for _, fn := range p.subs.setupIteration {
		fn(departureTime)
	}
}

func (p *Publisher) prepareForNextRound(round int) {
	for _, fn := range p.subs.prepareForNextRound {
		fn(round)
	}
}

func (p *Publisher) transitsForRoundComplete(round int) {
	for _, fn := range p.subs.transitsForRoundComplete {
		fn(round)
	}
}

func (p *Publisher) transfersForRoundComplete(round int) {
	for _, fn := range p.subs.transfersForRoundComplete {
		fn(round)
	}
}

func (p *Publisher) roundComplete(round int, destinationReached bool) {
	for _, fn := range p.subs.roundComplete {
		fn(round, destinationReached)
	}
}

func (p *Publisher) iterationComplete(departureTime int) {
	for _, fn := range p.subs.iterationComplete {
		fn(departureTime)
	}
}

func (p *Publisher) searchComplete() {
	for _, fn := range p.subs.searchComplete {
		fn()
	}
}
