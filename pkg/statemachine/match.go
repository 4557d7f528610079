package statemachine

// none marks an unset input position.
const none = -1

// Match is one maximal run reported by Machine.Match.
// Start and End are inclusive indices into the scanned sequence.
type Match[T comparable] struct {
	Start int
	End   int
	Tags  []T
}

// Len returns the number of symbols covered by the match.
func (m Match[T]) Len() int {
	return m.End - m.Start + 1
}

// Action is invoked by Apply for a tagged match. sub is seq[start:end+1] and
// shares memory with the scanned sequence.
type Action[S comparable] func(start, end int, sub []S)

// Actions maps tags to the action to run for them. Tags without an entry, or
// with a nil entry, are skipped.
type Actions[S comparable, T comparable] map[T]Action[S]

// Match scans seq and returns every maximal run that ends in an accepting
// state, in order of increasing start position. Runs never overlap.
//
// A run that reaches FailState is closed at its last accepting position and
// the failing symbol is retried from InitialState. The tags of a run closed
// this way come from the state the run was in just before it failed; the
// tags of the run still open at end of input come from the final state.
func (m *Machine[S, T]) Match(seq []S) []Match[T] {
	var (
		matches       []Match[T]
		state         = InitialState
		startRun      = none
		lastAccepting = none
	)

	for p, c := range seq {
		previousState := state
		state = m.Next(state, c)

		if state == FailState {
			if startRun != none && lastAccepting >= startRun {
				matches = append(matches, Match[T]{
					Start: startRun,
					End:   lastAccepting,
					Tags:  m.TagsOf(previousState),
				})
			}

			state = m.Next(InitialState, c)
			startRun = none
		}

		if state != FailState && startRun == none {
			startRun = p
		}

		if m.IsAccepting(state) {
			lastAccepting = p
		}

		if state == FailState {
			state = InitialState
		}
	}

	if startRun != none && lastAccepting >= startRun {
		matches = append(matches, Match[T]{
			Start: startRun,
			End:   lastAccepting,
			Tags:  m.TagsOf(state),
		})
	}

	return matches
}

// Apply scans seq and, for every match and every tag on it in order, calls
// the action registered for that tag.
func (m *Machine[S, T]) Apply(seq []S, actions Actions[S, T]) {
	for _, match := range m.Match(seq) {
		for _, tag := range match.Tags {
			if action := actions[tag]; action != nil {
				action(match.Start, match.End, seq[match.Start:match.End+1])
			}
		}
	}
}
