package model

// RoundStats describes one completed engine round.
type RoundStats struct {
	Model string
	Round int
	// Active is the number of intervals still subject to growth or shrink.
	Active int
	// Frozen is the running total of frozen intervals (generalization only).
	Frozen int
	// Overlaps is the number of overlapping pairs visited this round.
	Overlaps int
	// Resolved is the number of pairs acted on this round: frozen partners
	// for generalization, shrinks for specialization.
	Resolved int
}

// Observer receives per-round statistics. Engines call it synchronously.
type Observer interface {
	ObserveRound(stats RoundStats)
}

// ObserverFunc adapts a function to Observer.
type ObserverFunc func(stats RoundStats)

// ObserveRound implements Observer.
func (f ObserverFunc) ObserveRound(stats RoundStats) {
	f(stats)
}

type multiObserver []Observer

func (m multiObserver) ObserveRound(stats RoundStats) {
	for _, o := range m {
		o.ObserveRound(stats)
	}
}

// MultiObserver fans stats out to every non-nil observer. It returns nil when
// none remain.
func MultiObserver(observers ...Observer) Observer {
	var kept multiObserver

	for _, o := range observers {
		if o != nil {
			kept = append(kept, o)
		}
	}

	switch len(kept) {
	case 0:
		return nil
	case 1:
		return kept[0]
	default:
		return kept
	}
}

// Notify calls o when it is non-nil.
func Notify(o Observer, stats RoundStats) {
	if o != nil {
		o.ObserveRound(stats)
	}
}
