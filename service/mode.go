package service

// ReentrancyMode is one of the four fixed re-entrancy disciplines a
// service exposes (spec §4.3 "Re-entrancy modes").
type ReentrancyMode int

const (
	// Forbidden: at most one fiber ever; no new message-born fiber may
	// start while the current one is Paused/Yielded/Waiting (spec §9
	// Open Question, pinned: "pin current, queue new").
	Forbidden ReentrancyMode = iota
	// Exclusive: while any fiber is live, new fibers are allowed only if
	// their CallerFiberID names a fiber of this service (spec §9 Open
	// Question, pinned: a brand new message-born Initial fiber is never
	// eligible while anything is in flight; it is admitted only once the
	// service has no live fiber).
	Exclusive
	// Prioritized: prefer already-started fibers over new ones, start a
	// new one only if nothing already-started is ready.
	Prioritized
	// Open: round-robin among all runnable fibers, new and old alike.
	Open
)

var modeNames = [...]string{"Forbidden", "Exclusive", "Prioritized", "Open"}

func (m ReentrancyMode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "Unknown"
}
