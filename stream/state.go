package stream

// State is a step of the stream's cursor lifecycle.
type State uint32

const (
	// Idle: created, nothing read yet.
	Idle State = iota
	// Opening a transaction and cursor.
	Opening
	// Advancing: waiting for the cursor's next record.
	Advancing
	// Emitting a record into the buffer.
	Emitting
	// Draining: the buffer is full; waiting for the consumer.
	Draining
	// Ended: the range was exhausted.
	Ended
	// Errored: a failure stopped the stream; see Err.
	Errored
	// Closed by Close.
	Closed
)

var stateNames = [...]string{
	Idle:      "idle",
	Opening:   "opening",
	Advancing: "advancing",
	Emitting:  "emitting",
	Draining:  "draining",
	Ended:     "ended",
	Errored:   "errored",
	Closed:    "closed",
}

func (state State) String() string {
	if int(state) < len(stateNames) {
		return stateNames[state]
	}
	return "unknown"
}

// Terminal reports whether the stream has stopped for good.
func (state State) Terminal() bool {
	return state == Ended || state == Errored || state == Closed
}
