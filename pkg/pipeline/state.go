package pipeline

// State is a step of one pipeline run.
type State string

const (
	StateIdle              State = "idle"
	StateValidating        State = "validating"
	StateCacheLookup       State = "cache_lookup"
	StateAcquiring         State = "acquiring"
	StateCapturing         State = "capturing"
	StateExtracting        State = "extracting"
	StateAwaitingInference State = "awaiting_inference"
	StatePostProcessing    State = "post_processing"
	StateCacheStore        State = "cache_store"
	StateDone              State = "done"
	StateFailed            State = "failed"
)

// Transition is one state change of a run.
type Transition struct {
	RequestID string
	From      State
	To        State
}

// run tracks the state of a single request.
type run struct {
	requestID string
	state     State
	observe   func(Transition)
}

func (r *run) enter(next State) {
	prev := r.state
	r.state = next
	if r.observe != nil {
		r.observe(Transition{RequestID: r.requestID, From: prev, To: next})
	}
}
