package render

// State is a pipeline position of a render job.
type State string

const (
	// StateQueued is held by accepted jobs waiting for a worker. The
	// controller itself starts at StateInit.
	StateQueued        State = "QUEUED"
	StateInit          State = "INIT"
	StateVoicesReady   State = "VOICES_READY"
	StateAudioReady    State = "AUDIO_READY"
	StateDraftRendered State = "DRAFT_RENDERED"
	StateCaptionsBuilt State = "CAPTIONS_BUILT"
	StateFinalRendered State = "FINAL_RENDERED"
	StateCleanedUp     State = "CLEANED_UP"
	StateFailed        State = "FAILED"
)

var pipelineOrder = []State{
	StateQueued,
	StateInit,
	StateVoicesReady,
	StateAudioReady,
	StateDraftRendered,
	StateCaptionsBuilt,
	StateFinalRendered,
	StateCleanedUp,
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateCleanedUp || s == StateFailed
}

// CanTransition reports whether next may follow s.
func (s State) CanTransition(next State) bool {
	if s.Terminal() {
		return false
	}
	if next == StateFailed {
		return true
	}
	for i, state := range pipelineOrder[:len(pipelineOrder)-1] {
		if state == s {
			return pipelineOrder[i+1] == next
		}
	}
	return false
}

// States lists every state in pipeline order, FAILED last.
func States() []State {
	return append(append([]State(nil), pipelineOrder...), StateFailed)
}
