package focus

// State is the phase of the engine's round lifecycle.
type State int

const (
	StateIdle     State = iota // No round has been started yet
	StatePlaying               // Clock running, waiting for the target symbol
	StateFinished              // Target symbol pressed, outcome available
)

// String returns a human-readable name for the state.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StatePlaying:
		return "Playing"
	case StateFinished:
		return "Finished"
	default:
		return "Unknown"
	}
}

// Advisory is a non-blocking note shown next to a finished round.
type Advisory int

const (
	AdvisoryNone     Advisory = iota
	AdvisorySignIn            // Round finished without a signed-in user
	AdvisorySaving            // Record handed to the store, result pending
	AdvisorySaved             // Store accepted the record
	AdvisoryNotSaved          // Store rejected the record or is unavailable
)

// String returns the text shown to the player.
func (a Advisory) String() string {
	switch a {
	case AdvisorySignIn:
		return "Sign in to save your score to the leaderboard!"
	case AdvisorySaving:
		return "Submitting score..."
	case AdvisorySaved:
		return "Score saved."
	case AdvisoryNotSaved:
		return "Score not saved."
	default:
		return ""
	}
}
