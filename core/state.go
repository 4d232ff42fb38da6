package realtime

// State is a session's lifecycle position. Sessions move strictly forward
// through the streaming states and terminate exactly once, in either
// [StateClosed] or [StateFailed].
type State int

const (
	StateIdle State = iota
	StateConnecting
	StateReady
	StateStreaming
	StateClosing
	StateClosed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateConnecting:
		return "connecting"
	case StateReady:
		return "ready"
	case StateStreaming:
		return "streaming"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether no further transitions are possible.
func (s State) Terminal() bool {
	return s == StateClosed || s == StateFailed
}

// canSendAudio reports whether audio submission is accepted in s.
func (s State) canSendAudio() bool {
	return s == StateReady || s == StateStreaming
}
