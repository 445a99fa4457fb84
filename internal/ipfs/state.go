package ipfs

// State enumerates the lifecycle of the supervised daemon.
type State int32

const (
	NotStarted State = iota
	VersionChecked
	DaemonStarted
	Connected
	ConnectFailed
	VersionCheckFailed
	DaemonStartFailed
)

var stateNames = [...]string{
	NotStarted:         "not_started",
	VersionChecked:     "version_checked",
	DaemonStarted:      "daemon_started",
	Connected:          "connected",
	ConnectFailed:      "connect_failed",
	VersionCheckFailed: "version_check_failed",
	DaemonStartFailed:  "daemon_start_failed",
}

func (s State) String() string {
	if s < 0 || int(s) >= len(stateNames) {
		return "unknown"
	}
	return stateNames[s]
}

// Failed reports whether the state ends the supervisor loop.
func (s State) Failed() bool {
	switch s {
	case ConnectFailed, VersionCheckFailed, DaemonStartFailed:
		return true
	default:
		return false
	}
}

// ParseState converts a snake-case name back into a State.
func ParseState(name string) (State, bool) {
	for idx, candidate := range stateNames {
		if candidate == name {
			return State(idx), true
		}
	}
	return NotStarted, false
}
