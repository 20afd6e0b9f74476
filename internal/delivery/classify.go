package delivery

import "strings"

type ErrorKind int

const (
	KindUnknown ErrorKind = iota
	KindMedia
	KindSession
)

func (k ErrorKind) String() string {
	switch k {
	case KindMedia:
		return "media"
	case KindSession:
		return "session"
	default:
		return "unknown"
	}
}

// Provider errors are free text, so classification is a case-insensitive
// substring match. Session markers are checked first.
var (
	sessionMarkers = []string{
		"no session",
		"session",
		"not connected",
		"logged out",
		"unauthorized",
		"status 401",
	}
	mediaMarkers = []string{
		"upload",
		"media",
		"websocket",
		"timed out",
		"timeout",
		"connection reset",
		"eof",
	}
)

func Classify(err error) ErrorKind {
	if err == nil {
		return KindUnknown
	}

	msg := strings.ToLower(err.Error())

	for _, marker := range sessionMarkers {
		if strings.Contains(msg, marker) {
			return KindSession
		}
	}
	for _, marker := range mediaMarkers {
		if strings.Contains(msg, marker) {
			return KindMedia
		}
	}

	return KindUnknown
}
