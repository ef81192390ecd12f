package live

import (
	"net/url"
	"regexp"
	"strings"
)

// ConnectionIntent classifies what an incoming connection's address asks for.
type ConnectionIntent int

const (
	// IntentBare is any unrecognized path shape: the socket is accepted and
	// registered with no room association.
	IntentBare ConnectionIntent = iota
	// IntentHost is a host connect: /ws/stream/live/{hostId}?token=...
	IntentHost
	// IntentParticipant is a participant join:
	// /ws/stream/live/join/event/{roomId}/{displayName}/{participantId}
	IntentParticipant
)

// ConnectionInfo is the parsed address of an incoming connection.
type ConnectionInfo struct {
	Intent        ConnectionIntent
	HostID        string
	RoomID        string
	DisplayName   string
	ParticipantID string
	Token         string
}

var numericSegment = regexp.MustCompile(`^\d+$`)

// ClassifyAddress derives role and identity purely from path segment
// position. Host: exactly four segments with a numeric tail. Participant:
// the literal join/event markers followed by room id, display name, and a
// numeric participant id. Everything else is a bare connection.
// path must be the escaped request path; the display name segment is
// unescaped exactly once here.
func ClassifyAddress(path, rawQuery string) ConnectionInfo {
	info := ConnectionInfo{Intent: IntentBare}

	segs := splitPath(path)
	switch {
	case len(segs) == 4 && segs[1] == "stream" && segs[2] == "live" && numericSegment.MatchString(segs[3]):
		info.Intent = IntentHost
		info.HostID = segs[3]
		info.Token = tokenFromQuery(rawQuery)

	case len(segs) == 8 && segs[3] == "join" && segs[4] == "event" && numericSegment.MatchString(segs[7]):
		name, err := url.PathUnescape(segs[6])
		if err != nil {
			name = segs[6]
		}
		if segs[5] == "" || name == "" {
			return info
		}
		info.Intent = IntentParticipant
		info.RoomID = segs[5]
		info.DisplayName = name
		info.ParticipantID = segs[7]
	}
	return info
}

func splitPath(path string) []string {
	path = strings.Trim(path, "/")
	if path == "" {
		return nil
	}
	return strings.Split(path, "/")
}

func tokenFromQuery(rawQuery string) string {
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return ""
	}
	return values.Get("token")
}
