package live

import (
	"testing"
	"time"
)

func activeRoom() *RoomState {
	return &RoomState{
		RoomID:        "r1",
		HostID:        "42",
		HostName:      "DJ Prime",
		HostSessionID: "sess-host",
		Status:        StatusActive,
		StreamType:    StreamTypeAudio,
		CreatedAt:     time.Now().UTC(),
		Participants:  []Participant{},
	}
}

func TestRoomStateJoinFirstTime(t *testing.T) {
	r := activeRoom()
	now := time.Now().UTC()

	reconnect := r.Join("7", "Alice", "sess-a", now)
	if reconnect {
		t.Fatal("first join reported as reconnect")
	}
	if r.ParticipantCount != 1 {
		t.Fatalf("ParticipantCount = %d, want 1", r.ParticipantCount)
	}
	p, ok := r.Find("7")
	if !ok {
		t.Fatal("participant not on roster after join")
	}
	if p.Name != "Alice" || p.SessionID != "sess-a" {
		t.Errorf("roster entry = %+v", p)
	}
	if p.Reconnected {
		t.Error("fresh join flagged as reconnect")
	}
}

func TestRoomStateRejoinDoesNotDoubleCount(t *testing.T) {
	r := activeRoom()
	r.Join("7", "Alice", "sess-a", time.Now().UTC())

	reconnect := r.Join("7", "Alice", "sess-b", time.Now().UTC())
	if !reconnect {
		t.Fatal("rejoin not reported as reconnect")
	}
	if r.ParticipantCount != 1 {
		t.Fatalf("ParticipantCount = %d after rejoin, want 1", r.ParticipantCount)
	}
	if len(r.Participants) != 1 {
		t.Fatalf("roster length = %d after rejoin, want 1", len(r.Participants))
	}
	p, _ := r.Find("7")
	if p.SessionID != "sess-b" {
		t.Errorf("SessionID = %q, want the new session", p.SessionID)
	}
	if !p.Reconnected {
		t.Error("rejoined entry not flagged is_reconnect")
	}
}

func TestRoomStateRemove(t *testing.T) {
	r := activeRoom()
	r.Join("7", "Alice", "sess-a", time.Now().UTC())
	r.Join("8", "Bob", "sess-b", time.Now().UTC())

	removed, ok := r.Remove("7")
	if !ok {
		t.Fatal("remove missed an existing participant")
	}
	if removed.Name != "Alice" {
		t.Errorf("removed.Name = %q, want Alice", removed.Name)
	}
	if r.ParticipantCount != 1 {
		t.Fatalf("ParticipantCount = %d, want 1", r.ParticipantCount)
	}
	if _, ok := r.Find("7"); ok {
		t.Error("removed participant still on roster")
	}

	if _, ok := r.Remove("7"); ok {
		t.Error("second remove of same identity reported success")
	}
	if r.ParticipantCount != 1 {
		t.Errorf("ParticipantCount moved on failed remove: %d", r.ParticipantCount)
	}
}

func TestRoomStateRemoveClampsAtZero(t *testing.T) {
	r := activeRoom()
	r.Join("7", "Alice", "sess-a", time.Now().UTC())
	// Counter drifted below roster size; removal must not go negative.
	r.ParticipantCount = 0

	if _, ok := r.Remove("7"); !ok {
		t.Fatal("remove failed")
	}
	if r.ParticipantCount != 0 {
		t.Errorf("ParticipantCount = %d, want 0", r.ParticipantCount)
	}
}

func TestRoomStateSetCoHostIdempotent(t *testing.T) {
	r := activeRoom()
	r.Join("7", "Alice", "sess-a", time.Now().UTC())

	p, ok := r.SetCoHost("7", true)
	if !ok || !p.CoHost {
		t.Fatalf("grant failed: ok=%v p=%+v", ok, p)
	}
	p, ok = r.SetCoHost("7", true)
	if !ok || !p.CoHost {
		t.Fatal("repeated grant changed outcome")
	}
	p, ok = r.SetCoHost("7", false)
	if !ok || p.CoHost {
		t.Fatal("revoke failed")
	}
	if _, ok := r.SetCoHost("99", true); ok {
		t.Error("grant succeeded for identity not on roster")
	}
}

func TestRoomStateHasSession(t *testing.T) {
	r := activeRoom()
	r.Join("7", "Alice", "sess-a", time.Now().UTC())

	if !r.HasSession("sess-host") {
		t.Error("host session not recognized")
	}
	if !r.HasSession("sess-a") {
		t.Error("participant session not recognized")
	}
	if r.HasSession("sess-x") {
		t.Error("unknown session recognized")
	}
}
