package live

import "testing"

func TestRegistryAddGetRemove(t *testing.T) {
	r := NewRegistry()
	conn := newFakeConn("sess-1")

	r.Add(conn)
	if got, ok := r.Get("sess-1"); !ok || got != conn {
		t.Fatal("registered connection not retrievable")
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}

	r.Remove("sess-1")
	if _, ok := r.Get("sess-1"); ok {
		t.Error("removed connection still retrievable")
	}
	if r.Len() != 0 {
		t.Errorf("Len = %d after remove, want 0", r.Len())
	}
}

func TestRegistryBind(t *testing.T) {
	r := NewRegistry()
	r.Add(newFakeConn("sess-1"))

	if _, ok := r.RoomOf("sess-1"); ok {
		t.Fatal("unbound session reports a room")
	}

	r.Bind("sess-1", "room-9")
	roomID, ok := r.RoomOf("sess-1")
	if !ok || roomID != "room-9" {
		t.Fatalf("RoomOf = %q %v, want room-9", roomID, ok)
	}

	// Rebinding moves the session; removal clears the index.
	r.Bind("sess-1", "room-10")
	if roomID, _ := r.RoomOf("sess-1"); roomID != "room-10" {
		t.Errorf("RoomOf after rebind = %q", roomID)
	}
	r.Remove("sess-1")
	if _, ok := r.RoomOf("sess-1"); ok {
		t.Error("room binding survived removal")
	}
}

func TestSessionKey(t *testing.T) {
	if got := sessionKey(SessionParticipant, "7"); got != "participant-session:7" {
		t.Errorf("participant key = %q", got)
	}
	if got := sessionKey(SessionHost, "42"); got != "host-session:42" {
		t.Errorf("host key = %q", got)
	}
}
