package live

import (
	"errors"
	"testing"
)

func TestDecodeControlChatAliases(t *testing.T) {
	aliases := []string{"chat_message", "text_message", "chat", "broadcast_message"}
	for _, alias := range aliases {
		raw := []byte(`{"type":"` + alias + `","room_id":"r1","message":"hi"}`)
		msg, err := DecodeControl(raw)
		if err != nil {
			t.Fatalf("alias %q: %v", alias, err)
		}
		if msg.Type != TypeChatMessage {
			t.Errorf("alias %q decoded as %q", alias, msg.Type)
		}
		if msg.Text != "hi" {
			t.Errorf("alias %q: Text = %q", alias, msg.Text)
		}
	}
}

func TestDecodeControlRoomAndTargetFallbacks(t *testing.T) {
	msg, err := DecodeControl([]byte(`{"type":"invite_cohost","event_id":"r9","participant_id":"7"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.RoomID != "r9" {
		t.Errorf("RoomID = %q, want event_id fallback r9", msg.RoomID)
	}
	if msg.TargetID != "7" {
		t.Errorf("TargetID = %q, want participant_id fallback 7", msg.TargetID)
	}

	// user_id wins over participant_id when both are present.
	msg, err = DecodeControl([]byte(`{"type":"remove_user_in_room","room_id":"r1","user_id":"5","participant_id":"7"}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.TargetID != "5" {
		t.Errorf("TargetID = %q, want user_id 5", msg.TargetID)
	}
}

func TestDecodeControlErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"malformed json", `{"type":`, ErrMalformedMessage},
		{"unknown type", `{"type":"poll_vote","room_id":"r1"}`, ErrUnknownType},
		{"missing room id", `{"type":"leave_room"}`, ErrMissingRoomID},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeControl([]byte(tt.raw))
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestDecodeControlClosedSet(t *testing.T) {
	types := map[string]MessageType{
		"invite_cohost":       TypeInviteCoHost,
		"accept_cohost":       TypeAcceptCoHost,
		"remove_cohost":       TypeRemoveCoHost,
		"leave_room":          TypeLeaveRoom,
		"remove_user_in_room": TypeRemoveUser,
		"stream_ended":        TypeStreamEnded,
	}
	for wire, want := range types {
		msg, err := DecodeControl([]byte(`{"type":"` + wire + `","room_id":"r1"}`))
		if err != nil {
			t.Fatalf("%q: %v", wire, err)
		}
		if msg.Type != want {
			t.Errorf("%q decoded as %q", wire, msg.Type)
		}
	}
}
