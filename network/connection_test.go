package network

import (
	"bytes"
	"io"
	"testing"
)

func TestPacketRoundTrip(t *testing.T) {
	payload := []byte(`{"x":1,"y":2,"dir":0}`)
	framed, err := EncodePacket(MsgTypeProposeMove, payload)
	if err != nil {
		t.Fatalf("EncodePacket: %v", err)
	}

	packet, err := DecodePacket(framed)
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	if packet.MsgID != MsgTypeProposeMove {
		t.Errorf("MsgID = %d, want %d", packet.MsgID, MsgTypeProposeMove)
	}
	if packet.Length != uint16(len(payload)) {
		t.Errorf("Length = %d, want %d", packet.Length, len(payload))
	}
	if !bytes.Equal(packet.Data, payload) {
		t.Errorf("Data = %q, want %q", packet.Data, payload)
	}
}

func TestDecodePacket_EmptyPayload(t *testing.T) {
	framed, err := EncodePacket(MsgTypeHeartbeat, nil)
	if err != nil {
		t.Fatalf("EncodePacket: %v", err)
	}
	packet, err := DecodePacket(framed)
	if err != nil {
		t.Fatalf("DecodePacket: %v", err)
	}
	if packet.MsgID != MsgTypeHeartbeat || packet.Length != 0 || len(packet.Data) != 0 {
		t.Errorf("unexpected packet: %+v", packet)
	}
}

// A payload past the 2-byte length field must be rejected outright: a
// wrapped length would decode as a silently truncated body.
func TestEncodePacket_OversizedPayload(t *testing.T) {
	exact := make([]byte, MaxPayloadSize)
	if _, err := EncodePacket(MsgTypeSnapshot, exact); err != nil {
		t.Fatalf("payload of exactly MaxPayloadSize should frame, got %v", err)
	}

	over := make([]byte, MaxPayloadSize+1)
	if _, err := EncodePacket(MsgTypeSnapshot, over); err != ErrPacketTooLarge {
		t.Fatalf("expected ErrPacketTooLarge, got %v", err)
	}
}

func TestDecodePacket_Truncated(t *testing.T) {
	for _, raw := range [][]byte{nil, {1}, {0, 1, 0}, {0, 1, 0, 9, 'x'}} {
		if _, err := DecodePacket(raw); err != io.ErrShortBuffer {
			t.Errorf("DecodePacket(%v): expected ErrShortBuffer, got %v", raw, err)
		}
	}
}
