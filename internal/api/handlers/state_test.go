package handlers

import (
	"strings"
	"testing"
)

func TestStateRoundTrip(t *testing.T) {
	state, err := GenerateState(map[string]string{"redirect": "/socials"})
	if err != nil {
		t.Fatal(err)
	}

	data, err := DecodeState(state)
	if err != nil {
		t.Fatal(err)
	}
	if data["redirect"] != "/socials" {
		t.Errorf("redirect = %q, want /socials", data["redirect"])
	}
}

func TestStateNonceVaries(t *testing.T) {
	a, err := GenerateState(map[string]string{"redirect": "/home"})
	if err != nil {
		t.Fatal(err)
	}
	b, err := GenerateState(map[string]string{"redirect": "/home"})
	if err != nil {
		t.Fatal(err)
	}
	if a == b {
		t.Error("two states with the same payload share a nonce")
	}
}

func TestDecodeStateInvalid(t *testing.T) {
	for _, state := range []string{"", "nodot", "a.b.c", "nonce.!!!not-base64!!!"} {
		if _, err := DecodeState(state); err == nil {
			t.Errorf("DecodeState(%q) succeeded, want error", state)
		}
	}
}

func TestDecodeStatePayloadNotJSON(t *testing.T) {
	state, err := GenerateState(map[string]string{"redirect": "/home"})
	if err != nil {
		t.Fatal(err)
	}
	parts := strings.Split(state, ".")
	if _, err := DecodeState(parts[0] + ".bm90LWpzb24"); err == nil {
		t.Error("expected an error for a non-JSON payload")
	}
}
