package common

import "testing"

func TestSha256Hex(t *testing.T) {
	got := Sha256Hex([]byte("abc"))
	want := "ba7816bf8f01cfea414140de5dae2223b00361a396177a9cb410ff61f20015ad"
	if got != want {
		t.Fatalf("expected %s, got %s", want, got)
	}
	if Sha256Hex(nil) != Sha256Hex([]byte{}) {
		t.Fatal("nil and empty payloads must hash identically")
	}
}
