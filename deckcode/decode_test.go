package deckcode

import (
	"encoding/base64"
	"encoding/binary"
	"testing"
)

// buildDeckstring assembles a valid deckstring for tests.
func buildDeckstring(t *testing.T, format int, hero int, singles, doubles []int, pairs map[int]int) string {
	t.Helper()
	var buf []byte
	put := func(v int) {
		buf = binary.AppendUvarint(buf, uint64(v))
	}
	buf = append(buf, 0) // reserved
	put(1)               // version
	put(format)
	put(1) // one hero
	put(hero)
	put(len(singles))
	for _, id := range singles {
		put(id)
	}
	put(len(doubles))
	for _, id := range doubles {
		put(id)
	}
	put(len(pairs))
	for id, n := range pairs {
		put(id)
		put(n)
	}
	return base64.StdEncoding.EncodeToString(buf)
}

func TestDecode(t *testing.T) {
	code := buildDeckstring(t, 2, 7, []int{100, 2000}, []int{55}, map[int]int{300: 3})

	d, err := Decode(code)
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}
	if d.Format != 2 {
		t.Errorf("Format = %d, want 2", d.Format)
	}
	if d.HeroDbfID != 7 {
		t.Errorf("HeroDbfID = %d, want 7", d.HeroDbfID)
	}
	want := map[int]int{100: 1, 2000: 1, 55: 2, 300: 3}
	if len(d.Cards) != len(want) {
		t.Fatalf("Cards = %v, want %v", d.Cards, want)
	}
	for id, n := range want {
		if d.Cards[id] != n {
			t.Errorf("Cards[%d] = %d, want %d", id, d.Cards[id], n)
		}
	}
}

func TestDecodeNormalizesSpaces(t *testing.T) {
	code := buildDeckstring(t, 1, 7, []int{62}, nil, nil)
	// A '+' mangled into ' ' in transit must still decode.
	mangled := ""
	for _, r := range code {
		if r == '+' {
			mangled += " "
		} else {
			mangled += string(r)
		}
	}
	if _, err := Decode(mangled); err != nil {
		t.Fatalf("Decode mangled: %v", err)
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{"not base64", "!!!not-base64!!!"},
		{"empty", ""},
		{"bad header", base64.StdEncoding.EncodeToString([]byte{1, 1, 2})},
		{"bad version", base64.StdEncoding.EncodeToString([]byte{0, 9, 2})},
		{"truncated", base64.StdEncoding.EncodeToString([]byte{0, 1, 2, 1})},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.code); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestFormatName(t *testing.T) {
	names := map[int]string{1: "Wild", 2: "Standard", 3: "Classic", 4: "Twist", 0: "Unknown", 99: "Unknown"}
	for id, want := range names {
		if got := FormatName(id); got != want {
			t.Errorf("FormatName(%d) = %q, want %q", id, got, want)
		}
	}
}
