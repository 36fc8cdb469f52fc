package deckcode

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
)

// Decoded is the raw content of a deckstring: the format, the hero, and
// dbf id -> copy count for every card.
type Decoded struct {
	Format    int
	HeroDbfID int
	Cards     map[int]int
}

// FormatName maps the deckstring format id to its display name.
func FormatName(format int) string {
	switch format {
	case 1:
		return "Wild"
	case 2:
		return "Standard"
	case 3:
		return "Classic"
	case 4:
		return "Twist"
	default:
		return "Unknown"
	}
}

// Decode parses the deckstring binary layout: a zero byte, version 1, then
// varint-encoded format, hero list, single-copy list, double-copy list, and
// (id, count) pairs. Sideboard extensions past the pair block are ignored.
func Decode(code string) (*Decoded, error) {
	raw, err := base64.StdEncoding.DecodeString(Normalize(code))
	if err != nil {
		return nil, fmt.Errorf("deckstring base64: %w", err)
	}
	r := bytes.NewReader(raw)

	header, err := r.ReadByte()
	if err != nil || header != 0 {
		return nil, errors.New("deckstring: missing reserved header byte")
	}
	version, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	if version != 1 {
		return nil, fmt.Errorf("deckstring: unsupported version %d", version)
	}
	format, err := readUvarint(r)
	if err != nil {
		return nil, err
	}

	d := &Decoded{Format: int(format), Cards: make(map[int]int)}

	numHeroes, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < numHeroes; i++ {
		hero, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		if i == 0 {
			d.HeroDbfID = int(hero)
		}
	}

	for _, copies := range []int{1, 2} {
		n, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		for i := uint64(0); i < n; i++ {
			id, err := readUvarint(r)
			if err != nil {
				return nil, err
			}
			d.Cards[int(id)] += copies
		}
	}

	numPairs, err := readUvarint(r)
	if err != nil {
		return nil, err
	}
	for i := uint64(0); i < numPairs; i++ {
		id, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		count, err := readUvarint(r)
		if err != nil {
			return nil, err
		}
		d.Cards[int(id)] += int(count)
	}

	return d, nil
}

func readUvarint(r *bytes.Reader) (uint64, error) {
	var x uint64
	var s uint
	for i := 0; i < 10; i++ {
		b, err := r.ReadByte()
		if err != nil {
			return 0, errors.New("deckstring: truncated varint")
		}
		if b < 0x80 {
			return x | uint64(b)<<s, nil
		}
		x |= uint64(b&0x7f) << s
		s += 7
	}
	return 0, errors.New("deckstring: varint overflow")
}
