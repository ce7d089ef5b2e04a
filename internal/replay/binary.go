package replay

import (
	"encoding/binary"
	"fmt"
	"math"
)

// Binary layout (little endian):
//
//	header  "ARPL" | version u16 | seed, player, character, world (u16 len + bytes)
//	        | startTime i64 | finalLevel i32 | finalTime ms i64
//	choices u16 count | (u16 len + bytes)...
//	records u32 count | count × 24-byte records
//
// A record is kind u8 | pad 3 | frame u32 | a i32 | b i32 | c i32 | d i32.
// Level-up choice IDs are interned in the choice table and referenced by index.
const (
	binaryMagic = "ARPL"
	recordSize  = 24
	axisScale   = 10000
)

// MarshalBinary encodes the session into fixed-width records.
func (s *Session) MarshalBinary() ([]byte, error) {
	choices := make([]string, 0, 8)
	index := make(map[string]int32)
	for _, e := range s.Events {
		if lu, ok := e.(LevelUp); ok {
			if _, seen := index[lu.ChoiceID]; !seen {
				index[lu.ChoiceID] = int32(len(choices))
				choices = append(choices, lu.ChoiceID)
			}
		}
	}

	buf := make([]byte, 0, 64+len(s.Events)*recordSize)
	buf = append(buf, binaryMagic...)
	buf = binary.LittleEndian.AppendUint16(buf, uint16(s.FormatVersion))
	for _, str := range []string{s.Seed, s.PlayerName, s.CharacterID, s.WorldID} {
		var err error
		if buf, err = appendString(buf, str); err != nil {
			return nil, err
		}
	}
	buf = binary.LittleEndian.AppendUint64(buf, uint64(s.StartTime))
	buf = binary.LittleEndian.AppendUint32(buf, uint32(int32(s.FinalLevel)))
	buf = binary.LittleEndian.AppendUint64(buf, uint64(int64(math.Round(s.FinalTime*1000))))

	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(choices)))
	for _, c := range choices {
		var err error
		if buf, err = appendString(buf, c); err != nil {
			return nil, err
		}
	}

	buf = binary.LittleEndian.AppendUint32(buf, uint32(len(s.Events)))
	for _, e := range s.Events {
		var a, b, c, d int32
		switch ev := e.(type) {
		case Start:
		case Input:
			a = int32(math.Round(ev.X * axisScale))
			b = int32(math.Round(ev.Z * axisScale))
		case LevelUp:
			a = index[ev.ChoiceID]
		case Death:
			a, b = int32(ev.Level), int32(math.Round(ev.Time*1000))
		case Milestone:
			a, b = int32(ev.Level), int32(math.Round(ev.Time*1000))
		case Checkpoint:
			a, b, c, d = ev.X, ev.Z, ev.Level, ev.Kills
		default:
			return nil, fmt.Errorf("%w: %T", ErrUnknownKind, e)
		}
		buf = append(buf, byte(e.Kind()), 0, 0, 0)
		buf = binary.LittleEndian.AppendUint32(buf, e.Frame())
		for _, v := range [4]int32{a, b, c, d} {
			buf = binary.LittleEndian.AppendUint32(buf, uint32(v))
		}
	}
	return buf, nil
}

func appendString(buf []byte, s string) ([]byte, error) {
	if len(s) > math.MaxUint16 {
		return nil, fmt.Errorf("replay: string field too long (%d bytes)", len(s))
	}
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(s)))
	return append(buf, s...), nil
}

// byteReader walks a buffer and remembers the first short read.
type byteReader struct {
	b   []byte
	off int
	err error
}

func (r *byteReader) take(n int) []byte {
	if r.err != nil {
		return nil
	}
	if r.off+n > len(r.b) {
		r.err = fmt.Errorf("%w at offset %d", ErrShortRecord, r.off)
		return nil
	}
	out := r.b[r.off : r.off+n]
	r.off += n
	return out
}

func (r *byteReader) u16() uint16 {
	if b := r.take(2); b != nil {
		return binary.LittleEndian.Uint16(b)
	}
	return 0
}

func (r *byteReader) u32() uint32 {
	if b := r.take(4); b != nil {
		return binary.LittleEndian.Uint32(b)
	}
	return 0
}

func (r *byteReader) u64() uint64 {
	if b := r.take(8); b != nil {
		return binary.LittleEndian.Uint64(b)
	}
	return 0
}

func (r *byteReader) str() string {
	n := int(r.u16())
	return string(r.take(n))
}

// UnmarshalBinary decodes a session written by MarshalBinary.
func (s *Session) UnmarshalBinary(data []byte) error {
	r := &byteReader{b: data}
	if magic := r.take(len(binaryMagic)); r.err != nil || string(magic) != binaryMagic {
		return ErrBadMagic
	}

	out := Session{FormatVersion: int(r.u16())}
	out.Seed = r.str()
	out.PlayerName = r.str()
	out.CharacterID = r.str()
	out.WorldID = r.str()
	out.StartTime = int64(r.u64())
	out.FinalLevel = int(int32(r.u32()))
	out.FinalTime = float64(int64(r.u64())) / 1000

	choices := make([]string, r.u16())
	for i := range choices {
		choices[i] = r.str()
	}

	count := int(r.u32())
	if r.err != nil {
		return r.err
	}
	if count*recordSize > len(data)-r.off {
		return fmt.Errorf("%w: %d records declared, %d bytes left", ErrShortRecord, count, len(data)-r.off)
	}

	out.Events = make(Events, 0, count)
	for i := 0; i < count; i++ {
		rec := r.take(recordSize)
		kind := Kind(rec[0])
		frame := binary.LittleEndian.Uint32(rec[4:8])
		a := int32(binary.LittleEndian.Uint32(rec[8:12]))
		b := int32(binary.LittleEndian.Uint32(rec[12:16]))
		c := int32(binary.LittleEndian.Uint32(rec[16:20]))
		d := int32(binary.LittleEndian.Uint32(rec[20:24]))

		var e Event
		switch kind {
		case KindStart:
			e = Start{At: frame}
		case KindInput:
			e = Input{At: frame, X: float64(a) / axisScale, Z: float64(b) / axisScale}
		case KindLevelUp:
			if a < 0 || int(a) >= len(choices) {
				return fmt.Errorf("replay record %d: choice index %d out of range", i, a)
			}
			e = LevelUp{At: frame, ChoiceID: choices[a]}
		case KindDeath:
			e = Death{At: frame, Level: int(a), Time: float64(b) / 1000}
		case KindMilestone:
			e = Milestone{At: frame, Level: int(a), Time: float64(b) / 1000}
		case KindCheckpoint:
			e = Checkpoint{At: frame, X: a, Z: b, Level: c, Kills: d}
		default:
			return fmt.Errorf("replay record %d: %w: %d", i, ErrUnknownKind, kind)
		}
		out.Events = append(out.Events, e)
	}

	*s = out
	return nil
}
