package replay

import (
	"encoding/json"
	"fmt"
)

// Events is the ordered log. It marshals each event as a compact
// positional array: [kind, frame, ...payload].
type Events []Event

// MarshalJSON implements json.Marshaler.
func (es Events) MarshalJSON() ([]byte, error) {
	rows := make([][]any, 0, len(es))
	for _, e := range es {
		row, err := encodeRow(e)
		if err != nil {
			return nil, err
		}
		rows = append(rows, row)
	}
	return json.Marshal(rows)
}

func encodeRow(e Event) ([]any, error) {
	switch ev := e.(type) {
	case Start:
		return []any{KindStart, ev.At}, nil
	case Input:
		return []any{KindInput, ev.At, ev.X, ev.Z}, nil
	case LevelUp:
		return []any{KindLevelUp, ev.At, ev.ChoiceID}, nil
	case Death:
		return []any{KindDeath, ev.At, ev.Level, ev.Time}, nil
	case Checkpoint:
		return []any{KindCheckpoint, ev.At, ev.X, ev.Z, ev.Level, ev.Kills}, nil
	case Milestone:
		return []any{KindMilestone, ev.At, ev.Level, ev.Time}, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnknownKind, e)
	}
}

// UnmarshalJSON implements json.Unmarshaler.
func (es *Events) UnmarshalJSON(data []byte) error {
	var rows [][]json.RawMessage
	if err := json.Unmarshal(data, &rows); err != nil {
		return fmt.Errorf("replay events: %w", err)
	}
	out := make(Events, 0, len(rows))
	for i, row := range rows {
		e, err := decodeRow(row)
		if err != nil {
			return fmt.Errorf("replay event %d: %w", i, err)
		}
		out = append(out, e)
	}
	*es = out
	return nil
}

// rowReader pulls typed fields out of one positional row.
type rowReader struct {
	row []json.RawMessage
	err error
}

func (r *rowReader) field(i int, dst any) {
	if r.err != nil {
		return
	}
	if i >= len(r.row) {
		r.err = fmt.Errorf("%w: want field %d of %d", ErrShortRecord, i, len(r.row))
		return
	}
	r.err = json.Unmarshal(r.row[i], dst)
}

func decodeRow(row []json.RawMessage) (Event, error) {
	r := &rowReader{row: row}

	var kind Kind
	var frame uint32
	r.field(0, &kind)
	r.field(1, &frame)
	if r.err != nil {
		return nil, r.err
	}

	var e Event
	switch kind {
	case KindStart:
		e = Start{At: frame}
	case KindInput:
		ev := Input{At: frame}
		r.field(2, &ev.X)
		r.field(3, &ev.Z)
		e = ev
	case KindLevelUp:
		ev := LevelUp{At: frame}
		r.field(2, &ev.ChoiceID)
		e = ev
	case KindDeath:
		ev := Death{At: frame}
		r.field(2, &ev.Level)
		r.field(3, &ev.Time)
		e = ev
	case KindCheckpoint:
		ev := Checkpoint{At: frame}
		r.field(2, &ev.X)
		r.field(3, &ev.Z)
		r.field(4, &ev.Level)
		r.field(5, &ev.Kills)
		e = ev
	case KindMilestone:
		ev := Milestone{At: frame}
		r.field(2, &ev.Level)
		r.field(3, &ev.Time)
		e = ev
	default:
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, kind)
	}
	if r.err != nil {
		return nil, r.err
	}
	return e, nil
}
