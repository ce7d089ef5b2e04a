package replay

import (
	"bytes"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

var testMeta = Meta{PlayerName: "tester", CharacterID: "wanderer", WorldID: "forest"}

func newTestRecorder() *Recorder {
	return NewRecorder("seed-abc", time.UnixMilli(1_700_000_000_000), testMeta)
}

func TestRecordInputDeltaEncoding(t *testing.T) {
	steps := []Vec2{{0, 0}, {0, 0}, {1, 0}, {1, 0}, {0, 1}}

	rec := newTestRecorder()
	rec.RecordStart()
	for _, in := range steps {
		rec.RecordInput(in.X, in.Z)
		rec.Update()
	}

	if got := rec.Session().Counts()[KindInput]; got != 3 {
		t.Fatalf("Expected 3 input events, got %d", got)
	}

	p := NewPlayer(rec.Session())
	for frame, want := range steps {
		p.EventsForFrame(uint32(frame))
		if got := p.CurrentInput(); got != want {
			t.Errorf("frame %d: expected input %v, got %v", frame, want, got)
		}
	}
	if !p.Done() {
		t.Error("player should have consumed every event")
	}
}

func TestRecordInputRounding(t *testing.T) {
	rec := newTestRecorder()
	rec.RecordInput(0.123456, -0.98765)
	if rec.RecordInput(0.12346, -0.98765) {
		t.Error("inputs equal after rounding must not be recorded twice")
	}

	in := rec.Session().Events[0].(Input)
	if in.X != 0.1235 || in.Z != -0.9877 {
		t.Errorf("Expected rounded (0.1235, -0.9877), got (%v, %v)", in.X, in.Z)
	}
}

func TestVerifyCheckpoint(t *testing.T) {
	rec := newTestRecorder()
	rec.RecordCheckpoint(12.345, -3.21, 4, 10)

	cp := rec.Session().Events[0].(Checkpoint)
	if cp.Z != -321 || cp.Level != 4 || cp.Kills != 10 {
		t.Fatalf("unexpected checkpoint %+v", cp)
	}

	p := NewPlayer(rec.Session())
	if !p.VerifyCheckpoint(cp, 12.345, -3.21, 4, 10) {
		t.Error("identical state should verify")
	}
	if p.VerifyCheckpoint(cp, 12.345, -3.21, 4, 11) {
		t.Error("different kill count should diverge")
	}

	divs := p.Divergences()
	if len(divs) != 1 {
		t.Fatalf("Expected 1 divergence, got %d", len(divs))
	}
	if divs[0].Expected.Kills != 10 || divs[0].Actual.Kills != 11 {
		t.Errorf("divergence should carry expected and actual kills, got %+v", divs[0])
	}
}

func TestEventsForFrameForwardOnly(t *testing.T) {
	rec := newTestRecorder()
	rec.RecordStart()
	for i := 0; i < 10; i++ {
		rec.RecordInput(float64(i), 0)
		rec.Update()
	}

	p := NewPlayer(rec.Session())
	if got := len(p.EventsForFrame(5)); got != 7 {
		t.Fatalf("Expected start plus 6 inputs through frame 5, got %d", got)
	}
	if got := p.EventsForFrame(3); got != nil {
		t.Errorf("lower frame must return nothing, got %v", got)
	}
	if got := p.EventsForFrame(5); got != nil {
		t.Errorf("events must be returned only once, got %v", got)
	}
	if got := len(p.EventsForFrame(100)); got != 4 {
		t.Errorf("Expected remaining 4 inputs, got %d", got)
	}
}

func TestPlayerStates(t *testing.T) {
	rec := newTestRecorder()
	rec.RecordStart()
	rec.Update()

	ongoing := NewPlayer(rec.Snapshot())
	if ongoing.State() != StatePlaying {
		t.Errorf("Expected playing before consumption, got %s", ongoing.State())
	}
	ongoing.EventsForFrame(10)
	if ongoing.State() != StateOngoing {
		t.Errorf("log without terminal event should be ongoing, got %s", ongoing.State())
	}

	rec.Finish(3, 61.2346)
	done := NewPlayer(rec.Session())
	done.EventsForFrame(10)
	if done.State() != StateComplete {
		t.Errorf("Expected complete after death, got %s", done.State())
	}
	if d, ok := done.Terminal().(Death); !ok || d.Time != 61.235 || d.Level != 3 {
		t.Errorf("unexpected terminal event %#v", done.Terminal())
	}
}

func TestRecorderFrozenAfterFinish(t *testing.T) {
	rec := newTestRecorder()
	rec.RecordStart()
	rec.Finish(2, 10)
	rec.RecordInput(1, 1)
	rec.RecordLevelUp("spark")
	rec.Milestone(5, 20)

	s := rec.Session()
	if len(s.Events) != 2 {
		t.Fatalf("events after the terminal event must be ignored, got %d", len(s.Events))
	}
	if s.FinalLevel != 2 || s.FinalTime != 10 {
		t.Errorf("finals changed after freeze: %d %v", s.FinalLevel, s.FinalTime)
	}
}

func TestValidate(t *testing.T) {
	ok := newTestRecorder().Session()
	if err := ok.Validate(); err != nil {
		t.Fatalf("empty session should validate: %v", err)
	}
	if err := ok.RequireTerminal(); !errors.Is(err, ErrNoTerminalEvent) {
		t.Errorf("Expected ErrNoTerminalEvent, got %v", err)
	}

	cases := []struct {
		name string
		s    Session
		want error
	}{
		{"version", Session{FormatVersion: 99}, ErrUnsupportedVersion},
		{"frames", Session{FormatVersion: FormatVersion, Events: Events{Start{At: 5}, Input{At: 4}}}, ErrNonMonotonicFrame},
		{"terminal", Session{FormatVersion: FormatVersion, Events: Events{Death{At: 1}, Input{At: 2}}}, ErrEventAfterTerminal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if err := tc.s.Validate(); !errors.Is(err, tc.want) {
				t.Errorf("Expected %v, got %v", tc.want, err)
			}
		})
	}
}

func sampleSession() *Session {
	rec := newTestRecorder()
	rec.RecordStart()
	rec.RecordInput(0.5, -0.25)
	rec.Update()
	rec.RecordLevelUp("spark")
	rec.RecordCheckpoint(1.5, 2.25, 2, 7)
	rec.Update()
	rec.RecordLevelUp("aura")
	rec.RecordLevelUp("spark")
	rec.RecordInput(-1, 0)
	rec.Update()
	rec.Finish(3, 42.4242)
	return rec.Session()
}

func TestSessionJSON(t *testing.T) {
	s := sampleSession()
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte(`[1,0,0.5,-0.25]`)) {
		t.Errorf("inputs should encode as positional arrays: %s", data)
	}
	if !bytes.Contains(data, []byte(`"version":2`)) {
		t.Errorf("missing version field: %s", data)
	}

	var back Session
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(s, &back) {
		t.Errorf("decoded session differs\nwant %+v\ngot  %+v", s, &back)
	}
}

func TestSessionJSONRejectsUnknownKind(t *testing.T) {
	var s Session
	err := json.Unmarshal([]byte(`{"seed":"x","version":2,"events":[[9,0]]}`), &s)
	if !errors.Is(err, ErrUnknownKind) {
		t.Errorf("Expected ErrUnknownKind, got %v", err)
	}
}

func TestSessionBinary(t *testing.T) {
	s := sampleSession()
	data, err := s.MarshalBinary()
	if err != nil {
		t.Fatal(err)
	}

	var back Session
	if err := back.UnmarshalBinary(data); err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(s, &back) {
		t.Errorf("decoded session differs\nwant %+v\ngot  %+v", s, &back)
	}

	if err := back.UnmarshalBinary(data[:len(data)-3]); !errors.Is(err, ErrShortRecord) {
		t.Errorf("Expected ErrShortRecord for truncated data, got %v", err)
	}
	if err := back.UnmarshalBinary([]byte("{}")); !errors.Is(err, ErrBadMagic) {
		t.Errorf("Expected ErrBadMagic, got %v", err)
	}
}

// closeBuffer lets a bytes.Buffer stand in for the archive file.
type closeBuffer struct {
	bytes.Buffer
	closed bool
}

func (b *closeBuffer) Close() error {
	b.closed = true
	return nil
}

func TestArchive(t *testing.T) {
	out := &closeBuffer{}
	a := NewArchive(100)
	a.StartWriter(out)

	if a.Submit(newTestRecorder().Session()) {
		t.Error("unfinished sessions must not be archived")
	}
	if !a.Submit(sampleSession()) {
		t.Fatal("finished session should be accepted")
	}
	a.Stop()

	if !out.closed {
		t.Error("Stop should close the writer")
	}
	if a.Submit(sampleSession()) {
		t.Error("Submit after Stop should fail")
	}

	sessions, err := ReadArchive(strings.NewReader(out.String()))
	if err != nil {
		t.Fatal(err)
	}
	if len(sessions) != 1 {
		t.Fatalf("Expected 1 archived session, got %d", len(sessions))
	}
	if sessions[0].FinalLevel != 3 {
		t.Errorf("Expected final level 3, got %d", sessions[0].FinalLevel)
	}
	if st := a.Stats(); st.Total != 1 || st.Running {
		t.Errorf("unexpected stats %+v", st)
	}
}

func TestArchiveStopWhileSubmitting(t *testing.T) {
	out := &closeBuffer{}
	a := NewArchive(1e6)
	a.StartWriter(out)
	s := sampleSession()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 200; j++ {
				a.Submit(s)
			}
		}()
	}
	time.Sleep(time.Millisecond)
	a.Stop()
	wg.Wait()

	sessions, err := ReadArchive(strings.NewReader(out.String()))
	if err != nil {
		t.Fatal(err)
	}
	st := a.Stats()
	if uint64(len(sessions)) != st.Total {
		t.Errorf("Expected every accepted session written: %d written, %d accepted", len(sessions), st.Total)
	}
	if st.Total+st.Dropped == 0 {
		t.Error("expected submissions to be accounted for")
	}
}

func TestSchema(t *testing.T) {
	data, err := json.Marshal(Schema())
	if err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"Arena Replay Session", `"seed"`, `"events"`, `"finalLevel"`} {
		if !bytes.Contains(data, []byte(want)) {
			t.Errorf("schema missing %s", want)
		}
	}
}
