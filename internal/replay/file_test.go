package replay

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSaveAndLoadFile(t *testing.T) {
	dir := t.TempDir()
	s := sampleSession()

	for _, name := range []string{"run.json", "run.bin"} {
		t.Run(name, func(t *testing.T) {
			path := filepath.Join(dir, "nested", name)
			if err := SaveFile(path, s); err != nil {
				t.Fatalf("SaveFile failed: %v", err)
			}
			if _, err := os.Stat(path + ".tmp"); !os.IsNotExist(err) {
				t.Error("temp file should be renamed away")
			}
			got, err := LoadFile(path)
			if err != nil {
				t.Fatalf("LoadFile failed: %v", err)
			}
			if !reflect.DeepEqual(s, got) {
				t.Errorf("loaded session differs\nwant %+v\ngot  %+v", s, got)
			}
		})
	}
}

func TestLoadFileArchiveReturnsLast(t *testing.T) {
	first := sampleSession()
	second := sampleSession()
	second.Seed = "second"

	out := &closeBuffer{}
	a := NewArchive(100)
	a.StartWriter(out)
	a.Submit(first)
	a.Submit(second)
	a.Stop()

	path := filepath.Join(t.TempDir(), "replays.jsonl")
	if err := os.WriteFile(path, out.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	got, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile failed: %v", err)
	}
	if got.Seed != "second" {
		t.Errorf("Expected the last archived session, got seed %q", got.Seed)
	}
}

func TestDecodeRejectsGarbage(t *testing.T) {
	if _, err := Decode([]byte("not a replay")); err == nil {
		t.Error("garbage should not decode")
	}
}
