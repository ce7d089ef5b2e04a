package replay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Decode reads a session in either the binary or the JSON encoding,
// detected from the leading magic bytes.
func Decode(data []byte) (*Session, error) {
	var s Session
	if bytes.HasPrefix(data, []byte(binaryMagic)) {
		if err := s.UnmarshalBinary(data); err != nil {
			return nil, err
		}
		return &s, nil
	}
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode replay json: %w", err)
	}
	return &s, nil
}

// LoadFile reads a session from path. A .jsonl archive yields its last
// session.
func LoadFile(path string) (*Session, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if strings.EqualFold(filepath.Ext(path), ".jsonl") {
		all, err := ReadArchive(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		if len(all) == 0 {
			return nil, fmt.Errorf("%s: archive is empty", path)
		}
		return all[len(all)-1], nil
	}
	return Decode(data)
}

// SaveFile writes s to path, binary for a .bin extension and indented
// JSON otherwise. The write goes through a temp file and a rename.
func SaveFile(path string, s *Session) error {
	var (
		data []byte
		err  error
	)
	if strings.EqualFold(filepath.Ext(path), ".bin") {
		data, err = s.MarshalBinary()
	} else {
		data, err = json.MarshalIndent(s, "", "  ")
		data = append(data, '\n')
	}
	if err != nil {
		return fmt.Errorf("encode replay: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create replay directory: %w", err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("write temp replay: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("replace replay: %w", err)
	}
	return nil
}
