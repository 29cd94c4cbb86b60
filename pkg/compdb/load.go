package compdb

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"os"
)

// Load reads a compilation database. Diagnostic comment lines written in
// inline mode are skipped.
func Load(path string) ([]Entry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a compilation database from memory.
func Parse(data []byte) ([]Entry, error) {
	var clean bytes.Buffer
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		trimmed := bytes.TrimSpace(line)
		if bytes.HasPrefix(trimmed, []byte("/*")) && bytes.HasSuffix(trimmed, []byte("*/")) {
			continue
		}
		clean.Write(line)
		clean.WriteByte('\n')
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scanning compilation database: %w", err)
	}

	var entries []Entry
	if err := json.Unmarshal(clean.Bytes(), &entries); err != nil {
		return nil, fmt.Errorf("decoding compilation database: %w", err)
	}
	return entries, nil
}
