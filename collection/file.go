package collection

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
)

// FileSource reads the owned-cards map from a JSON file on disk. The file is
// a list of {"dbf_id": n, "count": m} entries, re-read on every refresh.
type FileSource struct {
	Path string
}

type fileEntry struct {
	DbfID int `json:"dbf_id"`
	Count int `json:"count"`
}

// Load reads and parses the collection file.
func (f *FileSource) Load(ctx context.Context) (map[int]int, error) {
	data, err := os.ReadFile(f.Path)
	if err != nil {
		return nil, fmt.Errorf("read collection file: %w", err)
	}
	var entries []fileEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("parse collection file: %w", err)
	}
	counts := make(map[int]int, len(entries))
	for _, e := range entries {
		counts[e.DbfID] += e.Count
	}
	return counts, nil
}
