package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/teslashibe/go-focus/pkg/persist"
)

// JSONL stores records as one JSON object per line in records.jsonl and the
// default areas in areas.json, both under a directory.
type JSONL struct {
	dir string

	mu    sync.Mutex
	areas map[string]string // subject -> area id
}

// OpenJSONL opens (creating if needed) a file store rooted at dir.
func OpenJSONL(dir string) (*JSONL, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create directory: %w", err)
	}

	s := &JSONL{dir: dir, areas: make(map[string]string)}

	data, err := os.ReadFile(s.areasPath())
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read areas: %w", err)
	}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &s.areas); err != nil {
			return nil, fmt.Errorf("parse areas: %w", err)
		}
	}
	return s, nil
}

func (s *JSONL) recordsPath() string { return filepath.Join(s.dir, "records.jsonl") }
func (s *JSONL) areasPath() string   { return filepath.Join(s.dir, "areas.json") }

// Insert appends one record.
func (s *JSONL) Insert(ctx context.Context, r persist.Record) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	line, err := json.Marshal(r)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	line = append(line, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.OpenFile(s.recordsPath(), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open records: %w", err)
	}
	defer f.Close()

	if _, err := f.Write(line); err != nil {
		return fmt.Errorf("write record: %w", err)
	}
	return nil
}

// ResolveArea returns the subject's default area, creating it if absent.
func (s *JSONL) ResolveArea(ctx context.Context, subjectID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if id, ok := s.areas[subjectID]; ok {
		return id, nil
	}

	id := uuid.NewString()
	s.areas[subjectID] = id

	data, err := json.MarshalIndent(s.areas, "", "  ")
	if err != nil {
		delete(s.areas, subjectID)
		return "", err
	}
	if err := os.WriteFile(s.areasPath(), data, 0644); err != nil {
		delete(s.areas, subjectID)
		return "", fmt.Errorf("write areas: %w", err)
	}
	return id, nil
}

// Records returns the subject's records, newest first. Malformed lines are
// skipped.
func (s *JSONL) Records(ctx context.Context, subjectID string, limit int) ([]persist.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, err := os.Open(s.recordsPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("open records: %w", err)
	}
	defer f.Close()

	var out []persist.Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var r persist.Record
		if err := json.Unmarshal(scanner.Bytes(), &r); err != nil {
			continue
		}
		if r.SubjectID == subjectID {
			out = append(out, r)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read records: %w", err)
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Close is a no-op for files.
func (s *JSONL) Close() error {
	return nil
}

var _ Store = (*JSONL)(nil)
