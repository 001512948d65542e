// Package journal keeps one backup file per ingested submission.
//
// The journal is independent of the SQLite store: it lives in its own
// directory, is written before the store row, and is the recovery source
// when the store is lost. Each entry is a JSON file named
// backup_<id>.json holding the id, the ingestion time, a digest, the
// payload as a JSON object under "data" and the verbatim request bytes
// under "raw".
package journal

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/roach88/kickoff/internal/submission"
)

const (
	filePrefix = "backup_"
	fileSuffix = ".json"
)

var (
	// ErrNotFound is returned when no entry exists for an id.
	ErrNotFound = errors.New("journal entry not found")

	// ErrCorrupt is returned when an entry cannot be decoded or its
	// digest does not match its payload.
	ErrCorrupt = errors.New("journal entry corrupt")
)

// Entry is one backup record. Payload holds the bytes exactly as ingested.
type Entry struct {
	ID        string
	Timestamp time.Time
	Digest    string
	Payload   json.RawMessage
}

// entryFile is the on-disk form. Data keeps the file readable and
// compatible with entries written by older tools, which carry no Raw.
type entryFile struct {
	ID        string          `json:"id"`
	Timestamp time.Time       `json:"timestamp"`
	Digest    string          `json:"digest"`
	Data      json.RawMessage `json:"data"`
	Raw       []byte          `json:"raw,omitempty"`
}

// Journal is a directory of backup entries.
//
// Thread-safety: writes to distinct ids may run concurrently; a write to
// an id replaces the previous entry atomically via rename.
type Journal struct {
	dir string
}

// Open creates dir if needed and returns a Journal rooted there.
func Open(dir string) (*Journal, error) {
	if dir == "" {
		return nil, fmt.Errorf("open journal: empty directory")
	}
	if err := os.MkdirAll(dir, 0o750); err != nil {
		return nil, fmt.Errorf("open journal %s: %w", dir, err)
	}
	return &Journal{dir: dir}, nil
}

// Dir returns the journal directory.
func (j *Journal) Dir() string {
	return j.dir
}

// Ref returns the entry reference stored on the submission for id.
func Ref(id string) string {
	return filePrefix + id + fileSuffix
}

// Write durably stores an entry for id and returns its reference.
//
// The file is written to a temp name, fsynced, renamed over the final
// name and the directory is fsynced, so a crash leaves either the old
// entry or the new one, never a torn file. Re-writing an id replaces its
// entry; the journal never holds two entries for one id.
func (j *Journal) Write(id string, ts time.Time, payload []byte) (string, error) {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("write journal entry: invalid id %q", id)
	}

	compact, err := compactJSON(payload)
	if err != nil {
		return "", fmt.Errorf("write journal entry %s: %w", id, err)
	}
	entry := entryFile{
		ID:        id,
		Timestamp: ts.UTC(),
		Digest:    submission.Digest(compact),
		Data:      json.RawMessage(compact),
		Raw:       payload,
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(entry); err != nil {
		return "", fmt.Errorf("write journal entry %s: marshal: %w", id, err)
	}
	data := buf.Bytes()

	ref := Ref(id)
	tmp, err := os.CreateTemp(j.dir, ".tmp-"+id+"-*")
	if err != nil {
		return "", fmt.Errorf("write journal entry %s: create temp: %w", id, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // No-op after a successful rename

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write journal entry %s: write: %w", id, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return "", fmt.Errorf("write journal entry %s: sync: %w", id, err)
	}
	if err := tmp.Close(); err != nil {
		return "", fmt.Errorf("write journal entry %s: close: %w", id, err)
	}
	if err := os.Rename(tmpName, filepath.Join(j.dir, ref)); err != nil {
		return "", fmt.Errorf("write journal entry %s: rename: %w", id, err)
	}
	if err := syncDir(j.dir); err != nil {
		return "", fmt.Errorf("write journal entry %s: sync dir: %w", id, err)
	}

	return ref, nil
}

// Remove deletes the entry for id. Removing a missing entry is not an error.
func (j *Journal) Remove(id string) error {
	if id == "" || strings.ContainsAny(id, `/\`) {
		return fmt.Errorf("remove journal entry: invalid id %q", id)
	}
	err := os.Remove(filepath.Join(j.dir, Ref(id)))
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("remove journal entry %s: %w", id, err)
	}
	return nil
}

// Read loads and verifies the entry for id.
func (j *Journal) Read(id string) (Entry, error) {
	return j.readFile(Ref(id))
}

// IDs returns the ids of every entry, sorted.
func (j *Journal) IDs() ([]string, error) {
	names, err := j.entryFiles()
	if err != nil {
		return nil, err
	}
	ids := make([]string, len(names))
	for i, name := range names {
		ids[i] = strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix)
	}
	return ids, nil
}

// Scan calls fn for every entry in id order.
//
// An entry that cannot be read is passed to fn with a non-nil error
// (wrapping ErrCorrupt when undecodable) so the caller can report it and
// carry on. Scan stops early only if fn returns an error.
func (j *Journal) Scan(fn func(ref string, entry Entry, err error) error) error {
	names, err := j.entryFiles()
	if err != nil {
		return err
	}
	for _, name := range names {
		entry, readErr := j.readFile(name)
		if err := fn(name, entry, readErr); err != nil {
			return err
		}
	}
	return nil
}

func (j *Journal) entryFiles() ([]string, error) {
	dirEntries, err := os.ReadDir(j.dir)
	if err != nil {
		return nil, fmt.Errorf("list journal %s: %w", j.dir, err)
	}

	var names []string
	for _, de := range dirEntries {
		name := de.Name()
		if de.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, fileSuffix) {
			continue
		}
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

func (j *Journal) readFile(name string) (Entry, error) {
	data, err := os.ReadFile(filepath.Join(j.dir, name))
	if errors.Is(err, os.ErrNotExist) {
		return Entry{}, fmt.Errorf("read %s: %w", name, ErrNotFound)
	}
	if err != nil {
		return Entry{}, fmt.Errorf("read %s: %w", name, err)
	}

	var f entryFile
	if err := json.Unmarshal(data, &f); err != nil {
		return Entry{}, fmt.Errorf("read %s: %v: %w", name, err, ErrCorrupt)
	}
	payload := []byte(f.Raw)
	if len(payload) == 0 {
		payload = f.Data
	}
	if f.ID == "" || len(payload) == 0 {
		return Entry{}, fmt.Errorf("read %s: missing id or data: %w", name, ErrCorrupt)
	}
	compact, err := compactJSON(payload)
	if err != nil {
		return Entry{}, fmt.Errorf("read %s: %v: %w", name, err, ErrCorrupt)
	}
	// Entries written before digests existed carry none; accept them.
	if f.Digest != "" && f.Digest != submission.Digest(compact) {
		return Entry{}, fmt.Errorf("read %s: digest mismatch: %w", name, ErrCorrupt)
	}
	if len(f.Raw) == 0 {
		payload = compact
	}
	return Entry{ID: f.ID, Timestamp: f.Timestamp, Digest: f.Digest, Payload: payload}, nil
}

// compactJSON strips insignificant whitespace. Digests are computed over
// the compact form because the entry file is indented.
func compactJSON(raw []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return nil, fmt.Errorf("compact payload: %w", err)
	}
	return buf.Bytes(), nil
}

// syncDir fsyncs a directory so a rename inside it is durable.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return err
	}
	defer d.Close()
	return d.Sync()
}
