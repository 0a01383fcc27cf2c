package jsonldb

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"iter"
	"os"
	"path/filepath"
	"sort"
	"sync"
)

// ErrNotFound is returned by Modify when no row has the requested ID.
var ErrNotFound = errors.New("row not found")

// Row is implemented by types that can be stored in a [Table].
type Row[T any] interface {
	// Clone returns a deep copy of the row.
	Clone() T
	// GetID returns the row's unique identifier.
	GetID() ID
	// Validate checks that the row is well-formed.
	Validate() error
}

// TableObserver is notified of table mutations. Used by secondary indexes to
// stay synchronized with the table.
type TableObserver[T Row[T]] interface {
	OnAppend(row T)
	OnUpdate(prev, curr T)
	OnDelete(row T)
}

// Table handles storage and in-memory caching for a single table in JSONL format.
//
// The first line of the file is a schema header generated from T; the remaining
// lines are one JSON document per row. Rows are kept sorted by ID in memory.
type Table[T Row[T]] struct {
	path   string
	header schemaHeader

	mu        sync.RWMutex
	rows      []T
	observers []TableObserver[T]
}

// NewTable creates a new Table and loads all data from the file.
func NewTable[T Row[T]](path string) (*Table[T], error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create directory for %s: %w", path, err)
	}

	columns, err := schemaFromType[T]()
	if err != nil {
		return nil, fmt.Errorf("failed to generate schema for %s: %w", path, err)
	}

	table := &Table[T]{
		path:   path,
		header: schemaHeader{Version: currentVersion, Columns: columns},
	}

	if err := table.load(); err != nil {
		return nil, err
	}

	return table, nil
}

func (t *Table[T]) load() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.loadLocked()
}

func (t *Table[T]) loadLocked() error {
	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			t.rows = []T{}
			return nil
		}
		return fmt.Errorf("failed to open table file %s: %w", t.path, err)
	}
	defer func() {
		_ = f.Close()
	}()

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)

	// Line 1 is the schema header.
	first := true
	var rows []T
	seen := map[ID]struct{}{}
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if first {
			first = false
			var header schemaHeader
			if err := json.Unmarshal(line, &header); err != nil {
				return fmt.Errorf("failed to parse schema header in %s: %w", t.path, err)
			}
			if err := header.Validate(); err != nil {
				return fmt.Errorf("invalid schema header in %s: %w", t.path, err)
			}
			continue
		}
		var row T
		if err := json.Unmarshal(line, &row); err != nil {
			return fmt.Errorf("failed to unmarshal row in %s: %w", t.path, err)
		}
		id := row.GetID()
		if id.IsZero() {
			return fmt.Errorf("row with zero ID in %s", t.path)
		}
		if _, ok := seen[id]; ok {
			return fmt.Errorf("duplicate row ID %s in %s", id, t.path)
		}
		if err := row.Validate(); err != nil {
			return fmt.Errorf("invalid row %s in %s: %w", id, t.path, err)
		}
		seen[id] = struct{}{}
		rows = append(rows, row)
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read table file %s: %w", t.path, err)
	}

	// Tolerate out-of-order files (clock drift, manual edits).
	sort.Slice(rows, func(i, j int) bool { return rows[i].GetID() < rows[j].GetID() })

	t.rows = rows
	return nil
}

// Reload discards the in-memory cache and re-reads the file. Observers are
// notified with a delete for every previous row and an append for every
// loaded row so indexes rebuild.
func (t *Table[T]) Reload() error {
	t.mu.Lock()
	defer t.mu.Unlock()
	prev := t.rows
	if err := t.loadLocked(); err != nil {
		t.rows = prev
		return err
	}
	for _, row := range prev {
		t.notifyDelete(row)
	}
	for _, row := range t.rows {
		t.notifyAppend(row)
	}
	return nil
}

// AddObserver registers an observer for table mutations. The observer is
// immediately notified of all existing rows via OnAppend.
func (t *Table[T]) AddObserver(o TableObserver[T]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.observers = append(t.observers, o)
	for _, row := range t.rows {
		o.OnAppend(row)
	}
}

func (t *Table[T]) notifyAppend(row T) {
	for _, o := range t.observers {
		o.OnAppend(row)
	}
}

func (t *Table[T]) notifyUpdate(prev, curr T) {
	for _, o := range t.observers {
		o.OnUpdate(prev, curr)
	}
}

func (t *Table[T]) notifyDelete(row T) {
	for _, o := range t.observers {
		o.OnDelete(row)
	}
}

// search returns the index of id in rows, or -1.
// Rows are sorted by ID so this is a binary search.
func (t *Table[T]) search(id ID) int {
	i := sort.Search(len(t.rows), func(i int) bool { return t.rows[i].GetID() >= id })
	if i < len(t.rows) && t.rows[i].GetID() == id {
		return i
	}
	return -1
}

// Len returns the number of rows.
func (t *Table[T]) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.rows)
}

// Last returns a clone of the row with the largest ID, or the zero value if empty.
func (t *Table[T]) Last() T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if len(t.rows) == 0 {
		var zero T
		return zero
	}
	return t.rows[len(t.rows)-1].Clone()
}

// Get returns a clone of the row with the given ID, or the zero value if not found.
func (t *Table[T]) Get(id ID) T {
	t.mu.RLock()
	defer t.mu.RUnlock()
	if i := t.search(id); i != -1 {
		return t.rows[i].Clone()
	}
	var zero T
	return zero
}

// All returns an iterator over clones of all rows in ID order.
func (t *Table[T]) All() iter.Seq[T] {
	return t.Iter(0)
}

// Iter returns an iterator over clones of all rows with ID greater than startID,
// in ascending ID order.
func (t *Table[T]) Iter(startID ID) iter.Seq[T] {
	return func(yield func(T) bool) {
		t.mu.RLock()
		defer t.mu.RUnlock()
		i := sort.Search(len(t.rows), func(i int) bool { return t.rows[i].GetID() > startID })
		for ; i < len(t.rows); i++ {
			if !yield(t.rows[i].Clone()) {
				return
			}
		}
	}
}

// Append adds a new row to the table and persists it.
// The row's ID must be non-zero and unique within the table.
func (t *Table[T]) Append(row T) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	id := row.GetID()
	if id.IsZero() {
		return fmt.Errorf("cannot append row with zero ID to %s", t.path)
	}
	if t.search(id) != -1 {
		return fmt.Errorf("duplicate row ID %s in %s", id, t.path)
	}
	if err := row.Validate(); err != nil {
		return fmt.Errorf("invalid row: %w", err)
	}

	data, err := json.Marshal(row)
	if err != nil {
		return fmt.Errorf("failed to marshal row: %w", err)
	}

	if err := t.appendLine(data); err != nil {
		return err
	}

	// Keep the in-memory slice sorted. IDs are time-ordered so the common
	// case is an append at the end.
	i := sort.Search(len(t.rows), func(i int) bool { return t.rows[i].GetID() > id })
	var zero T
	t.rows = append(t.rows, zero)
	copy(t.rows[i+1:], t.rows[i:])
	t.rows[i] = row

	t.notifyAppend(row)
	return nil
}

// appendLine appends one row line to the file, writing the schema header first
// when the file does not exist yet.
func (t *Table[T]) appendLine(data []byte) error {
	if _, err := os.Stat(t.path); os.IsNotExist(err) {
		header, err := json.Marshal(&t.header)
		if err != nil {
			return fmt.Errorf("failed to marshal schema header: %w", err)
		}
		if err := os.WriteFile(t.path, append(header, '\n'), 0o644); err != nil {
			return fmt.Errorf("failed to create table file: %w", err)
		}
	}

	f, err := os.OpenFile(t.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("failed to open table file for append: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()

	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("failed to write row: %w", err)
	}
	if _, err := f.WriteString("\n"); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}
	return nil
}

// Update replaces the row with the same ID and persists the table.
// Returns a clone of the previous row, or the zero value if the ID is unknown.
func (t *Table[T]) Update(row T) (T, error) {
	var zero T
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := row.Validate(); err != nil {
		return zero, fmt.Errorf("invalid row: %w", err)
	}
	i := t.search(row.GetID())
	if i == -1 {
		return zero, nil
	}
	prev := t.rows[i]
	t.rows[i] = row
	if err := t.flushLocked(); err != nil {
		t.rows[i] = prev
		return zero, err
	}
	t.notifyUpdate(prev, row)
	return prev.Clone(), nil
}

// Modify atomically applies fn to a clone of the row with the given ID,
// validates and persists the result, and returns a clone of the new row.
// The write lock is held for the entire read-modify-write.
func (t *Table[T]) Modify(id ID, fn func(row T) error) (T, error) {
	var zero T
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.search(id)
	if i == -1 {
		return zero, ErrNotFound
	}
	prev := t.rows[i]
	curr := prev.Clone()
	if err := fn(curr); err != nil {
		return zero, err
	}
	if curr.GetID() != id {
		return zero, fmt.Errorf("row ID changed from %s to %s during modify", id, curr.GetID())
	}
	if err := curr.Validate(); err != nil {
		return zero, fmt.Errorf("invalid row: %w", err)
	}
	t.rows[i] = curr
	if err := t.flushLocked(); err != nil {
		t.rows[i] = prev
		return zero, err
	}
	t.notifyUpdate(prev, curr)
	return curr.Clone(), nil
}

// Delete removes the row with the given ID and persists the table.
// Returns false if no row has the ID.
func (t *Table[T]) Delete(id ID) (bool, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	i := t.search(id)
	if i == -1 {
		return false, nil
	}
	prev := t.rows[i]
	rows := make([]T, 0, len(t.rows)-1)
	rows = append(rows, t.rows[:i]...)
	rows = append(rows, t.rows[i+1:]...)
	old := t.rows
	t.rows = rows
	if err := t.flushLocked(); err != nil {
		t.rows = old
		return false, err
	}
	t.notifyDelete(prev)
	return true, nil
}

// Replace replaces all rows with the provided slice and persists it.
func (t *Table[T]) Replace(rows []T) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	sorted := make([]T, len(rows))
	copy(sorted, rows)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].GetID() < sorted[j].GetID() })
	for i, row := range sorted {
		if row.GetID().IsZero() {
			return fmt.Errorf("cannot replace with row with zero ID in %s", t.path)
		}
		if i > 0 && row.GetID() == sorted[i-1].GetID() {
			return fmt.Errorf("duplicate row ID %s in %s", row.GetID(), t.path)
		}
		if err := row.Validate(); err != nil {
			return fmt.Errorf("invalid row: %w", err)
		}
	}

	old := t.rows
	t.rows = sorted
	if err := t.flushLocked(); err != nil {
		t.rows = old
		return err
	}
	for _, row := range old {
		t.notifyDelete(row)
	}
	for _, row := range sorted {
		t.notifyAppend(row)
	}
	return nil
}

// flushLocked rewrites the whole file atomically (write to temp file, rename).
// Callers must hold the write lock.
func (t *Table[T]) flushLocked() error {
	tmp := t.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("failed to create table file: %w", err)
	}

	writer := bufio.NewWriter(f)
	write := func() error {
		header, err := json.Marshal(&t.header)
		if err != nil {
			return fmt.Errorf("failed to marshal schema header: %w", err)
		}
		if _, err := writer.Write(header); err != nil {
			return fmt.Errorf("failed to write schema header: %w", err)
		}
		if err := writer.WriteByte('\n'); err != nil {
			return fmt.Errorf("failed to write newline: %w", err)
		}
		for _, row := range t.rows {
			data, err := json.Marshal(row)
			if err != nil {
				return fmt.Errorf("failed to marshal row: %w", err)
			}
			if _, err := writer.Write(data); err != nil {
				return fmt.Errorf("failed to write row: %w", err)
			}
			if err := writer.WriteByte('\n'); err != nil {
				return fmt.Errorf("failed to write newline: %w", err)
			}
		}
		return writer.Flush()
	}

	if err := write(); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to close table file: %w", err)
	}
	if err := os.Rename(tmp, t.path); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("failed to replace table file: %w", err)
	}
	return nil
}
