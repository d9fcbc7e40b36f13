package store

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/thinkwright/hl7v/internal/hl7"
)

// Message sources recorded with each history entry.
const (
	SourcePaste  = "paste"
	SourceFile   = "file"
	SourceSerial = "serial"
	SourceTCP    = "tcp"
	SourceImport = "import"
	SourceAPI    = "api"
)

var ErrNotFound = errors.New("history entry not found")

type HistoryEntry struct {
	ID           int64
	Raw          string
	Source       string
	MessageType  string
	ControlID    string
	SegmentCount int
	SegmentTypes []string
	CreatedAt    time.Time
}

// Label is a short one-line description for lists.
func (e HistoryEntry) Label() string {
	label := e.MessageType
	if label == "" && len(e.SegmentTypes) > 0 {
		label = e.SegmentTypes[0]
	}
	if e.ControlID != "" {
		label += " #" + e.ControlID
	}
	return label
}

const entryColumns = "id, raw, source, message_type, control_id, segment_count, segment_types, created_at"

// Save records a parsed message. Saving the same text as the most recent
// entry returns that entry instead of adding a duplicate.
func (s *Store) Save(raw, source string) (HistoryEntry, error) {
	segments, err := hl7.Split(raw)
	if err != nil {
		return HistoryEntry{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	last, err := s.scanOne("SELECT "+entryColumns+" FROM messages ORDER BY id DESC LIMIT 1")
	if err == nil && last.Raw == raw {
		return last, nil
	}

	info, _ := hl7.MessageInfo(segments)
	types := make([]string, len(segments))
	for i, seg := range segments {
		types[i] = seg.Type
	}
	now := s.now()

	res, err := s.db.Exec(
		`INSERT INTO messages (raw, source, message_type, control_id, segment_count, segment_types, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		raw, source, info.MessageType, info.ControlID, len(segments), joinTypes(types), now.UnixMilli(),
	)
	if err != nil {
		return HistoryEntry{}, fmt.Errorf("insert message: %w", err)
	}
	id, _ := res.LastInsertId()

	return HistoryEntry{
		ID:           id,
		Raw:          raw,
		Source:       source,
		MessageType:  info.MessageType,
		ControlID:    info.ControlID,
		SegmentCount: len(segments),
		SegmentTypes: types,
		CreatedAt:    time.UnixMilli(now.UnixMilli()),
	}, nil
}

// Recent returns the newest entries first. A non-positive limit returns all.
func (s *Store) Recent(limit int) ([]HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.query("SELECT "+entryColumns+" FROM messages ORDER BY id DESC LIMIT ?", sqlLimit(limit))
}

// Get returns a single entry by id.
func (s *Store) Get(id int64) (HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	e, err := s.scanOne("SELECT "+entryColumns+" FROM messages WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return HistoryEntry{}, ErrNotFound
	}
	return e, err
}

// Delete removes an entry. Deleting a missing id returns ErrNotFound.
func (s *Store) Delete(id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec("DELETE FROM messages WHERE id = ?", id)
	if err != nil {
		return err
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int
	s.db.QueryRow("SELECT COUNT(*) FROM messages").Scan(&n)
	return n
}

// Messages returns the raw text of every entry, oldest first.
func (s *Store) Messages() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query("SELECT raw FROM messages ORDER BY id ASC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var raw string
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		out = append(out, raw)
	}
	return out, rows.Err()
}

// Search runs a history query (free text plus key:value filters, see Parse).
// A blank query behaves like Recent.
func (s *Store) Search(query string, limit int) ([]HistoryEntry, error) {
	fs := Parse(query)
	if fs.IsEmpty() {
		return s.Recent(limit)
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	where, params := fs.ToSQL(s.now())
	sqlStr := fmt.Sprintf("SELECT %s FROM messages WHERE %s ORDER BY id DESC LIMIT ?", entryColumns, where)
	params = append(params, sqlLimit(limit))

	results, err := s.query(sqlStr, params...)
	if err != nil {
		return nil, fmt.Errorf("search query: %w", err)
	}
	return results, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEntry(r rowScanner) (HistoryEntry, error) {
	var (
		e       HistoryEntry
		types   string
		created int64
	)
	if err := r.Scan(&e.ID, &e.Raw, &e.Source, &e.MessageType, &e.ControlID,
		&e.SegmentCount, &types, &created); err != nil {
		return HistoryEntry{}, err
	}
	e.SegmentTypes = splitTypes(types)
	e.CreatedAt = time.UnixMilli(created)
	return e, nil
}

func (s *Store) scanOne(query string, args ...any) (HistoryEntry, error) {
	return scanEntry(s.db.QueryRow(query, args...))
}

func (s *Store) query(query string, args ...any) ([]HistoryEntry, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []HistoryEntry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			continue
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// segment_types is stored as ",MSH,PID," so a single LIKE finds a code.
func joinTypes(types []string) string {
	return "," + strings.Join(types, ",") + ","
}

func splitTypes(s string) []string {
	s = strings.TrimSuffix(strings.TrimPrefix(s, ","), ",")
	if s == "" {
		return nil
	}
	return strings.Split(s, ",")
}

func sqlLimit(limit int) int {
	if limit <= 0 {
		return -1
	}
	return limit
}
