// Package ledger maintains the append-only, date-partitioned capture log.
//
// Each day gets one ledger-YYYYMMDD.jsonl file holding one compact JSON record
// per capture, in capture order.
package ledger

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"nexusclip/internal/protocol"
)

const (
	// KindCapture marks a record describing one capture file.
	KindCapture = "capture"

	// TimestampLayout renders UTC round-trip timestamps with seven fractional digits.
	TimestampLayout = "2006-01-02T15:04:05.0000000Z07:00"

	filePrefix = "ledger-"
	fileSuffix = ".jsonl"
	dayLayout  = "20060102"

	maxLineBytes = 1 << 20
)

// Record is one ledger line.
type Record struct {
	TS     string `json:"ts"`
	Kind   string `json:"kind"`
	File   string `json:"file"`
	SHA256 string `json:"sha256"`
	Proto  string `json:"proto"`
}

// NewCaptureRecord builds the record for a capture file.
func NewCaptureRecord(at time.Time, file, sha256 string) Record {
	return Record{
		TS:     FormatTimestamp(at),
		Kind:   KindCapture,
		File:   file,
		SHA256: sha256,
		Proto:  protocol.LedgerProto,
	}
}

// FormatTimestamp renders t in UTC using TimestampLayout.
func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// Time parses the record timestamp.
func (r Record) Time() (time.Time, error) {
	return time.Parse(time.RFC3339Nano, r.TS)
}

// Ledger appends records to the partition for the current UTC day.
type Ledger struct {
	dir string
	now func() time.Time
	mu  sync.Mutex
}

// New returns a Ledger writing under dir.
func New(dir string) *Ledger {
	return &Ledger{dir: dir, now: time.Now}
}

// NewWithClock returns a Ledger that selects partitions using now.
func NewWithClock(dir string, now func() time.Time) *Ledger {
	l := New(dir)
	if now != nil {
		l.now = now
	}
	return l
}

// Dir returns the ledger directory.
func (l *Ledger) Dir() string {
	return l.dir
}

// PartitionName returns the ledger file name for the given day.
func PartitionName(day time.Time) string {
	return filePrefix + day.UTC().Format(dayLayout) + fileSuffix
}

// Append writes rec as one line to today's partition. Appends are serialized
// and each line reaches the file in a single write that is synced to disk.
func (l *Ledger) Append(rec Record) error {
	if err := os.MkdirAll(l.dir, 0o755); err != nil {
		return fmt.Errorf("ledger: create directory: %w", err)
	}

	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rec); err != nil {
		return fmt.Errorf("ledger: marshal record: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	path := filepath.Join(l.dir, PartitionName(l.now()))
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("ledger: open partition: %w", err)
	}
	if _, err := f.Write(buf.Bytes()); err != nil {
		_ = f.Close()
		return fmt.Errorf("ledger: append: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return fmt.Errorf("ledger: sync: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("ledger: close partition: %w", err)
	}
	return nil
}

// Read returns the records of one day's partition in file order. Malformed
// lines are skipped. A missing partition yields no records.
func Read(dir string, day time.Time) ([]Record, error) {
	return readPartition(filepath.Join(dir, PartitionName(day)))
}

func readPartition(path string) ([]Record, error) {
	f, err := os.Open(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledger: open partition: %w", err)
	}
	defer func() { _ = f.Close() }()

	var records []Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	for scanner.Scan() {
		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		var rec Record
		if err := json.Unmarshal(line, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("ledger: scan partition: %w", err)
	}
	return records, nil
}

// Days lists the days that have a ledger partition, newest first.
func Days(dir string) ([]time.Time, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("ledger: read directory: %w", err)
	}
	var days []time.Time
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		day, ok := ParseDay(strings.TrimSuffix(strings.TrimPrefix(entry.Name(), filePrefix), fileSuffix))
		if !ok || PartitionName(day) != entry.Name() {
			continue
		}
		days = append(days, day)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })
	return days, nil
}

// ParseDay parses a YYYYMMDD day.
func ParseDay(value string) (time.Time, bool) {
	day, err := time.ParseInLocation(dayLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return day, true
}

// ReadAll returns every record across all partitions, oldest day first.
func ReadAll(dir string) ([]Record, error) {
	days, err := Days(dir)
	if err != nil {
		return nil, err
	}
	var all []Record
	for i := len(days) - 1; i >= 0; i-- {
		recs, err := Read(dir, days[i])
		if err != nil {
			return nil, err
		}
		all = append(all, recs...)
	}
	return all, nil
}
