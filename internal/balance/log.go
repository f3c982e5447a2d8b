package balance

import (
	"encoding/csv"
	"fmt"
	"io"
	"sync"
)

// ExportHeader is the first row of a spreadsheet export.
var ExportHeader = []string{"address", "decimal", "plancksTotal", "free", "reserved", "note"}

// Log accumulates records keyed by account for the lifetime of a session.
// Accounts keep the position of their first lookup; later lookups replace
// the record in place.
type Log struct {
	mu      sync.RWMutex
	order   []string
	records map[string]Record
}

// NewLog creates an empty log.
func NewLog() *Log {
	return &Log{records: make(map[string]Record)}
}

// Put stores rec under its account.
func (l *Log) Put(rec Record) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if _, ok := l.records[rec.Account]; !ok {
		l.order = append(l.order, rec.Account)
	}
	l.records[rec.Account] = rec
}

// Get returns the record stored for account.
func (l *Log) Get(account string) (Record, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rec, ok := l.records[account]
	return rec, ok
}

// Len returns the number of distinct accounts logged.
func (l *Log) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.order)
}

// Records returns the logged records in first-seen order.
func (l *Log) Records() []Record {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Record, 0, len(l.order))
	for _, account := range l.order {
		out = append(out, l.records[account])
	}
	return out
}

// Clear drops every record.
func (l *Log) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.order = nil
	l.records = make(map[string]Record)
}

// WriteTSV writes the log as tab-separated rows suitable for pasting into
// a spreadsheet. Nothing is written when the log is empty.
func (l *Log) WriteTSV(w io.Writer) error {
	records := l.Records()
	if len(records) == 0 {
		return nil
	}

	cw := csv.NewWriter(w)
	cw.Comma = '\t'

	if err := cw.Write(ExportHeader); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	for _, rec := range records {
		row := []string{rec.Account, rec.Decimal, rec.PlancksTotal, rec.Free, rec.Reserved, rec.Note}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", rec.Account, err)
		}
	}

	cw.Flush()
	return cw.Error()
}
