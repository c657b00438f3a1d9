package service

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/GoPolymarket/buildmymeta/internal/model"
)

// ReadAuditLog parses one CSV audit log. A missing file yields no rows and no error.
func ReadAuditLog(dir string, kind model.AuditKind) ([]model.AuditEntry, error) {
	f, err := os.Open(filepath.Join(dir, kind.FileName()))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, err
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(model.AuditHeader)

	header, err := r.Read()
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", kind.FileName(), err)
	}
	for i, col := range model.AuditHeader {
		if header[i] != col {
			return nil, fmt.Errorf("%s: unexpected header %v", kind.FileName(), header)
		}
	}

	var entries []model.AuditEntry
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return entries, fmt.Errorf("%s: %w", kind.FileName(), err)
		}
		ts, _ := time.Parse("2006-01-02T15:04:05.000Z", row[0])
		entries = append(entries, model.AuditEntry{
			Kind:      kind,
			Timestamp: ts,
			UserID:    row[1],
			APIMethod: row[2],
			URL:       row[3],
			Status:    row[4],
			Message:   row[5],
		})
	}
	return entries, nil
}

// AuditSummary counts rows per log and keeps the newest failures.
type AuditSummary struct {
	Counts   map[model.AuditKind]int
	Failures []model.AuditEntry
}

// SummarizeAuditLogs reads all four logs under dir. Failures holds at most recent
// rows from the error logs, newest first.
func SummarizeAuditLogs(dir string, recent int) (*AuditSummary, error) {
	summary := &AuditSummary{Counts: make(map[model.AuditKind]int, len(model.AuditKinds))}
	for _, kind := range model.AuditKinds {
		entries, err := ReadAuditLog(dir, kind)
		if err != nil {
			return nil, err
		}
		summary.Counts[kind] = len(entries)
		if kind.IsError() {
			summary.Failures = append(summary.Failures, entries...)
		}
	}
	sortEntriesNewestFirst(summary.Failures)
	if recent >= 0 && len(summary.Failures) > recent {
		summary.Failures = summary.Failures[:recent]
	}
	return summary, nil
}

func sortEntriesNewestFirst(entries []model.AuditEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].Timestamp.After(entries[j].Timestamp)
	})
}
