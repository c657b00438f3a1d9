package service

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/GoPolymarket/buildmymeta/internal/model"
	"github.com/GoPolymarket/buildmymeta/internal/pkg/apperrors"
	"github.com/GoPolymarket/buildmymeta/internal/pkg/logger"
	"github.com/GoPolymarket/buildmymeta/internal/pkg/metrics"
)

const DefaultLogDir = "buildmymetalogs"

var errAuditClosed = errors.New("audit service closed")

// AuditMirror receives a copy of every row after it reached its CSV file.
type AuditMirror interface {
	Append(ctx context.Context, entry *model.AuditEntry) error
}

// AuditService appends rows to the four CSV audit logs. A single consumer goroutine
// owns the files, so rows of one log never interleave.
type AuditService struct {
	dir    string
	mirror AuditMirror

	logChan chan model.AuditEntry
	files   map[model.AuditKind]*os.File // 仅消费者 goroutine 访问

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewAuditService does not touch the filesystem; directory and files appear on first write.
func NewAuditService(logDir string, mirror AuditMirror) *AuditService {
	if logDir == "" {
		logDir = DefaultLogDir
	}
	svc := &AuditService{
		dir:     logDir,
		mirror:  mirror,
		logChan: make(chan model.AuditEntry, 1000), // 缓冲区 1000
		files:   make(map[model.AuditKind]*os.File),
	}

	// 启动消费者 goroutine
	svc.wg.Add(1)
	go svc.processLogs()

	return svc
}

func (s *AuditService) Dir() string {
	return s.dir
}

// Append derives a row from rec and queues it. errMsg is used on the error logs only.
func (s *AuditService) Append(kind model.AuditKind, rec *model.MetadataRecord, errMsg string) {
	s.Log(model.NewAuditEntry(kind, rec, errMsg))
}

// Log queues entry. It blocks only while the buffer is full and never returns an error;
// writes after Close are reported and discarded.
func (s *AuditService) Log(entry model.AuditEntry) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		metrics.AuditRows.WithLabelValues(string(entry.Kind), "dropped").Inc()
		logger.ReportError(apperrors.NewAudit(string(entry.Kind), errAuditClosed), "audit log closed, dropping entry")
		return
	}
	s.logChan <- entry
}

func (s *AuditService) processLogs() {
	defer s.wg.Done()
	for entry := range s.logChan {
		if err := s.write(entry); err != nil {
			metrics.AuditRows.WithLabelValues(string(entry.Kind), "error").Inc()
			logger.ReportError(apperrors.NewAudit(string(entry.Kind), err), "failed to write audit log", "request_id", entry.RequestID)
			continue
		}
		metrics.AuditRows.WithLabelValues(string(entry.Kind), "ok").Inc()

		if s.mirror != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			if err := s.mirror.Append(ctx, &entry); err != nil {
				logger.ReportError(err, "failed to mirror audit log", "log", entry.Kind)
			}
			cancel()
		}
	}
}

// write renders the row first and appends it with a single write call.
func (s *AuditService) write(entry model.AuditEntry) error {
	f, err := s.file(entry.Kind)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(entry.Row()); err != nil {
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return err
	}
	_, err = f.Write(buf.Bytes())
	return err
}

func (s *AuditService) file(kind model.AuditKind) (*os.File, error) {
	if f, ok := s.files[kind]; ok {
		return f, nil
	}
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(filepath.Join(s.dir, kind.FileName()), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.Size() == 0 {
		var buf bytes.Buffer
		w := csv.NewWriter(&buf)
		_ = w.Write(model.AuditHeader)
		w.Flush()
		if _, err := f.Write(buf.Bytes()); err != nil {
			f.Close()
			return nil, err
		}
	}
	s.files[kind] = f
	return f, nil
}

// Close drains queued rows and closes the files. It is safe to call more than once.
func (s *AuditService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	close(s.logChan)
	s.mu.Unlock()

	s.wg.Wait()
	for kind, f := range s.files {
		if err := f.Close(); err != nil {
			logger.ReportError(err, "failed to close audit log", "log", kind)
		}
	}
}
