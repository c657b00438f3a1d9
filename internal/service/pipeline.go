package service

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/GoPolymarket/buildmymeta/internal/capture"
	"github.com/GoPolymarket/buildmymeta/internal/model"
	"github.com/GoPolymarket/buildmymeta/internal/pkg/apperrors"
	"github.com/GoPolymarket/buildmymeta/internal/pkg/logger"
	"github.com/GoPolymarket/buildmymeta/internal/pkg/metrics"
	"github.com/gin-gonic/gin"
)

const defaultSinkTimeout = 10 * time.Second

// PipelineConfig is everything a pipeline needs. It is read once by NewPipeline.
type PipelineConfig struct {
	Kind   model.BackendKind
	Handle any
	// EnableDefaultCapture=false records only exchanges that called LogCustomMetadata.
	EnableDefaultCapture bool
	Identity             string
	LogDir               string
	Capture              capture.Options
	SinkTimeout          time.Duration

	Registry    *SinkRegistry
	AuditMirror AuditMirror
}

// Pipeline captures exchanges, writes the API audit row, persists the record and writes
// the persistence audit row. Post-processing runs off the request path.
type Pipeline struct {
	cfg        PipelineConfig
	dispatcher *SinkDispatcher
	assembler  *Assembler
	audit      *AuditService

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewPipeline validates cfg and configures the sink. No audit file exists until the
// first exchange is logged.
func NewPipeline(ctx context.Context, cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Kind == "" {
		return nil, apperrors.NewConfiguration("a database type is required")
	}
	if strings.TrimSpace(cfg.Identity) == "" {
		return nil, apperrors.NewConfiguration("an identity is required")
	}
	if cfg.SinkTimeout <= 0 {
		cfg.SinkTimeout = defaultSinkTimeout
	}

	dispatcher := NewSinkDispatcher(cfg.Registry)
	if err := dispatcher.Configure(ctx, cfg.Kind, cfg.Handle, cfg.Identity); err != nil {
		return nil, err
	}

	return &Pipeline{
		cfg:        cfg,
		dispatcher: dispatcher,
		assembler:  NewAssembler(cfg.Identity),
		audit:      NewAuditService(cfg.LogDir, cfg.AuditMirror),
	}, nil
}

func (p *Pipeline) Kind() model.BackendKind {
	return p.dispatcher.Kind()
}

// Identity is the fallback user id recorded for exchanges without one.
func (p *Pipeline) Identity() string {
	return p.dispatcher.Identity()
}

func (p *Pipeline) Audit() *AuditService {
	return p.audit
}

// Begin installs the interceptor on c. It does no I/O besides snapshotting the request.
// installed is false when an exchange already runs on c; only its installer may finish it.
func (p *Pipeline) Begin(c *gin.Context) (ex *capture.Exchange, installed bool) {
	return capture.Install(c, p.cfg.Capture)
}

// Finish completes ex from the final state of c and schedules post-processing.
// Only the first call for an exchange has an effect.
func (p *Pipeline) Finish(c *gin.Context, ex *capture.Exchange) {
	if ex == nil {
		return
	}

	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		ex.Abandon()
		metrics.ExchangesTotal.WithLabelValues("dropped").Inc()
		return
	}
	if !capture.Finish(c, ex, time.Now()) {
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		p.process(context.Background(), ex)
	}()
}

// Abandon drops ex. Nothing is audited or persisted for an abandoned exchange.
func (p *Pipeline) Abandon(ex *capture.Exchange) {
	if ex != nil && ex.Abandon() {
		metrics.ExchangesTotal.WithLabelValues("dropped").Inc()
		logger.Debug("exchange abandoned before completion", "request_id", ex.ID)
	}
}

func (p *Pipeline) process(ctx context.Context, ex *capture.Exchange) {
	rec, ok := p.assembler.Assemble(ctx, ex)
	if !ok {
		metrics.ExchangesTotal.WithLabelValues("dropped").Inc()
		return
	}
	if _, custom := ex.Custom(); !p.cfg.EnableDefaultCapture && !custom {
		metrics.ExchangesTotal.WithLabelValues("skipped").Inc()
		return
	}
	metrics.ExchangesTotal.WithLabelValues("captured").Inc()
	metrics.ResponseTime.WithLabelValues(rec.APIMethod).Observe(float64(rec.ResponseTime) / 1000)

	if int(rec.Status) < http.StatusBadRequest {
		p.audit.Append(model.AuditAPISuccess, &rec, "")
	} else {
		p.audit.Append(model.AuditAPIError, &rec, "")
	}

	kind := string(p.dispatcher.Kind())
	sinkCtx, cancel := context.WithTimeout(ctx, p.cfg.SinkTimeout)
	err := p.dispatcher.SaveMetadata(sinkCtx, &rec)
	cancel()
	if err != nil {
		metrics.SinkWrites.WithLabelValues(kind, "error").Inc()
		logger.LogError(ctx, apperrors.NewSink(kind, err), "failed to save metadata", "request_id", rec.ID)
		p.audit.Append(model.AuditMetaError, &rec, err.Error())
		return
	}
	metrics.SinkWrites.WithLabelValues(kind, "ok").Inc()
	p.audit.Append(model.AuditMetaSuccess, &rec, "")
}

// LogCustomMetadata attaches application data to the exchange running on c.
func (p *Pipeline) LogCustomMetadata(c *gin.Context, data model.PartialRecord) error {
	ex := capture.FromContext(c)
	if ex == nil {
		return apperrors.NewNotInitialized("metadata middleware is not installed on this request")
	}
	if state := ex.State(); state == capture.StateComplete || state == capture.StateAbandoned {
		return apperrors.NewInvalidRequest(fmt.Sprintf("exchange %s already %s", ex.ID, state))
	}
	ex.Attach(data)
	return nil
}

// Shutdown stops accepting exchanges, waits for in-flight post-processing and closes the
// audit logs. Post-processing still running when ctx ends is left to finish on its own.
func (p *Pipeline) Shutdown(ctx context.Context) error {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return nil
	}
	p.closed = true
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		p.audit.Close()
		return nil
	case <-ctx.Done():
		go func() {
			<-done
			p.audit.Close()
		}()
		return ctx.Err()
	}
}
