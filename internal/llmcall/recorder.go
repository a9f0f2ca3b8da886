package llmcall

import (
	"context"
	"log/slog"

	"github.com/jackzampolin/shotlist/internal/providers"
)

// Recorder writes finished LLM calls to a Store. It implements
// providers.CallRecorder; recording failures are logged, never returned.
type Recorder struct {
	store  *Store
	logger *slog.Logger
}

// NewRecorder creates a new LLM call recorder. A nil store disables recording.
func NewRecorder(store *Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, logger: logger}
}

// RecordCall captures a call reported by a providers.Caller. Stage, source
// and prompt details come from the options attached with WithOptions.
func (r *Recorder) RecordCall(ctx context.Context, req *providers.ChatRequest, result *providers.ChatResult, err error) {
	if r == nil || r.store == nil {
		return
	}

	opts := OptionsFrom(ctx)
	if opts.Temperature == nil && req != nil {
		temp := req.Temperature
		opts.Temperature = &temp
	}
	call := FromChatResult(result, opts)
	if call == nil {
		return
	}
	if err != nil && call.Error == "" {
		call.Error = err.Error()
	}

	// The stage context may already be cancelled; the record should still land.
	if werr := r.store.Insert(context.WithoutCancel(ctx), call); werr != nil {
		r.logger.Warn("failed to record LLM call", "stage", call.Stage, "source", call.Source, "error", werr)
	}
}

var _ providers.CallRecorder = (*Recorder)(nil)
