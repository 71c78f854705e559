package sched

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"terminal-ai-chat/internal/usecase"
)

// AutosaveWorker periodically flushes the session collection to the
// snapshot store, so a crash loses at most one interval of chat.
type AutosaveWorker struct {
	interval time.Duration
	store    *usecase.SessionStore
	log      *zerolog.Logger
}

func NewAutosaveWorker(interval time.Duration, store *usecase.SessionStore, logger *zerolog.Logger) *AutosaveWorker {
	l := logger.With().Str("component", "AutosaveWorker").Logger()
	return &AutosaveWorker{interval: interval, store: store, log: &l}
}

func (w *AutosaveWorker) Run(ctx context.Context) error {
	w.log.Info().Dur("interval", w.interval).Msg("Starting autosave worker")
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			w.log.Info().Msg("Stopping autosave worker")
			return ctx.Err()
		case <-ticker.C:
			if !w.store.Dirty() {
				continue
			}
			if err := w.store.Flush(ctx); err != nil {
				w.log.Error().Err(err).Msg("autosave failed")
			}
		}
	}
}
