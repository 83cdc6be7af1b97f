package app

import (
	"context"

	"meshbbs/pkg/logger"
)

// Shutdown stops intake, lets an in-flight dispatch finish, flushes queued
// replies until ctx is done and saves the board.
func (a *App) Shutdown(ctx context.Context) error {
	a.status.Store("shutting_down")
	logger.Info("shutdown_requested")

	if a.srvFast != nil {
		logger.Info("shutdown_stopping_http")
		if err := a.srvFast.Shutdown(); err != nil {
			logger.Error("shutdown_http_error", "error", err)
		}
	}
	if a.expiryCancel != nil {
		a.expiryCancel()
	}
	if a.pumpCancel != nil {
		a.pumpCancel()
		select {
		case <-a.pumpDone:
		case <-ctx.Done():
			logger.Error("shutdown_pump_stop_timeout", "error", ctx.Err())
		}
	}
	if err := a.outbox.Flush(ctx); err != nil {
		logger.Warn("shutdown_dropping_pending_sends", "tasks", a.outbox.Pending(), "error", err)
	}
	a.outbox.Stop()
	if err := a.link.Close(); err != nil {
		logger.Error("shutdown_link_close_error", "error", err)
	}

	// the final save runs even when the flush used up ctx
	err := a.board.Save(context.WithoutCancel(ctx))
	if err != nil {
		logger.Error("shutdown_board_save_failed", "error", err)
	}
	if cerr := a.board.Close(); cerr != nil {
		logger.Error("shutdown_board_close_failed", "error", cerr)
		if err == nil {
			err = cerr
		}
	}
	if err == nil {
		a.status.Store("stopped")
		logger.Info("shutdown_complete")
	}
	return err
}
