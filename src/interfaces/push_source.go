package interfaces

import (
	"context"

	"live-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// IPushSource delivers backend push frames asynchronously.
// -----------------------------------------------------------------------------

type IPushSource interface {

	// Run connects and delivers frames to handler until ctx is cancelled.
	// Connection loss is handled internally by reconnecting.
	Run(ctx context.Context, handler IPushHandler) error

	// -----------------------------------------------------------------------------

	// Connected reports whether a connection is currently established
	Connected() bool
}

// -----------------------------------------------------------------------------
// IPushHandler consumes push frames and connection changes. Implementations
// must not block for long, frames are delivered from the reader goroutine.
// -----------------------------------------------------------------------------

type IPushHandler interface {
	OnFrame(frame models.MPushFrame)
	OnConnectionChange(status models.MConnectionStatus)
}
