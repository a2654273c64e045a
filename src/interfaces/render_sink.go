package interfaces

import (
	"encoding/json"

	"live-dashboard/src/models"
)

// -----------------------------------------------------------------------------
// IRenderSink receives rendering-ready views. Calls are side-effect only and
// must not block the caller.
// -----------------------------------------------------------------------------

type IRenderSink interface {
	// RenderSeries hands over a derived view. The series is never mutated
	// after the call, sinks may keep it.
	RenderSeries(series models.MSeries)

	// -----------------------------------------------------------------------------
	// RenderStatistics hands over the latest statistics summary
	RenderStatistics(stats models.MStatistics)
}

// -----------------------------------------------------------------------------
// INotifier surfaces non-blocking user notices and connection state.
// -----------------------------------------------------------------------------

type INotifier interface {
	Notify(level, message string)

	// -----------------------------------------------------------------------------
	// PublishStatus reports the push channel state
	PublishStatus(status models.MConnectionStatus)

	// PublishSystem relays a backend system status body as received
	PublishSystem(body json.RawMessage)
}
