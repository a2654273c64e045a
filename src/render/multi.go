// Package render holds the local render sinks: a PNG exporter, a terminal
// table and a fan-out to several sinks.
package render

import (
	"live-dashboard/src/interfaces"
	"live-dashboard/src/models"
)

// MultiSink hands every rendering to each of its sinks in order.
type MultiSink []interfaces.IRenderSink

func (m MultiSink) RenderSeries(series models.MSeries) {
	for _, sink := range m {
		sink.RenderSeries(series)
	}
}

func (m MultiSink) RenderStatistics(stats models.MStatistics) {
	for _, sink := range m {
		sink.RenderStatistics(stats)
	}
}
