package metrics

// Daemon metric series. Kept in one place so sources, pipeline, and forwarder
// agree on names and labels.

// ObservationsTotal counts raw observations submitted by a source.
func ObservationsTotal(source string) *Counter {
	return defaultRegistry.Counter(
		"docsentry_observations_total",
		"Raw observations submitted to the pipeline, per source.",
		Labels{"source": source},
	)
}

// IncidentsTotal counts durably recorded incidents per severity.
func IncidentsTotal(severity string) *Counter {
	return defaultRegistry.Counter(
		"docsentry_incidents_total",
		"Classified incidents written to the history store, per severity.",
		Labels{"severity": severity},
	)
}

// ForwardSentTotal counts incidents delivered to the reporting collaborator.
func ForwardSentTotal() *Counter {
	return defaultRegistry.Counter(
		"docsentry_forward_sent_total",
		"Incidents successfully mirrored to the reporting collaborator.",
		nil,
	)
}

// ForwardFailedTotal counts delivery attempts that errored.
func ForwardFailedTotal() *Counter {
	return defaultRegistry.Counter(
		"docsentry_forward_failed_total",
		"Incident forwarding attempts that failed and were abandoned.",
		nil,
	)
}

// ForwardDroppedTotal counts incidents never attempted because the outbound
// queue was full. The local durable record is unaffected.
func ForwardDroppedTotal() *Counter {
	return defaultRegistry.Counter(
		"docsentry_forward_dropped_total",
		"Incidents dropped from the outbound queue before any delivery attempt.",
		nil,
	)
}

// SourceErrorsTotal counts skipped scan cycles per source.
func SourceErrorsTotal(source string) *Counter {
	return defaultRegistry.Counter(
		"docsentry_source_errors_total",
		"Platform read failures that caused a source to skip a cycle.",
		Labels{"source": source},
	)
}

// TrackedAssets reports the current number of registered assets.
func TrackedAssets() *Gauge {
	return defaultRegistry.Gauge(
		"docsentry_tracked_assets",
		"Registered assets in the identity registry.",
		nil,
	)
}

// ForwardQueueDepth reports the current outbound queue length.
func ForwardQueueDepth() *Gauge {
	return defaultRegistry.Gauge(
		"docsentry_forward_queue_depth",
		"Incidents waiting for delivery to the reporting collaborator.",
		nil,
	)
}
