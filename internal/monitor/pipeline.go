// Package monitor wires the observation sources into the shared correlation
// and classification pipeline, and supervises their lifecycles.
package monitor

import (
	"context"
	"strings"

	"docsentry/internal/audit"
	"docsentry/internal/classify"
	"docsentry/internal/logging"
	"docsentry/internal/metrics"
	"docsentry/internal/observe"
	"docsentry/internal/registry"
	"docsentry/internal/store"
)

// Pipeline turns raw observations into durable incidents: correlate against
// the registry, derive severity, record. It is the single observe.Sink every
// source submits to.
//
// Sources are deliberately not deduplicated against each other. The watcher
// and the process scanner reporting the same copy is the same real-world
// action seen from two vantage points, and both records are kept.
type Pipeline struct {
	registry   *registry.Registry
	classifier *classify.Classifier
	scorer     classify.ContextScorer
	recorder   *audit.Recorder
	log        *logging.Logger

	// logUntrackedCreates records a LOW informational incident for created
	// files with no registry correlation. Off by default; busy download
	// directories make it noisy.
	logUntrackedCreates bool
}

// NewPipeline builds the pipeline.
func NewPipeline(reg *registry.Registry, cls *classify.Classifier, scorer classify.ContextScorer,
	rec *audit.Recorder, log *logging.Logger, logUntrackedCreates bool) *Pipeline {
	return &Pipeline{
		registry:            reg,
		classifier:          cls,
		scorer:              scorer,
		recorder:            rec,
		log:                 log.WithComponent("pipeline"),
		logUntrackedCreates: logUntrackedCreates,
	}
}

// Submit implements observe.Sink. It never blocks on network I/O and never
// panics a source's loop: a failed durable write is logged and the incident
// dropped for this cycle.
func (p *Pipeline) Submit(ctx context.Context, obs observe.Observation) {
	metrics.ObservationsTotal(obs.Detector).Inc()

	originalName := obs.OriginalName
	contentHash := obs.ContentHash
	correlated := obs.Correlated
	if !correlated && obs.SourcePath != "" {
		originalName, contentHash, correlated = p.registry.Lookup(obs.SourcePath)
	}

	kind := obs.Kind
	var severity classify.Severity

	switch {
	case kind == observe.KindClipboardLargeText:
		// No path, nothing to correlate: the size-and-changed heuristic is
		// the whole signal, flagged as a possible content copy.
		severity = classify.SeverityMedium

	case kind == observe.KindBrowserWindowContext && !correlated:
		// Title-only browser signal: severity comes from the context scorer.
		titles := splitTitles(obs.Context["window_titles"])
		_, _, severity = p.scorer.Score(titles)

	case correlated:
		if kind == observe.KindFileCreated {
			// A newly appearing file with registered content is a copy.
			kind = observe.KindFileCopied
		}
		severity = p.classifier.Classify(kind, obs.DestinationPath)

	case kind == observe.KindFileCreated && p.logUntrackedCreates:
		severity = classify.SeverityLow

	default:
		severity = classify.Suppressed
	}

	if severity == classify.Suppressed {
		return
	}

	incident := &store.Incident{
		OperationType:   string(kind),
		SourcePath:      obs.SourcePath,
		DestinationPath: obs.DestinationPath,
		ContentHash:     contentHash,
		DetectedBy:      obs.Detector,
		ProcessName:     obs.ProcessName,
		Severity:        string(severity),
		Timestamp:       obs.Timestamp,
	}
	if err := p.recorder.RecordIncident(incident); err != nil {
		p.log.Error("incident write failed, record dropped for this cycle",
			"operation", kind, "source_path", obs.SourcePath, "error", err)
		return
	}

	if correlated {
		p.log.Warn("protected file operation",
			"operation", kind,
			"original_name", originalName,
			"source_path", obs.SourcePath,
			"destination_path", obs.DestinationPath,
			"process", obs.ProcessName,
			"severity", severity,
			"detected_by", obs.Detector)
	} else {
		p.log.Info("heuristic incident",
			"operation", kind, "severity", severity, "detected_by", obs.Detector)
	}
}

func splitTitles(joined string) []string {
	if joined == "" {
		return nil
	}
	return strings.Split(joined, "\n")
}
