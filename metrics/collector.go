// Package metrics provides per-process client metrics collection.
//
// The Collector accumulates counters for one client process (a TUI session or
// a headless command). It is a leaf package with no internal dependencies;
// statuses and artifact names are passed as plain strings.
package metrics

import "sync"

// Snapshot is an immutable point-in-time view of all client metrics.
// Returned by Collector.Snapshot(). Safe to read concurrently after creation.
type Snapshot struct {
	// Submission
	SubmitSuccess int64
	SubmitFailure int64

	// Polling
	StatusChecks     int64
	TransientErrors  int64
	TerminalByStatus map[string]int64
	Exhaustions      int64

	// Hydration
	HydrateSuccess   int64
	HydrateFailure   int64
	ArtifactMisses   map[string]int64
	StaleEventsDrops int64

	// Outputs
	ExportSuccess int64
	ExportFailure int64
	NotifySuccess int64
	NotifyFailure int64

	// Dimensions (informational, set at construction)
	ServiceURL     string
	StorageBackend string
	Adapter        string
}

// Collector accumulates client metrics.
// Thread-safe via sync.Mutex. All increment methods are nil-receiver safe.
type Collector struct {
	mu sync.Mutex

	submitSuccess int64
	submitFailure int64

	statusChecks     int64
	transientErrors  int64
	terminalByStatus map[string]int64
	exhaustions      int64

	hydrateSuccess int64
	hydrateFailure int64
	artifactMisses map[string]int64
	staleDropped   int64

	exportSuccess int64
	exportFailure int64
	notifySuccess int64
	notifyFailure int64

	serviceURL     string
	storageBackend string
	adapter        string
}

// NewCollector creates a Collector with dimension labels.
// storageBackend and adapter are empty when the output is disabled.
func NewCollector(serviceURL, storageBackend, adapter string) *Collector {
	return &Collector{
		terminalByStatus: make(map[string]int64),
		artifactMisses:   make(map[string]int64),
		serviceURL:       serviceURL,
		storageBackend:   storageBackend,
		adapter:          adapter,
	}
}

func (c *Collector) inc(counter *int64) {
	c.mu.Lock()
	*counter++
	c.mu.Unlock()
}

// --- Submission ---

// IncSubmitSuccess records an accepted submission.
func (c *Collector) IncSubmitSuccess() {
	if c == nil {
		return
	}
	c.inc(&c.submitSuccess)
}

// IncSubmitFailure records a rejected or unreachable submission.
func (c *Collector) IncSubmitFailure() {
	if c == nil {
		return
	}
	c.inc(&c.submitFailure)
}

// --- Polling ---

// IncStatusCheck records one status check result, transient or not.
func (c *Collector) IncStatusCheck() {
	if c == nil {
		return
	}
	c.inc(&c.statusChecks)
}

// IncTransientError records a status check that failed or returned an
// unrecognised token.
func (c *Collector) IncTransientError() {
	if c == nil {
		return
	}
	c.inc(&c.transientErrors)
}

// IncTerminal records a terminal status observed for a live query.
func (c *Collector) IncTerminal(status string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.terminalByStatus[status]++
	c.mu.Unlock()
}

// IncExhausted records a poll cycle that reached its attempt cap.
func (c *Collector) IncExhausted() {
	if c == nil {
		return
	}
	c.inc(&c.exhaustions)
}

// --- Hydration ---

// IncHydrateSuccess records a hydration that produced a bundle.
func (c *Collector) IncHydrateSuccess() {
	if c == nil {
		return
	}
	c.inc(&c.hydrateSuccess)
}

// IncHydrateFailure records a hydration whose transcript fetch failed.
func (c *Collector) IncHydrateFailure() {
	if c == nil {
		return
	}
	c.inc(&c.hydrateFailure)
}

// IncArtifactMiss records an optional artifact absent from a bundle.
func (c *Collector) IncArtifactMiss(artifact string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.artifactMisses[artifact]++
	c.mu.Unlock()
}

// IncStaleDropped records an event discarded because its query is no longer
// live or selected.
func (c *Collector) IncStaleDropped() {
	if c == nil {
		return
	}
	c.inc(&c.staleDropped)
}

// --- Outputs ---
// Export and notify counters are per-bundle and per-event, not per-file.

// IncExportSuccess records a bundle exported to storage.
func (c *Collector) IncExportSuccess() {
	if c == nil {
		return
	}
	c.inc(&c.exportSuccess)
}

// IncExportFailure records a failed export.
func (c *Collector) IncExportFailure() {
	if c == nil {
		return
	}
	c.inc(&c.exportFailure)
}

// IncNotifySuccess records a published completion event.
func (c *Collector) IncNotifySuccess() {
	if c == nil {
		return
	}
	c.inc(&c.notifySuccess)
}

// IncNotifyFailure records a completion event that could not be published.
func (c *Collector) IncNotifyFailure() {
	if c == nil {
		return
	}
	c.inc(&c.notifyFailure)
}

// --- Snapshot ---

// Snapshot returns an immutable point-in-time view of all metrics.
func (c *Collector) Snapshot() Snapshot {
	if c == nil {
		return Snapshot{}
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	return Snapshot{
		SubmitSuccess: c.submitSuccess,
		SubmitFailure: c.submitFailure,

		StatusChecks:     c.statusChecks,
		TransientErrors:  c.transientErrors,
		TerminalByStatus: copyCounts(c.terminalByStatus),
		Exhaustions:      c.exhaustions,

		HydrateSuccess:   c.hydrateSuccess,
		HydrateFailure:   c.hydrateFailure,
		ArtifactMisses:   copyCounts(c.artifactMisses),
		StaleEventsDrops: c.staleDropped,

		ExportSuccess: c.exportSuccess,
		ExportFailure: c.exportFailure,
		NotifySuccess: c.notifySuccess,
		NotifyFailure: c.notifyFailure,

		ServiceURL:     c.serviceURL,
		StorageBackend: c.storageBackend,
		Adapter:        c.adapter,
	}
}

func copyCounts(src map[string]int64) map[string]int64 {
	dst := make(map[string]int64, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
