package metrics

import (
	"sync"
	"testing"
)

func TestCollector_IncrementMethods(t *testing.T) {
	c := NewCollector("http://localhost:8080", "fs", "webhook")

	c.IncSubmitSuccess()
	c.IncSubmitSuccess()
	c.IncSubmitFailure()
	c.IncStatusCheck()
	c.IncStatusCheck()
	c.IncStatusCheck()
	c.IncTransientError()
	c.IncTerminal("Done")
	c.IncTerminal("Done")
	c.IncTerminal("Failed")
	c.IncExhausted()
	c.IncHydrateSuccess()
	c.IncHydrateFailure()
	c.IncArtifactMiss("chart:Flows")
	c.IncArtifactMiss("inputs")
	c.IncArtifactMiss("inputs")
	c.IncStaleDropped()
	c.IncExportSuccess()
	c.IncExportFailure()
	c.IncNotifySuccess()
	c.IncNotifyFailure()
	c.IncNotifyFailure()

	s := c.Snapshot()

	checks := []struct {
		name string
		got  int64
		want int64
	}{
		{"SubmitSuccess", s.SubmitSuccess, 2},
		{"SubmitFailure", s.SubmitFailure, 1},
		{"StatusChecks", s.StatusChecks, 3},
		{"TransientErrors", s.TransientErrors, 1},
		{"TerminalByStatus[Done]", s.TerminalByStatus["Done"], 2},
		{"TerminalByStatus[Failed]", s.TerminalByStatus["Failed"], 1},
		{"Exhaustions", s.Exhaustions, 1},
		{"HydrateSuccess", s.HydrateSuccess, 1},
		{"HydrateFailure", s.HydrateFailure, 1},
		{"ArtifactMisses[chart:Flows]", s.ArtifactMisses["chart:Flows"], 1},
		{"ArtifactMisses[inputs]", s.ArtifactMisses["inputs"], 2},
		{"StaleEventsDrops", s.StaleEventsDrops, 1},
		{"ExportSuccess", s.ExportSuccess, 1},
		{"ExportFailure", s.ExportFailure, 1},
		{"NotifySuccess", s.NotifySuccess, 1},
		{"NotifyFailure", s.NotifyFailure, 2},
	}
	for _, ck := range checks {
		if ck.got != ck.want {
			t.Errorf("%s = %d, want %d", ck.name, ck.got, ck.want)
		}
	}

	if s.ServiceURL != "http://localhost:8080" || s.StorageBackend != "fs" || s.Adapter != "webhook" {
		t.Errorf("dimensions = %q %q %q", s.ServiceURL, s.StorageBackend, s.Adapter)
	}
}

func TestCollector_NilSafe(t *testing.T) {
	var c *Collector

	c.IncSubmitSuccess()
	c.IncStatusCheck()
	c.IncTerminal("Done")
	c.IncArtifactMiss("inputs")
	c.IncStaleDropped()
	c.IncNotifyFailure()

	s := c.Snapshot()
	if s.SubmitSuccess != 0 || s.TerminalByStatus != nil {
		t.Errorf("nil collector snapshot = %+v", s)
	}
}

func TestCollector_SnapshotIsolation(t *testing.T) {
	c := NewCollector("", "", "")
	c.IncTerminal("Done")

	s := c.Snapshot()
	s.TerminalByStatus["Done"] = 99

	c.IncTerminal("Done")
	if got := c.Snapshot().TerminalByStatus["Done"]; got != 2 {
		t.Errorf("TerminalByStatus[Done] = %d, want 2", got)
	}
}

func TestCollector_Concurrent(t *testing.T) {
	c := NewCollector("", "", "")

	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.IncStatusCheck()
			c.IncArtifactMiss("chart:Balances")
		}()
	}
	wg.Wait()

	s := c.Snapshot()
	if s.StatusChecks != 50 || s.ArtifactMisses["chart:Balances"] != 50 {
		t.Errorf("StatusChecks = %d, misses = %d", s.StatusChecks, s.ArtifactMisses["chart:Balances"])
	}
}
