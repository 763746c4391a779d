package lode

import (
	"time"

	"github.com/pithecene-io/plandesk/types"
)

// RecordKindResult is the record_kind of exported result records.
const RecordKindResult = "result"

// Partition keys of the result dataset, in layout order.
var partitionKeys = []string{"day", "session_id", "query_id", "record_kind"}

// DeriveDay computes the partition day (YYYY-MM-DD, UTC).
func DeriveDay(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

// ResultRecord is the storage format of one hydrated query result.
// Chart bytes are not inlined; Charts lists the sidecar files written
// next to the record.
type ResultRecord struct {
	RecordKind      string         `json:"record_kind"`
	ContractVersion string         `json:"contract_version"`
	SessionID       string         `json:"session_id"`
	QueryID         string         `json:"query_id"`
	Day             string         `json:"day"`
	Dialog          string         `json:"dialog"`
	Turns           []types.Turn   `json:"turns"`
	Answer          string         `json:"answer,omitempty"`
	Inputs          map[string]any `json:"inputs,omitempty"`
	Charts          []string       `json:"charts,omitempty"`
	ExportedAt      string         `json:"exported_at"`
}

// ChartFilename is the sidecar file name of a chart.
func ChartFilename(kind types.ChartKind) string {
	return "chart-" + string(kind) + ".png"
}

// ReportFilename is the sidecar file name of a detail report.
const ReportFilename = "report.html"

func toResultRecord(b *types.ResultBundle, exportedAt time.Time) ResultRecord {
	rec := ResultRecord{
		RecordKind:      RecordKindResult,
		ContractVersion: types.ContractVersion,
		SessionID:       b.Key.SessionID,
		QueryID:         b.Key.QueryID,
		Day:             DeriveDay(exportedAt),
		Dialog:          b.Dialog,
		Turns:           b.Turns,
		Inputs:          b.Inputs,
		ExportedAt:      exportedAt.UTC().Format(time.RFC3339),
	}
	if turn, ok := b.LastAgentTurn(); ok {
		rec.Answer = turn.Text
	}
	for _, kind := range types.ChartKinds {
		if _, ok := b.Chart(kind); ok {
			rec.Charts = append(rec.Charts, ChartFilename(kind))
		}
	}
	return rec
}

// toRecordMap converts a record to map[string]any for the JSONL codec,
// which needs the partition keys as top-level fields.
func toRecordMap(r ResultRecord) map[string]any {
	m := map[string]any{
		"record_kind":      r.RecordKind,
		"contract_version": r.ContractVersion,
		"session_id":       r.SessionID,
		"query_id":         r.QueryID,
		"day":              r.Day,
		"dialog":           r.Dialog,
		"turns":            r.Turns,
		"exported_at":      r.ExportedAt,
	}
	if r.Answer != "" {
		m["answer"] = r.Answer
	}
	if r.Inputs != nil {
		m["inputs"] = r.Inputs
	}
	if len(r.Charts) > 0 {
		m["charts"] = r.Charts
	}
	return m
}
