package hydrate

import (
	"fmt"
	"path/filepath"

	"github.com/pithecene-io/plandesk/iox"
	"github.com/pithecene-io/plandesk/types"
)

// ChartFilename returns the local file name of a saved chart.
func ChartFilename(key types.QueryKey, kind types.ChartKind) string {
	return fmt.Sprintf("%s-%s.png", key.QueryID, kind)
}

// ReportFilename returns the local file name of a saved detail report.
func ReportFilename(key types.QueryKey) string {
	return key.QueryID + "-flows.html"
}

// SaveCharts writes every chart present in bundle under dir and returns the
// written paths in display order. Absent charts are skipped.
func SaveCharts(dir string, bundle *types.ResultBundle) ([]string, error) {
	if bundle == nil {
		return nil, nil
	}
	var paths []string
	for _, kind := range types.ChartKinds {
		data, ok := bundle.Chart(kind)
		if !ok {
			continue
		}
		path := filepath.Join(dir, ChartFilename(bundle.Key, kind))
		if err := iox.WriteFileAtomic(path, data, 0o644); err != nil {
			return paths, fmt.Errorf("save chart %s: %w", kind, err)
		}
		paths = append(paths, path)
	}
	return paths, nil
}

// SaveReport writes a detail report under dir and returns its path.
func SaveReport(dir string, key types.QueryKey, data []byte) (string, error) {
	path := filepath.Join(dir, ReportFilename(key))
	if err := iox.WriteFileAtomic(path, data, 0o644); err != nil {
		return "", fmt.Errorf("save report: %w", err)
	}
	return path, nil
}
