package lode

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/plandesk/types"
)

// DefaultDataset is the dataset ID used when none is configured.
const DefaultDataset = "plandesk"

// ErrInvalidKey is returned for bundles whose identity cannot form a
// partition path.
var ErrInvalidKey = errors.New("query key is not exportable")

// Config holds exporter configuration.
type Config struct {
	// Dataset is the Lode dataset ID (default "plandesk").
	Dataset string
	// Now supplies the export timestamp (default time.Now).
	Now func() time.Time
}

// Exporter writes result records to a Hive-partitioned Lode dataset
// (day/session_id/query_id/record_kind) and chart and report bytes as
// sidecar files under the same partition.
// It is safe for concurrent use.
type Exporter struct {
	dataset lode.Dataset
	config  Config

	storeFactory lode.StoreFactory
	storeOnce    sync.Once
	store        lode.Store
	storeErr     error
}

// NewFSExporter creates an exporter with filesystem storage under root.
func NewFSExporter(cfg Config, root string) (*Exporter, error) {
	return NewExporterWithFactory(cfg, lode.NewFSFactory(root))
}

// NewExporterWithFactory creates an exporter with a custom store factory.
// Use lode.NewMemoryFactory() for testing.
func NewExporterWithFactory(cfg Config, factory lode.StoreFactory) (*Exporter, error) {
	if cfg.Dataset == "" {
		cfg.Dataset = DefaultDataset
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	ds, err := NewReadDataset(cfg.Dataset, factory)
	if err != nil {
		return nil, wrap("init", cfg.Dataset, err)
	}
	return &Exporter{dataset: ds, config: cfg, storeFactory: factory}, nil
}

// Export writes the result record of b, then its charts as sidecar files.
// A chart failure after the record is written is returned; the record stays.
func (x *Exporter) Export(ctx context.Context, b *types.ResultBundle) error {
	if b == nil {
		return errors.New("nil bundle")
	}
	if err := validateKey(b.Key); err != nil {
		return err
	}

	now := x.config.Now()
	rec := toResultRecord(b, now)
	if _, err := x.dataset.Write(ctx, []any{toRecordMap(rec)}, lode.Metadata{}); err != nil {
		return wrap("write", x.config.Dataset, err)
	}

	for _, kind := range types.ChartKinds {
		data, ok := b.Chart(kind)
		if !ok {
			continue
		}
		if err := x.putFile(ctx, b.Key, rec.Day, ChartFilename(kind), data); err != nil {
			return err
		}
	}
	return nil
}

// PutReport writes a detail report as a sidecar file for key.
func (x *Exporter) PutReport(ctx context.Context, key types.QueryKey, data []byte) error {
	if err := validateKey(key); err != nil {
		return err
	}
	return x.putFile(ctx, key, DeriveDay(x.config.Now()), ReportFilename, data)
}

// Close releases exporter resources.
func (x *Exporter) Close() error {
	return nil
}

func (x *Exporter) putFile(ctx context.Context, key types.QueryKey, day, filename string, data []byte) error {
	x.storeOnce.Do(func() {
		x.store, x.storeErr = x.storeFactory()
	})
	if x.storeErr != nil {
		return wrap("init", x.config.Dataset, x.storeErr)
	}
	path := FilePath(x.config.Dataset, day, key, filename)
	return wrap("put", path, x.store.Put(ctx, path, bytes.NewReader(data)))
}

// FilePath is the store path of a sidecar file.
// Format: datasets/<dataset>/partitions/day=<d>/session_id=<s>/query_id=<q>/files/<filename>
func FilePath(dataset, day string, key types.QueryKey, filename string) string {
	return fmt.Sprintf("datasets/%s/partitions/day=%s/session_id=%s/query_id=%s/files/%s",
		dataset, day, key.SessionID, key.QueryID, filename)
}

func validateKey(key types.QueryKey) error {
	for _, v := range []string{key.SessionID, key.QueryID} {
		if v == "" || v == "." || v == ".." || strings.ContainsAny(v, `/\=`) {
			return fmt.Errorf("%w: %q", ErrInvalidKey, key.String())
		}
	}
	return nil
}
