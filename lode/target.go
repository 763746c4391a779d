package lode

import (
	"context"
	"fmt"

	"github.com/justapithecus/lode/lode"
)

// Backends.
const (
	BackendFS = "fs"
	BackendS3 = "s3"
)

// Target locates an export dataset.
type Target struct {
	// Backend is "fs" (default) or "s3".
	Backend string
	// Path is a directory for fs and "bucket/prefix" for s3.
	Path string
	// Region, Endpoint and UsePathStyle configure the s3 backend.
	Region       string
	Endpoint     string
	UsePathStyle bool
}

// Factory builds the store factory of t.
func (t Target) Factory(ctx context.Context) (lode.StoreFactory, error) {
	if t.Path == "" {
		return nil, fmt.Errorf("export path is required")
	}
	switch t.Backend {
	case BackendFS, "":
		return lode.NewFSFactory(t.Path), nil
	case BackendS3:
		bucket, prefix := ParseS3Path(t.Path)
		return NewS3Factory(ctx, S3Config{
			Bucket:       bucket,
			Prefix:       prefix,
			Region:       t.Region,
			Endpoint:     t.Endpoint,
			UsePathStyle: t.UsePathStyle,
		})
	default:
		return nil, fmt.Errorf("unknown export backend: %s (must be fs or s3)", t.Backend)
	}
}

// Open creates an exporter writing to t.
func Open(ctx context.Context, cfg Config, t Target) (*Exporter, error) {
	factory, err := t.Factory(ctx)
	if err != nil {
		return nil, err
	}
	return NewExporterWithFactory(cfg, factory)
}

// OpenDataset opens the dataset at t for reading.
func OpenDataset(ctx context.Context, dataset string, t Target) (lode.Dataset, error) {
	factory, err := t.Factory(ctx)
	if err != nil {
		return nil, err
	}
	if dataset == "" {
		dataset = DefaultDataset
	}
	return NewReadDataset(dataset, factory)
}
