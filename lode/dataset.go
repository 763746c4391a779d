package lode

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/justapithecus/lode/lode"

	"github.com/pithecene-io/plandesk/types"
)

// ErrNoResultFound is returned when no exported record matches a query.
var ErrNoResultFound = errors.New("no exported result found")

// NewReadDataset creates a Lode Dataset with the export codec and layout.
func NewReadDataset(dataset string, factory lode.StoreFactory) (lode.Dataset, error) {
	return lode.NewDataset(
		lode.DatasetID(dataset),
		factory,
		lode.WithHiveLayout(partitionKeys...),
		lode.WithCodec(lode.NewJSONLCodec()),
	)
}

// LatestResult returns the most recently exported record for key.
func LatestResult(ctx context.Context, ds lode.Dataset, key types.QueryKey) (map[string]any, error) {
	snapshots, err := ds.Snapshots(ctx)
	if err != nil {
		return nil, wrap("read", string(ds.ID())+"/snapshots", err)
	}

	for i := len(snapshots) - 1; i >= 0; i-- {
		snap := snapshots[i]
		if !snapshotMatches(snap, "session_id", key.SessionID) || !snapshotMatches(snap, "query_id", key.QueryID) {
			continue
		}

		data, err := ds.Read(ctx, snap.ID)
		if err != nil {
			return nil, wrap("read", fmt.Sprintf("%s/snapshot/%s", ds.ID(), snap.ID), err)
		}
		// Manifest paths are a coarse filter; record fields decide.
		for _, item := range data {
			record, ok := item.(map[string]any)
			if !ok || record["record_kind"] != RecordKindResult {
				continue
			}
			if record["session_id"] == key.SessionID && record["query_id"] == key.QueryID {
				return record, nil
			}
		}
	}
	return nil, ErrNoResultFound
}

func snapshotMatches(snap *lode.Snapshot, key, value string) bool {
	for _, f := range snap.Manifest.Files {
		if matchesPartitionValue(f.Path, key, value) {
			return true
		}
	}
	return false
}

// matchesPartitionValue checks for an exact key=value path segment, so
// query_id=q-1 does not match query_id=q-10.
func matchesPartitionValue(path, key, value string) bool {
	segment := key + "=" + value
	for _, part := range strings.Split(path, "/") {
		if part == segment {
			return true
		}
	}
	return false
}
