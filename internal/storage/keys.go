package storage

import "path"

// resultPrefix is where result artifacts live in the bucket.
const resultPrefix = "results"

// ResultKey derives the deterministic object key for a job's result artifact.
// The key depends only on owner and job identity, so a retried persist
// overwrites the same object instead of creating duplicates. Owner prefix
// sharding keeps bucket listings usable at volume.
func ResultKey(ownerID, jobID string) string {
	shard := ownerID
	if len(shard) > 3 {
		shard = shard[:3]
	}
	return path.Join(resultPrefix, shard, ownerID, jobID+".json")
}
