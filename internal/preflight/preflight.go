package preflight

import (
	"context"
	"path/filepath"

	"scenetrack/internal/config"
)

// Result reports the outcome of a single preflight check.
type Result struct {
	Name    string
	Passed  bool
	Skipped bool
	Detail  string
}

// RunAll executes all applicable preflight checks for the given config.
// Checks are only run when the corresponding feature is enabled.
func RunAll(ctx context.Context, cfg *config.Config) []Result {
	if cfg == nil {
		return nil
	}

	results := []Result{
		CheckDirectoryAccess("Data directory", cfg.Paths.DataDir),
		CheckDirectoryAccess("Lock directory", cfg.Paths.LockDir),
		CheckDirectoryAccess("Storage root", cfg.Storage.RootDir),
	}
	for _, bucket := range cfg.Buckets() {
		results = append(results, CheckDirectoryAccess("Bucket "+bucket, filepath.Join(cfg.Storage.RootDir, bucket)))
	}
	results = append(results, CheckQueueDatabase(ctx, cfg.QueueDBPath()))
	results = append(results, CheckAnnotation(ctx, cfg))
	results = append(results, CheckEmoji(ctx, cfg))
	return results
}

// Failed returns the results that neither passed nor were skipped.
func Failed(results []Result) []Result {
	var out []Result
	for _, r := range results {
		if !r.Passed && !r.Skipped {
			out = append(out, r)
		}
	}
	return out
}
