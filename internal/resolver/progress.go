package resolver

// Stage is one step of a resolution
type Stage string

const (
	StageCheckAllowList   Stage = "check_allowlist"
	StageCheckCache       Stage = "check_cache"
	StageEnsureCredential Stage = "ensure_credential"
	StageListCandidates   Stage = "list_candidates"
	StageScanMetadata     Stage = "scan_metadata"
	StageFetchFull        Stage = "fetch_full"
	StageClassify         Stage = "classify"
	StageCacheAndReturn   Stage = "cache_and_return"
)

// Progress reports a stage transition
type Progress struct {
	Stage       Stage
	Current     int    // Current item within the stage, 0 when not itemized
	Total       int    // Items in this stage
	Description string // Human-readable description
}

// ProgressCallback is called on every stage transition
type ProgressCallback func(Progress)

// Percentage returns the completion percentage (0-100)
func (p Progress) Percentage() int {
	if p.Total == 0 {
		return 0
	}
	return (p.Current * 100) / p.Total
}
