package manifest

// Version is the manifest format version written by this build.
const Version = 2

// Status is the outcome recorded for one stage of one unit.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusOK        Status = "OK"
	StatusFail      Status = "FAIL"
	StatusSkip      Status = "SKIP"
	StatusSkipAge   Status = "SKIP_AGE"
	StatusSimulated Status = "SIMULATED"
)

// Stage names one step of a unit's workflow. The values double as the keys
// in the persisted manifest, which the downstream consolidation scripts read.
type Stage string

const (
	StageClone             Stage = "clone"
	StageDesigniteCross    Stage = "designite_cross"
	StageDesigniteTemporal Stage = "designite_temporal"
	StageCSDetector        Stage = "csdetector"
	StageCleanup           Stage = "cleanup"
)

// Stages lists all stages in workflow order.
var Stages = []Stage{
	StageClone,
	StageDesigniteCross,
	StageDesigniteTemporal,
	StageCSDetector,
	StageCleanup,
}

// Record is the persisted outcome of one (unit, stage) pair. Later writes
// for the same pair overwrite the previous record.
type Record struct {
	Status    Status `json:"status"`
	Timestamp string `json:"timestamp"`
	Detail    string `json:"detail,omitempty"`
}

// Manifest is the full persisted state keyed by unit name.
type Manifest struct {
	Version int                         `json:"version"`
	Created string                      `json:"created"`
	Repos   map[string]map[Stage]Record `json:"repos"`
}
