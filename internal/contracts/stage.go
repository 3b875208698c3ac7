package contracts

// Stage represents a pipeline state. The pipeline is strictly linear:
// INIT → G1 → G2 → G2B → G3 → G4 → DONE, with an empty survivor set at any
// stage short-circuiting directly to DONE.
type Stage string

const (
	StageInit Stage = "INIT"
	StageG1   Stage = "G1"
	StageG2   Stage = "G2"
	StageG2B  Stage = "G2B"
	StageG3   Stage = "G3"
	StageG4   Stage = "G4"
	StageDone Stage = "DONE"
)

// String returns the stage name
func (s Stage) String() string {
	return string(s)
}

// AllStages returns the pipeline states in execution order
func AllStages() []Stage {
	return []Stage{StageInit, StageG1, StageG2, StageG2B, StageG3, StageG4, StageDone}
}

// Gate names used as trail keys. These are part of the persisted audit
// format and must not change between releases.
const (
	GateNameSpread        = "Gate1_Spread"
	GateNameFundamentals  = "Gate2_Fundamentals"
	GateNameInstitutional = "Gate2B_Institutional"
	GateNameTechnicals    = "Gate3_Technicals"
	GateNameExecution     = "Gate4_Execution"
)

// GateNames returns the trail keys in gate order
func GateNames() []string {
	return []string{
		GateNameSpread,
		GateNameFundamentals,
		GateNameInstitutional,
		GateNameTechnicals,
		GateNameExecution,
	}
}
