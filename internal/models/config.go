package models

// Autonomy modes for the pursuit pipeline.
const (
	ModeManual     = "manual"
	ModeSupervised = "supervised"
	ModeAutonomous = "autonomous"
)

// PipelineConfig controls how much of the pipeline runs unattended.
// Stored as a system_settings row and read fresh on every decision so
// an operator flipping the mode takes effect on the next run.
type PipelineConfig struct {
	Mode          string  `json:"mode"`
	FitThreshold  int     `json:"fit_threshold"`
	AutoThreshold int     `json:"auto_threshold"`
	MaxAutoValue  float64 `json:"max_auto_value"`
}

// DefaultPipelineConfig is the safe fallback when nothing is configured.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		Mode:          ModeManual,
		FitThreshold:  80,
		AutoThreshold: 90,
		MaxAutoValue:  500_000,
	}
}
