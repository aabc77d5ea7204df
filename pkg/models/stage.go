package models

import "fmt"

// Stage identifies one of the two generation phases.
type Stage string

const (
	StageSteps Stage = "steps"
	StageCode  Stage = "code"
)

// Stages lists every stage in pipeline order.
var Stages = []Stage{StageSteps, StageCode}

// ParseStage converts a user supplied name into a Stage.
func ParseStage(s string) (Stage, error) {
	switch Stage(s) {
	case StageSteps, StageCode:
		return Stage(s), nil
	}
	return "", fmt.Errorf("unknown stage %q", s)
}
