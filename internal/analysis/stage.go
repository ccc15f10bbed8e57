package analysis

// Stage is the position of one analysis in its lifecycle.
type Stage int

const (
	StageIdle Stage = iota
	StageSourceResolved
	StageRequested
	StageExtracted
	StagePersisted
	StageRenameAttempted
	StageDone
	StageFailed
)

func (s Stage) String() string {
	switch s {
	case StageIdle:
		return "idle"
	case StageSourceResolved:
		return "source_resolved"
	case StageRequested:
		return "requested"
	case StageExtracted:
		return "extracted"
	case StagePersisted:
		return "persisted"
	case StageRenameAttempted:
		return "rename_attempted"
	case StageDone:
		return "done"
	case StageFailed:
		return "failed"
	default:
		return "unknown"
	}
}
