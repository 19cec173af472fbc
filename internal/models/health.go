package models

// HealthScore is produced by the external scoring service. Each score is in [0,100].
type HealthScore struct {
	OverallScore float64 `json:"overall_score"`
	MoodScore    float64 `json:"mood_score"`
	JournalScore float64 `json:"journal_score"`
}

// ConcernKind names the score that breached its threshold.
type ConcernKind string

const (
	ConcernOverall ConcernKind = "overall"
	ConcernMood    ConcernKind = "mood"
	ConcernJournal ConcernKind = "journal"
)

// Concern is a human-readable flag raised by a threshold breach.
type Concern struct {
	Kind      ConcernKind `json:"kind"`
	Message   string      `json:"message"`
	Score     float64     `json:"score"`
	Threshold float64     `json:"threshold"`
}
