package domain

import "time"

// MinTrainingRecords is the smallest batch the retrain endpoint accepts
const MinTrainingRecords = 30

// ClassificationResult is one prediction returned by the service
type ClassificationResult struct {
	Label     int      `json:"label"`
	LabelName string   `json:"label_name"`
	Prob      *float64 `json:"prob,omitempty"`
}

// HasProb reports whether a usable probability came back.
// A zero probability is treated the same as a missing one.
func (r ClassificationResult) HasProb() bool {
	return r.Prob != nil && *r.Prob != 0
}

// TrainingRecord is one labeled example sent for retraining
type TrainingRecord struct {
	Textos string `json:"textos"`
	Labels int    `json:"labels"`
}

// TrainingBatch keeps records in file row order
type TrainingBatch []TrainingRecord

// TrainingMetrics is what the service reports after retraining
type TrainingMetrics struct {
	F1               float64 `json:"f1"`
	Precision        float64 `json:"precision"`
	Recall           float64 `json:"recall"`
	ModelVersionPath string  `json:"model_version_path,omitempty"`
}

// HealthStatus is the service health payload
type HealthStatus struct {
	Status      string `json:"status"`
	ActiveModel string `json:"active_model,omitempty"`
}

// Operation kinds recorded in the journal
const (
	KindClassify = "classify"
	KindRetrain  = "retrain"
)

// JournalEntry records one completed user operation
type JournalEntry struct {
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Input     string    `json:"input"`
	Outcome   string    `json:"outcome"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}
