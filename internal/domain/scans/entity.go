package scans

import (
	"time"
)

// ID tipe untuk ScanRecord
type ScanID string

// Status enum
type Status string

const (
	StatusSuccess Status = "success"
	StatusFailed  Status = "failed"
)

// OcclusionScores value object
type OcclusionScores struct {
	OcclusionScore  float64  `json:"occlusion_score"`
	AlignmentScore  float64  `json:"alignment_score"`
	Findings        []string `json:"findings"`
	Recommendations []string `json:"recommendations"`
}

// AnalysisReport is what an analyzer produces for one scan. The record store
// carries it as-is; only the analyzer driver assigns meaning to the scores.
type AnalysisReport struct {
	Status   Status          `json:"status"`
	ScanID   string          `json:"scan_id,omitempty"`
	Analysis OcclusionScores `json:"analysis"`
}

// Aggregate Root: ScanRecord
type ScanRecord struct {
	ID              ScanID          `json:"id"`
	PatientID       string          `json:"patient_id"`
	PreOpPath       string          `json:"pre_op_path"`
	DuringOpPath    string          `json:"during_op_path"`
	ResultPath      string          `json:"result_path,omitempty"`
	CreatedAt       time.Time       `json:"created_at"`
	AnalysisResults *AnalysisReport `json:"analysis_results"`
}
