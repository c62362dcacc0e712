// Package ai hosts the analyzer drivers. The real driver lives in the openai
// subpackage; this package carries the deterministic stand-in used when no
// model service is configured.
package ai

import (
	"context"

	domain "github.com/Zura03/occlusmart-backend/internal/domain/scans"
)

// StubAnalyzer returns a fixed report regardless of the images. It keeps
// local development and tests deterministic and offline.
type StubAnalyzer struct{}

var _ domain.Analyzer = StubAnalyzer{}

func (StubAnalyzer) Analyze(ctx context.Context, preOpPath, duringOpPath string) (*domain.AnalysisReport, error) {
	return &domain.AnalysisReport{
		Status: domain.StatusSuccess,
		Analysis: domain.OcclusionScores{
			OcclusionScore: 0.85,
			AlignmentScore: 0.92,
			Findings: []string{
				"Good overall occlusion",
				"Slight misalignment on lower right molars",
			},
			Recommendations: []string{
				"Consider minor adjustment to lower right molars",
				"Schedule follow-up in 2 weeks",
			},
		},
	}, nil
}
