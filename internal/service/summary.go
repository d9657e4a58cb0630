package service

import (
	"fmt"

	"github.com/sirupsen/logrus"
)

// maxSummaryErrors bounds the per-record messages carried in a summary.
const maxSummaryErrors = 50

// BatchSummary is the result of one batch job run. Per-record failures are
// counted and listed; they never fail the run.
type BatchSummary struct {
	Checked int      `json:"checked"`
	Created int      `json:"created"`
	Updated int      `json:"updated"`
	Skipped int      `json:"skipped"`
	Failed  int      `json:"failed"`
	Errors  []string `json:"errors"`
}

func newBatchSummary() BatchSummary {
	return BatchSummary{Errors: []string{}}
}

func (s *BatchSummary) fail(log *logrus.Entry, id string, err error) {
	s.Failed++
	log.WithError(err).WithField("record_id", id).Warn("record failed")
	if len(s.Errors) < maxSummaryErrors {
		s.Errors = append(s.Errors, fmt.Sprintf("%s: %v", id, err))
	}
}
