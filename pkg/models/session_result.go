package models

import "time"

// SessionResult records one finished practice session
type SessionResult struct {
	ID         int64     `json:"id" db:"id"`
	Items      int       `json:"items" db:"items"`
	Completed  int       `json:"completed" db:"completed"`
	Answers    int       `json:"answers" db:"answers"`
	Correct    int       `json:"correct" db:"correct"`
	StartedAt  time.Time `json:"started_at" db:"started_at"`
	FinishedAt time.Time `json:"finished_at" db:"finished_at"`
}

// Accuracy is the share of correct answers, 0 when nothing was answered
func (r SessionResult) Accuracy() float64 {
	if r.Answers == 0 {
		return 0
	}
	return float64(r.Correct) / float64(r.Answers)
}

// Duration of the session
func (r SessionResult) Duration() time.Duration {
	return r.FinishedAt.Sub(r.StartedAt)
}
