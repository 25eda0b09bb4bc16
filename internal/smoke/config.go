// Package smoke drives a running assessment service end to end: it submits
// generated questionnaires concurrently, checks every returned ranking
// against the local scoring engine, and reads each record back.
package smoke

import "time"

// Config holds configuration for a smoke run.
type Config struct {
	BaseURL      string        // Base URL of the service
	Submissions  int           // Number of assessments to submit
	Workers      int           // Concurrent submitters
	Timeout      time.Duration // HTTP request timeout
	Organization string        // Organization used for every participant
	WithEmail    bool          // Attach a participant address
	Seed         int64         // Seed for the answer generator
	OutputFile   string        // Optional JSON dump of generated submissions
}

// Submission is the request body for POST /assessments.
type Submission struct {
	SubmissionID string      `json:"submission_id"`
	Name         string      `json:"name"`
	Organization string      `json:"organization"`
	Email        string      `json:"email,omitempty"`
	Answers      map[int]int `json:"answers"`
}

// Stats holds run statistics.
type Stats struct {
	Generated  int
	Submitted  int
	Created    int
	Duplicate  int
	Failed     int
	Verified   int
	Mismatched int
	ReadBack   int
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}
