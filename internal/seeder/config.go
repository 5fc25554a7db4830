// Package seeder drives a running asinrank service with generated rank
// observations and checks that the reporting endpoint charts them.
package seeder

import (
	"errors"
	"net/url"
	"strconv"
	"time"
)

// ErrVerification is returned when the service's charts disagree with what was seeded.
var ErrVerification = errors.New("chart verification failed")

// Config holds configuration for a seeding run.
type Config struct {
	BaseURL    string        // Base URL of the service
	APIKey     string        // Value sent in the Api-Key header
	ASINs      int           // Number of distinct ASINs to seed
	PerASIN    int           // Observations submitted per ASIN
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	Verbose    bool          // Enable verbose logging
	Verify     bool          // Fetch charts after seeding
	Categories []string      // Category names to draw from
}

// Observation is one ingestion request.
type Observation struct {
	ASIN          string
	Category1Name string
	Category1Rank *int
	Category2Name string
	Category2Rank *int
}

// Query encodes the observation as ingestion query parameters. Absent
// values are omitted.
func (o Observation) Query() url.Values {
	q := url.Values{}
	set := func(k, v string) {
		if v != "" {
			q.Set(k, v)
		}
	}
	set("asin", o.ASIN)
	set("category1_name", o.Category1Name)
	set("category2_name", o.Category2Name)
	if o.Category1Rank != nil {
		q.Set("category1_rank", strconv.Itoa(*o.Category1Rank))
	}
	if o.Category2Rank != nil {
		q.Set("category2_rank", strconv.Itoa(*o.Category2Rank))
	}
	return q
}

// Plan records, per ASIN, how many charts the service should report.
type Plan map[string]int

// messageResponse mirrors the ingestion reply.
type messageResponse struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// Stats holds run statistics.
type Stats struct {
	Generated  int
	Submitted  int
	Successful int
	Failed     int
	Verified   int
	Mismatched int
	StartTime  time.Time
	EndTime    time.Time
	Duration   time.Duration
}
