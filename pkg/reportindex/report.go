package reportindex

import "time"

// Report is a single generated JUnit report in the index.
type Report struct {
	ID        uint   `gorm:"primaryKey" json:"id"`
	Marker    string `gorm:"not null;uniqueIndex" json:"marker"`
	Name      string `json:"name"`
	Path      string `json:"path"`
	ObjectURI string `json:"object_uri,omitempty"`

	// Time is the reported total in seconds, as written to the report.
	Time       string `json:"time"`
	DurationNs int64  `json:"duration_ns"`
	Tests      int    `json:"tests"`
	Errors     int    `json:"errors"`
	SuiteCount int    `json:"suite_count"`
	Bytes      int    `json:"bytes"`

	Suites []ReportSuite `gorm:"constraint:OnDelete:CASCADE" json:"suites,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ReportSuite is one <testsuite> of an indexed report.
type ReportSuite struct {
	ID       uint   `gorm:"primaryKey" json:"-"`
	ReportID uint   `gorm:"not null;index" json:"-"`
	Position int    `json:"-"`
	Name     string `json:"name"`
	Tests    int    `json:"tests"`
	Errors   int    `json:"errors"`
	Skips    int    `json:"skips"`
	Time     string `json:"time"`
}
