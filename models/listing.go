package models

import "time"

// RawListing holds unprocessed scraped data directly from the browser.
// This is written to CSV before any cleaning or transformation.
type RawListing struct {
	Title        string
	RawPrice     string
	RawMileage   string
	RawYear      string
	Make         string
	Model        string
	Trim         string
	Engine       string
	Transmission string
	Drivetrain   string
	Location     string
	URL          string
	Description  string
	Features     []string
	ScrapedAt    time.Time
	Platform     string
}

// Listing is a cleaned used-car offer. Identifying fields are never changed
// once the cleaner has produced the record; scoring results are attached by
// wrapping it in an AnnotatedListing.
//
// Zero numeric values mean "unknown": a Year of 0 is never guessed.
type Listing struct {
	ID           int64     `json:"id,omitempty" yaml:"id,omitempty"`
	Seq          int       `json:"seq" yaml:"seq"`
	Platform     string    `json:"platform" yaml:"platform"`
	Title        string    `json:"title" yaml:"title"`
	Make         string    `json:"make" yaml:"make"`
	Model        string    `json:"model" yaml:"model"`
	Year         int       `json:"year" yaml:"year"`
	Trim         string    `json:"trim,omitempty" yaml:"trim,omitempty"`
	Engine       string    `json:"engine,omitempty" yaml:"engine,omitempty"`
	Transmission string    `json:"transmission,omitempty" yaml:"transmission,omitempty"`
	Drivetrain   string    `json:"drivetrain,omitempty" yaml:"drivetrain,omitempty"`
	Price        float64   `json:"price" yaml:"price"`
	Mileage      int       `json:"mileage" yaml:"mileage"`
	Location     string    `json:"location,omitempty" yaml:"location,omitempty"`
	URL          string    `json:"url" yaml:"url"`
	Description  string    `json:"description,omitempty" yaml:"description,omitempty"`
	Features     []string  `json:"features,omitempty" yaml:"features,omitempty"`
	CreatedAt    time.Time `json:"created_at,omitempty" yaml:"created_at,omitempty"`
}

// ReliabilityEntry is one subsystem score reported by a reference source,
// on a 1-5 scale. Component is the source's own name for the subsystem.
type ReliabilityEntry struct {
	Component string  `json:"component" yaml:"component"`
	Score     float64 `json:"score" yaml:"score"`
}

// KnownIssue is a common fault reported for a make/model/year.
type KnownIssue struct {
	Title        string   `json:"title" yaml:"title"`
	Component    string   `json:"component,omitempty" yaml:"component,omitempty"`
	Severity     Severity `json:"severity" yaml:"severity"`
	OnsetMileage int      `json:"onset_mileage,omitempty" yaml:"onset_mileage,omitempty"`
}

// ReferenceRecord is a reliability/specification entry from an external
// data source. The core treats it as read-only.
type ReferenceRecord struct {
	Source       string             `json:"source" yaml:"source"`
	Make         string             `json:"make" yaml:"make"`
	Model        string             `json:"model" yaml:"model"`
	Year         int                `json:"year" yaml:"year"`
	Trim         string             `json:"trim,omitempty" yaml:"trim,omitempty"`
	Engine       string             `json:"engine,omitempty" yaml:"engine,omitempty"`
	Transmission string             `json:"transmission,omitempty" yaml:"transmission,omitempty"`
	Drivetrain   string             `json:"drivetrain,omitempty" yaml:"drivetrain,omitempty"`
	Reliability  []ReliabilityEntry `json:"reliability,omitempty" yaml:"reliability,omitempty"`
	Issues       []KnownIssue       `json:"issues,omitempty" yaml:"issues,omitempty"`
}

// FeatureVector is the normalized comparison form of a listing or a
// reference record. It is comparable and therefore usable as a map key.
type FeatureVector struct {
	Make         string
	Model        string
	Year         int
	Trim         string
	Engine       string
	Transmission string
	Drive        string
}
