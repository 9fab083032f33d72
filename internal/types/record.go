package types

import (
	"fmt"
	"time"
)

// Period is the trending time window a listing is scoped to.
type Period string

const (
	PeriodDaily   Period = "daily"
	PeriodWeekly  Period = "weekly"
	PeriodMonthly Period = "monthly"
)

// AllPeriods returns every supported period in display order.
func AllPeriods() []Period {
	return []Period{PeriodDaily, PeriodWeekly, PeriodMonthly}
}

// ParsePeriod validates a raw period name.
func ParsePeriod(s string) (Period, error) {
	switch p := Period(s); p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly:
		return p, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidPeriod, s)
	}
}

func (p Period) String() string { return string(p) }

// RepositoryRecord is one trending entry as scraped from the listing.
// Counts are kept as the page formats them ("1,234", "1.2k").
type RepositoryRecord struct {
	Author      string `json:"author"      bson:"author"`
	RepoName    string `json:"repoName"    bson:"repoName"`
	RepoURL     string `json:"repoUrl"     bson:"repoUrl"`
	Description string `json:"description" bson:"description"`

	// OriginalDescription is set only once a record has been through translation.
	OriginalDescription *string `json:"originalDescription,omitempty" bson:"originalDescription,omitempty"`

	Language   string    `json:"language"   bson:"language"`
	Stars      string    `json:"stars"      bson:"stars"`
	Forks      string    `json:"forks"      bson:"forks"`
	StarsToday string    `json:"starsToday" bson:"starsToday"`
	Period     Period    `json:"period"     bson:"period"`
	Timestamp  time.Time `json:"timestamp"  bson:"timestamp"`
}

// FullName returns "author/repoName".
func (r RepositoryRecord) FullName() string {
	return r.Author + "/" + r.RepoName
}

// Original returns the pre-translation description, or the current one when
// the record was never translated.
func (r RepositoryRecord) Original() string {
	if r.OriginalDescription != nil {
		return *r.OriginalDescription
	}
	return r.Description
}

// Snapshot is the cached result set for one period.
type Snapshot struct {
	Repositories []RepositoryRecord `json:"repositories"`
	LastUpdated  *time.Time         `json:"lastUpdated"`
}

// EmptySnapshot returns the never-fetched snapshot.
func EmptySnapshot() Snapshot {
	return Snapshot{Repositories: []RepositoryRecord{}}
}

// HistoryDocument is the on-disk shape of the history log.
type HistoryDocument struct {
	Repositories []RepositoryRecord `json:"repositories"`
}

// CloneRecords returns a copy of records that shares no pointers with the input.
func CloneRecords(records []RepositoryRecord) []RepositoryRecord {
	out := make([]RepositoryRecord, len(records))
	for i, r := range records {
		if r.OriginalDescription != nil {
			orig := *r.OriginalDescription
			r.OriginalDescription = &orig
		}
		out[i] = r
	}
	return out
}
