package domain

import "time"

// KindSyncResult is the per-kind breakdown of a bulk sync run.
// Error marks the whole kind as failed; Interrupted means paging stopped
// early on an upstream error but the items already fetched were applied.
type KindSyncResult struct {
	Processed   int    `json:"processed"`
	Created     int    `json:"created"`
	Updated     int    `json:"updated"`
	Ignored     int    `json:"ignored"`
	Failed      int    `json:"failed"`
	Pages       int    `json:"pages"`
	Truncated   bool   `json:"truncated,omitempty"`
	Interrupted string `json:"interrupted,omitempty"`
	Error       string `json:"error,omitempty"`
}

// Record tallies one reconciliation outcome into the result
func (r *KindSyncResult) Record(o Outcome) {
	r.Processed++
	switch o.Kind {
	case OutcomeCreated:
		r.Created++
	case OutcomeUpdated:
		r.Updated++
	case OutcomeIgnored:
		r.Ignored++
	}
}

// SyncSummary is returned to the caller that triggered a bulk sync.
// Counts holds items processed per kind and is 0 for any kind whose task failed.
type SyncSummary struct {
	RunID          string                           `json:"run_id"`
	TenantID       string                           `json:"tenant_id"`
	StartedAt      time.Time                        `json:"started_at"`
	FinishedAt     time.Time                        `json:"finished_at"`
	Counts         map[ResourceKind]int             `json:"counts"`
	Details        map[ResourceKind]*KindSyncResult `json:"details"`
	Comprehensive  bool                             `json:"comprehensive,omitempty"`
	AnalyticsError string                           `json:"analytics_error,omitempty"`
}

// Failed reports whether any kind failed
func (s *SyncSummary) Failed() bool {
	for _, d := range s.Details {
		if d.Error != "" {
			return true
		}
	}
	return false
}

// PageRequest is a fully built request for one page of a resource listing
type PageRequest struct {
	Kind   ResourceKind
	Path   string
	Cursor string
	Limit  int
}

// Page is one page of raw upstream items plus the cursor for the next one
type Page struct {
	Items      [][]byte
	NextCursor string
}

// HasNext reports whether another page follows
func (p *Page) HasNext() bool {
	return p.NextCursor != ""
}

// TenantAnalytics is the aggregate refreshed after a comprehensive sync
type TenantAnalytics struct {
	TenantID          string            `json:"tenant_id"`
	OrderCount        int64             `json:"order_count"`
	CustomerCount     int64             `json:"customer_count"`
	ReturnCount       int64             `json:"return_count"`
	RevenueByCurrency map[string]string `json:"revenue_by_currency"`
	RefreshedAt       time.Time         `json:"refreshed_at"`
}
