package audit

import "time"

// TimelineFilters holds the basic filters of the activity timeline.
type TimelineFilters struct {
	From     time.Time
	To       time.Time
	Entity   string
	Action   string
	Page     int
	PageSize int
}

// TimelineRow is one recorded action.
type TimelineRow struct {
	At       time.Time      `json:"at"`
	Action   string         `json:"action"`
	Entity   string         `json:"entity"`
	EntityID string         `json:"entity_id"`
	Meta     map[string]any `json:"meta,omitempty"`
}

// PagingInfo is window-style paging: HasNext is known without a count query.
type PagingInfo struct {
	Page     int  `json:"page"`
	PageSize int  `json:"page_size"`
	HasNext  bool `json:"has_next"`
	PrevPage int  `json:"prev_page,omitempty"`
	NextPage int  `json:"next_page,omitempty"`
}

// Result wraps a timeline page.
type Result struct {
	Rows   []TimelineRow `json:"rows"`
	Paging PagingInfo    `json:"paging"`
}
