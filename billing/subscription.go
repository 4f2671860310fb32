package billing

import "time"

type Subscription struct {
	ID               string    `json:"id"`
	CustomerID       string    `json:"customerId"`
	PlanID           string    `json:"planId"`
	Status           string    `json:"status"`
	PlanAmount       int64     `json:"planAmount"`
	ActivatedAt      time.Time `json:"activatedAt"`
	CurrentTermStart time.Time `json:"currentTermStart"`
	CurrentTermEnd   time.Time `json:"currentTermEnd"`
}

func (s *Subscription) Clone() *Subscription {
	cloned := *s
	return &cloned
}

// UnixTime converts epoch seconds from a native payload. Zero means the field
// was absent and maps to the zero time.
func UnixTime(seconds int64) time.Time {
	if seconds == 0 {
		return time.Time{}
	}
	return time.Unix(seconds, 0).UTC()
}

// UnixSeconds is the inverse of UnixTime.
func UnixSeconds(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.Unix()
}
