package series

import (
	"time"

	"ncd-admin-backend/pkg/dateparse"
)

// DeriveStatus computes the lifecycle status of s as of today.
//
// DRAFT and REJECTED are workflow states and are returned as stored.
// Everything else follows the calendar: maturity dominates, then the
// subscription window, then the issue date for rows that predate
// subscription windows.
func DeriveStatus(s Series, today time.Time) Status {
	switch s.Status {
	case StatusDraft, StatusRejected:
		return s.Status
	}
	return fromDates(s, today)
}

// InitialStatus is the status a draft takes on approval: the date rule
// without the DRAFT short-circuit.
func InitialStatus(s Series, today time.Time) Status {
	return fromDates(s, today)
}

func fromDates(s Series, today time.Time) Status {
	today = dateparse.Day(today)

	if m, ok := dateparse.Parse(s.MaturityDate); ok && m.Before(today) {
		return StatusMatured
	}

	start, okStart := dateparse.Parse(s.SubscriptionStartDate)
	end, okEnd := dateparse.Parse(s.SubscriptionEndDate)
	if okStart && okEnd {
		switch {
		case today.Before(start):
			return StatusUpcoming
		case today.After(end):
			return StatusActive
		default:
			return StatusAccepting
		}
	}

	// legacy rows without a subscription window
	if issue, ok := dateparse.Parse(s.IssueDate); ok {
		if issue.After(today) {
			return StatusUpcoming
		}
		return StatusActive
	}
	if s.Status == StatusDraft || s.Status == "" {
		return StatusUpcoming
	}
	return s.Status
}
