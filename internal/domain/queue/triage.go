package queue

import (
	"sort"
	"time"
)

// DefaultAvgConsultation approximates one consultation's duration. It feeds
// the wait-time projection; it is a documented approximation, not a
// scheduling guarantee.
const DefaultAvgConsultation = 15 * time.Minute

// Engine computes the triage presentation order and projected consultation
// start times for a day's queue entries. It is pure: for a fixed input and
// instant it always produces the same output, and it performs no I/O.
type Engine struct {
	AvgConsultation time.Duration
}

// NewEngine returns an Engine with the given average consultation duration.
// Non-positive values fall back to the default.
func NewEngine(avg time.Duration) Engine {
	if avg <= 0 {
		avg = DefaultAvgConsultation
	}
	return Engine{AvgConsultation: avg}
}

// Order returns the items in global presentation order with ExpectedTime
// populated for waiting entries that have an assigned doctor.
//
// Entries are grouped per doctor, each group is sorted by clinical priority
// (active consultations, then emergencies, then arrival order), and the
// group's timeline is projected forward from now. Entries without a doctor
// are ordered but never estimated: there is no timeline without a doctor.
// The groups are then merged into one ranked list.
func (e Engine) Order(items []ListItem, now time.Time) []ListItem {
	groups := make(map[string][]ListItem)
	var keys []string
	for _, item := range items {
		item.ExpectedTime = nil
		key := ""
		if item.Doctor != nil {
			key = item.Doctor.ID.String()
		}
		if _, seen := groups[key]; !seen {
			keys = append(keys, key)
		}
		groups[key] = append(groups[key], item)
	}

	out := make([]ListItem, 0, len(items))
	for _, key := range keys {
		group := groups[key]
		sortGroup(group)
		if key != "" {
			e.project(group, now)
		}
		out = append(out, group...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return lessGlobal(out[i], out[j])
	})
	return out
}

// sortGroup orders one doctor's entries: active consultation first, then the
// waiting line with emergencies ahead of normal cases, then finished visits;
// arrival time breaks remaining ties.
func sortGroup(group []ListItem) {
	sort.SliceStable(group, func(i, j int) bool {
		a, b := group[i], group[j]
		if ra, rb := a.CurrentStatus.rank(), b.CurrentStatus.rank(); ra != rb {
			return ra < rb
		}
		if a.CurrentStatus == StatusWaiting {
			if ea, eb := a.QueueType == TypeEmergency, b.QueueType == TypeEmergency; ea != eb {
				return ea
			}
		}
		return a.ArrivalTime.Before(b.ArrivalTime)
	})
}

// project assigns ExpectedTime to a sorted doctor group's waiting entries.
// baseTime is the latest of now and every active or completed consultation's
// projected end (UpdatedAt plus the average duration); the anchors are folded
// in before any estimate is handed out, since the presentation order places
// DONE entries after the waiting line. The k-th waiting entry is estimated at
// baseTime + k * average.
func (e Engine) project(group []ListItem, now time.Time) {
	baseTime := now
	for i := range group {
		switch group[i].CurrentStatus {
		case StatusWithDoctor, StatusDone:
			if end := group[i].UpdatedAt.Add(e.AvgConsultation); end.After(baseTime) {
				baseTime = end
			}
		}
	}

	waitingIndex := 0
	for i := range group {
		if group[i].CurrentStatus == StatusWaiting {
			expected := baseTime.Add(time.Duration(waitingIndex) * e.AvgConsultation)
			group[i].ExpectedTime = &expected
			waitingIndex++
		}
	}
}

// lessGlobal merges per-doctor groups into one ranked list using the same
// composite key: status rank, emergency-before-normal among waiting entries,
// then projected start (falling back to arrival when no estimate exists).
func lessGlobal(a, b ListItem) bool {
	if ra, rb := a.CurrentStatus.rank(), b.CurrentStatus.rank(); ra != rb {
		return ra < rb
	}
	if a.CurrentStatus == StatusWaiting && b.CurrentStatus == StatusWaiting {
		if ea, eb := a.QueueType == TypeEmergency, b.QueueType == TypeEmergency; ea != eb {
			return ea
		}
		return sortTime(a).Before(sortTime(b))
	}
	return a.ArrivalTime.Before(b.ArrivalTime)
}

func sortTime(item ListItem) time.Time {
	if item.ExpectedTime != nil {
		return *item.ExpectedTime
	}
	return item.ArrivalTime
}
