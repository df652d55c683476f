package core

import (
	"fmt"
	"time"
)

// stepClock returns a clock that starts at start and advances by step on
// every call. A negative step models a wall clock moving backwards.
func stepClock(start time.Time, step time.Duration) func() time.Time {
	t := start
	return func() time.Time {
		now := t
		t = t.Add(step)
		return now
	}
}

// seqIDs returns an id generator yielding id-1, id-2, ...
func seqIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func ids(records []Customer) []string {
	out := make([]string, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func candidate(name string) Candidate {
	return Candidate{Name: name, PageNumber: "12", FamilyCount: 3, SecretPin: "0000"}
}

var testEpoch = time.Date(2024, 3, 5, 12, 0, 0, 0, time.UTC)
