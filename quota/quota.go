/*
NaiveSystems Analyze - A tool for static code analysis
Copyright (C) 2023  Naive Systems Ltd.

This program is free software: you can redistribute it and/or modify
it under the terms of the GNU General Public License as published by
the Free Software Foundation, either version 3 of the License, or
(at your option) any later version.

This program is distributed in the hope that it will be useful,
but WITHOUT ANY WARRANTY; without even the implied warranty of
MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
GNU General Public License for more details.

You should have received a copy of the GNU General Public License
along with this program.  If not, see <https://www.gnu.org/licenses/>.
*/

package quota

import (
	"fmt"
	"sort"
	"time"
)

const (
	Day  = 24 * time.Hour
	Week = 7 * Day
)

// Policy is the number of submissions Coverity Scan accepts per rolling
// day and week.
type Policy struct {
	PerDay  int `json:"per_day"`
	PerWeek int `json:"per_week"`
}

// Build frequency published by Coverity Scan, by project size.
var tiers = []struct {
	maxLines int
	policy   Policy
}{
	{100_000, Policy{PerDay: 4, PerWeek: 28}},
	{500_000, Policy{PerDay: 3, PerWeek: 21}},
	{1_000_000, Policy{PerDay: 2, PerWeek: 14}},
}

var largestTier = Policy{PerDay: 1, PerWeek: 7}

// LargestTierLines is the smallest project size in the most restricted tier.
const LargestTierLines = 1_000_000

func PolicyForLines(lines int) Policy {
	for _, tier := range tiers {
		if lines < tier.maxLines {
			return tier.policy
		}
	}
	return largestTier
}

// Override replaces the non-zero limits of p.
func (p Policy) Override(perDay, perWeek int) Policy {
	if perDay > 0 {
		p.PerDay = perDay
	}
	if perWeek > 0 {
		p.PerWeek = perWeek
	}
	return p
}

// Build is one past submission. DateOnly builds come from the project
// page, which only shows the calendar day.
type Build struct {
	At       time.Time
	DateOnly bool
}

type Decision struct {
	Allowed      bool      `json:"allowed"`
	Reason       string    `json:"reason,omitempty"`
	Policy       Policy    `json:"policy"`
	UsedToday    int       `json:"used_today"`
	UsedThisWeek int       `json:"used_this_week"`
	NextAllowed  time.Time `json:"next_allowed,omitempty"`
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func (b Build) within(now time.Time, window time.Duration) bool {
	if b.DateOnly {
		if window == Day {
			return sameDay(b.At, now)
		}
		// a day stamp counts for the whole week after that day started
		return !b.At.Add(window).Before(now) && !b.At.After(now)
	}
	return b.At.After(now.Add(-window)) && !b.At.After(now)
}

// expiry is when b stops counting against window.
func (b Build) expiry(window time.Duration) time.Time {
	if b.DateOnly && window == Day {
		return b.At.UTC().Truncate(Day).Add(Day)
	}
	return b.At.Add(window)
}

// Dedup merges builds that describe the same submission: a date-only page
// stamp is dropped when an exact build exists on that day.
func Dedup(builds []Build) []Build {
	var out []Build
	for _, b := range builds {
		if !b.DateOnly {
			out = append(out, b)
		}
	}
	for _, b := range builds {
		if !b.DateOnly {
			continue
		}
		covered := false
		for _, e := range out {
			if !e.DateOnly && sameDay(e.At, b.At) {
				covered = true
				break
			}
		}
		if !covered {
			out = append(out, b)
		}
	}
	return out
}

func nextSlot(now time.Time, builds []Build, window time.Duration, limit int) time.Time {
	var expiries []time.Time
	for _, b := range builds {
		if b.within(now, window) {
			expiries = append(expiries, b.expiry(window))
		}
	}
	sort.Slice(expiries, func(i, j int) bool { return expiries[i].Before(expiries[j]) })
	// once the len-limit+1 oldest builds expire there is room again
	idx := len(expiries) - limit
	if idx < 0 || idx >= len(expiries) {
		return now
	}
	return expiries[idx]
}

// Decide evaluates the rolling day and week windows ending at now.
func Decide(now time.Time, policy Policy, builds []Build) Decision {
	builds = Dedup(builds)
	d := Decision{Allowed: true, Policy: policy}
	for _, b := range builds {
		if b.within(now, Day) {
			d.UsedToday++
		}
		if b.within(now, Week) {
			d.UsedThisWeek++
		}
	}
	if policy.PerDay > 0 && d.UsedToday >= policy.PerDay {
		d.Allowed = false
		d.NextAllowed = nextSlot(now, builds, Day, policy.PerDay)
		d.Reason = fmt.Sprintf("daily quota of %d builds used", policy.PerDay)
	}
	if policy.PerWeek > 0 && d.UsedThisWeek >= policy.PerWeek {
		next := nextSlot(now, builds, Week, policy.PerWeek)
		if d.Allowed || next.After(d.NextAllowed) {
			d.NextAllowed = next
		}
		d.Allowed = false
		d.Reason = fmt.Sprintf("weekly quota of %d builds used", policy.PerWeek)
	}
	return d
}
