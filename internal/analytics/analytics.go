// Package analytics holds the pure computations behind the dashboard views:
// period filtering, daily trend bucketing, top-N grouping and summary stats.
// Nothing here touches a store or keeps state between calls.
package analytics

import (
	"sort"
	"time"

	"github.com/azure/outreach-dashboard/internal/models"
)

const (
	// DefaultTrendDays is the trend window used when no filter is active
	DefaultTrendDays = 7
	// StateTopN bounds the emails-by-state ranking
	StateTopN = 5
	// RecipientTopN bounds the top recipients ranking
	RecipientTopN = 3
)

// PublicationTime is the timestamp publications are filtered and bucketed on
func PublicationTime(p models.Publication) time.Time { return p.PublishedAt }

// EmailTime is the timestamp emails are filtered and bucketed on
func EmailTime(e models.Email) time.Time { return e.SentAt }

// EmailState projects an email onto its state
func EmailState(e models.Email) string { return e.State }

// EmailRecipient projects an email onto its recipient
func EmailRecipient(e models.Email) string { return e.Recipient }

// DefaultWindow returns the last DefaultTrendDays calendar days, today
// included, as seen in loc at now.
func DefaultWindow(now time.Time, loc *time.Location) models.DateRange {
	return models.LastDays(now, loc, DefaultTrendDays)
}

// FilterByRange keeps the records whose timestamp falls inside r (whole end
// day included) and orders them newest first. A nil range keeps everything.
func FilterByRange[T any](records []T, r *models.DateRange, at func(T) time.Time, loc *time.Location) []T {
	out := make([]T, 0, len(records))
	if r == nil {
		out = append(out, records...)
	} else {
		from, to := r.Bounds(loc)
		for _, rec := range records {
			ts := at(rec)
			if !ts.Before(from) && ts.Before(to) {
				out = append(out, rec)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return at(out[i]).After(at(out[j]))
	})
	return out
}

// DailyTrend counts records per local calendar day of r. The result has one
// point per day of r, ascending, zero-filled. Records whose local day falls
// outside r are ignored.
func DailyTrend[T any](r models.DateRange, records []T, at func(T) time.Time, loc *time.Location) []models.TrendPoint {
	days := r.Days()
	if days < 1 {
		return []models.TrendPoint{}
	}

	counts := make([]int, days)
	for _, rec := range records {
		idx := models.DateOf(at(rec), loc).DaysSince(r.Start)
		if idx < 0 || idx >= days {
			continue
		}
		counts[idx]++
	}

	points := make([]models.TrendPoint, days)
	for i := range points {
		points[i] = models.TrendPoint{Date: r.Start.AddDays(i), Count: counts[i]}
	}
	return points
}

// TopN tallies the non-empty keys produced by key, ranks them by count
// descending (ties keep first-seen order) and keeps at most n.
func TopN[T any](records []T, key func(T) string, n int) []models.GroupCount {
	index := make(map[string]int)
	var groups []models.GroupCount
	for _, rec := range records {
		k := key(rec)
		if k == "" {
			continue
		}
		if i, ok := index[k]; ok {
			groups[i].Count++
			continue
		}
		index[k] = len(groups)
		groups = append(groups, models.GroupCount{Key: k, Count: 1})
	}

	sort.SliceStable(groups, func(i, j int) bool {
		return groups[i].Count > groups[j].Count
	})

	if n >= 0 && len(groups) > n {
		groups = groups[:n]
	}
	if groups == nil {
		return []models.GroupCount{}
	}
	return groups
}

// PublicationStats summarizes an already filtered publication set
func PublicationStats(posts []models.Publication) models.PublicationStats {
	return models.PublicationStats{Total: len(posts)}
}

// EmailStats summarizes an email set
func EmailStats(emails []models.Email) models.EmailStats {
	flags := make([]bool, len(emails))
	for i, e := range emails {
		flags[i] = e.Classified
	}
	return ClassificationStats(flags)
}

// ClassificationStats derives totals from bare classificado flags
func ClassificationStats(flags []bool) models.EmailStats {
	classified := 0
	for _, f := range flags {
		if f {
			classified++
		}
	}
	return models.EmailStats{
		Total:      len(flags),
		Classified: classified,
		Pending:    len(flags) - classified,
	}
}
