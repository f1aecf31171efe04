package insights

import (
	"math"
	"sort"
	"time"

	"github.com/dmfarrell/trolley/internal/model"
)

const (
	// Recurring patterns are only surfaced for cadences a household shops
	// at: weekly-ish through quarterly-ish. Anything faster is noise,
	// anything slower is a one-off.
	minIntervalDays = 7.0
	maxIntervalDays = 90.0
	minConfidence   = 0.3

	// Below this many sessions there is not enough signal to call anything
	// a pattern.
	minSessions = 3

	topItemCount = 20
	topSlotCount = 3
)

// ItemCount is an item name with its total purchased quantity.
type ItemCount struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
}

// SlotCount is a weekday or hour with its trip frequency.
type SlotCount struct {
	Slot  int `json:"slot"`
	Count int `json:"count"`
}

// Stats are the aggregate statistics over a user's session history.
type Stats struct {
	TripCount       int                `json:"trip_count"`
	TotalSpent      float64            `json:"total_spent"`
	AverageSpend    float64            `json:"average_spend"`
	TopItems        []ItemCount        `json:"top_items"`
	MonthlySpend    map[string]float64 `json:"monthly_spend"`
	TopWeekdays     []SlotCount        `json:"top_weekdays"` // 0 = Sunday
	TopHours        []SlotCount        `json:"top_hours"`
	AvgDurationSecs *int64             `json:"avg_duration_secs,omitempty"`
}

// RecurringItem is a detected periodic repurchase pattern. Derived on demand,
// never persisted.
type RecurringItem struct {
	Name          string    `json:"name"`
	IntervalDays  float64   `json:"interval_days"`
	LastPurchase  time.Time `json:"last_purchase"`
	Confidence    float64   `json:"confidence"`
	PredictedNext time.Time `json:"predicted_next"`
	DaysSinceLast float64   `json:"days_since_last"`
}

// Overdue reports how far past its usual interval an item is. Positive means
// overdue.
func (r RecurringItem) Overdue() float64 {
	return r.DaysSinceLast - r.IntervalDays
}

// Compute derives aggregate statistics from the session log. Pure: same
// sessions in, same stats out.
func Compute(sessions []model.ShoppingSession) Stats {
	stats := Stats{
		MonthlySpend: make(map[string]float64),
	}

	itemQty := make(map[string]int)
	weekdays := make(map[int]int)
	hours := make(map[int]int)
	var durTotal int64
	var durCount int64

	for _, s := range sessions {
		stats.TripCount++
		stats.TotalSpent += s.TotalSpent
		stats.MonthlySpend[s.CompletedAt.Format("2006-01")] += s.TotalSpent
		weekdays[s.DayOfWeek]++
		hours[s.HourOfDay]++

		for _, item := range s.Items {
			itemQty[item.Name] += item.Quantity
		}

		if s.DurationSecs != nil {
			durTotal += *s.DurationSecs
			durCount++
		}
	}

	if stats.TripCount > 0 {
		stats.AverageSpend = stats.TotalSpent / float64(stats.TripCount)
	}
	if durCount > 0 {
		avg := durTotal / durCount
		stats.AvgDurationSecs = &avg
	}

	stats.TopItems = topItems(itemQty, topItemCount)
	stats.TopWeekdays = topSlots(weekdays, topSlotCount)
	stats.TopHours = topSlots(hours, topSlotCount)
	return stats
}

func topItems(counts map[string]int, n int) []ItemCount {
	out := make([]ItemCount, 0, len(counts))
	for name, qty := range counts {
		out = append(out, ItemCount{Name: name, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Quantity != out[j].Quantity {
			return out[i].Quantity > out[j].Quantity
		}
		return out[i].Name < out[j].Name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func topSlots(counts map[int]int, n int) []SlotCount {
	out := make([]SlotCount, 0, len(counts))
	for slot, count := range counts {
		out = append(out, SlotCount{Slot: slot, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Slot < out[j].Slot
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// Recurring detects periodic repurchase patterns across the session log.
// An item qualifies when it appears in at least two sessions, its mean
// purchase interval falls within [7, 90] days, and the cadence is regular
// enough (confidence above 0.3). Results are sorted most-overdue first.
func Recurring(sessions []model.ShoppingSession, now time.Time) []RecurringItem {
	if len(sessions) < minSessions {
		return nil
	}

	// Purchase instants per item name.
	purchases := make(map[string][]time.Time)
	for _, s := range sessions {
		seen := make(map[string]bool)
		for _, item := range s.Items {
			if seen[item.Name] {
				continue
			}
			seen[item.Name] = true
			purchases[item.Name] = append(purchases[item.Name], s.CompletedAt)
		}
	}

	var out []RecurringItem
	for name, times := range purchases {
		if len(times) < 2 {
			continue
		}
		sort.Slice(times, func(i, j int) bool { return times[i].Before(times[j]) })

		gaps := make([]float64, 0, len(times)-1)
		for i := 1; i < len(times); i++ {
			gaps = append(gaps, times[i].Sub(times[i-1]).Hours()/24)
		}

		mean := meanOf(gaps)
		if mean < minIntervalDays || mean > maxIntervalDays {
			continue
		}

		confidence := clamp01(1 - stddevOf(gaps, mean)/mean)
		if confidence <= minConfidence {
			continue
		}

		last := times[len(times)-1]
		interval := time.Duration(mean * 24 * float64(time.Hour))
		out = append(out, RecurringItem{
			Name:          name,
			IntervalDays:  mean,
			LastPurchase:  last,
			Confidence:    confidence,
			PredictedNext: last.Add(interval),
			DaysSinceLast: now.Sub(last).Hours() / 24,
		})
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Overdue() != out[j].Overdue() {
			return out[i].Overdue() > out[j].Overdue()
		}
		return out[i].Name < out[j].Name
	})
	return out
}

// Overdue filters recurring items to those already past their usual interval.
func Overdue(recurring []RecurringItem) []RecurringItem {
	var out []RecurringItem
	for _, r := range recurring {
		if r.Overdue() > 0 {
			out = append(out, r)
		}
	}
	return out
}

func meanOf(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func stddevOf(xs []float64, mean float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		d := x - mean
		sum += d * d
	}
	return math.Sqrt(sum / float64(len(xs)))
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
