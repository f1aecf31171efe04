package trip

import (
	"errors"
	"sort"
	"time"

	"github.com/dmfarrell/trolley/internal/model"
)

// Phase is the lifecycle state of a shopping trip for one list.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseActive    Phase = "active"
	PhaseCompleted Phase = "completed"
)

// ErrDraftPending is returned when Complete is called while an unfinalized
// draft from a previous completion is still held.
var ErrDraftPending = errors.New("trip: completed draft pending save or discard")

// Draft is the in-memory result of completing a trip. It carries everything
// needed to persist a session plus the learned category order. Producing a
// Draft performs no persistence; the caller decides whether to save or
// discard it.
type Draft struct {
	ListID       int64
	ListName     string
	CompletedAt  time.Time
	CompletedBy  string
	StoreName    string
	StartedAt    *time.Time
	DurationSecs *int64
	DayOfWeek    int // 0 = Sunday
	HourOfDay    int
	TotalSpent   float64
	Items        []model.SessionItem
	MissedItems  []string
	LearnedOrder []string
}

// Session converts the draft into the session record to persist.
func (d *Draft) Session() model.ShoppingSession {
	return model.ShoppingSession{
		ListID:       d.ListID,
		ListName:     d.ListName,
		CompletedAt:  d.CompletedAt,
		CompletedBy:  d.CompletedBy,
		TotalSpent:   d.TotalSpent,
		StartedAt:    d.StartedAt,
		DurationSecs: d.DurationSecs,
		DayOfWeek:    d.DayOfWeek,
		HourOfDay:    d.HourOfDay,
		StoreName:    d.StoreName,
		Items:        d.Items,
		MissedItems:  d.MissedItems,
	}
}

// Machine is the trip lifecycle state machine for a single list:
// Idle -> Active -> Completed -> (save or discard) -> Idle/Active.
// Transitions are the only mutators; callers never poke fields directly.
type Machine struct {
	phase     Phase
	startedAt time.Time
	draft     *Draft
}

// NewMachine returns a machine in the Idle phase.
func NewMachine() *Machine {
	return &Machine{phase: PhaseIdle}
}

// Resume returns a machine already in the Active phase, used when a persisted
// trip start survives a server restart.
func Resume(startedAt time.Time) *Machine {
	return &Machine{phase: PhaseActive, startedAt: startedAt}
}

func (m *Machine) Phase() Phase { return m.phase }

// StartedAt reports the trip start time, if a trip is in progress.
func (m *Machine) StartedAt() (time.Time, bool) {
	if m.phase == PhaseIdle {
		return time.Time{}, false
	}
	return m.startedAt, !m.startedAt.IsZero()
}

// Start enters (or re-enters) the Active phase, stamping the start time.
// Starting again before completing simply resets the clock.
func (m *Machine) Start(now time.Time) {
	m.phase = PhaseActive
	m.startedAt = now
	m.draft = nil
}

// Complete finalizes the trip at the given instant and returns the draft.
// Completing without a prior Start is allowed; the draft then has no
// duration. Completing while a draft is pending is rejected.
func (m *Machine) Complete(listID int64, listName, completedBy, storeName string, items []model.ShoppingItem, now time.Time) (*Draft, error) {
	if m.phase == PhaseCompleted {
		return nil, ErrDraftPending
	}

	d := &Draft{
		ListID:      listID,
		ListName:    listName,
		CompletedAt: now,
		CompletedBy: completedBy,
		StoreName:   storeName,
		DayOfWeek:   int(now.Weekday()),
		HourOfDay:   now.Hour(),
		MissedItems: []string{},
	}

	for _, item := range items {
		if item.Bought {
			d.TotalSpent += item.Price * float64(item.Quantity)
			d.Items = append(d.Items, model.SessionItem{
				Name:     item.Name,
				Quantity: item.Quantity,
				Price:    item.Price,
				Category: item.Category,
			})
		} else {
			d.MissedItems = append(d.MissedItems, item.Name)
		}
	}

	if m.phase == PhaseActive && !m.startedAt.IsZero() {
		started := m.startedAt
		secs := int64(now.Sub(started) / time.Second)
		d.StartedAt = &started
		d.DurationSecs = &secs
	}

	d.LearnedOrder = LearnOrder(items)

	m.phase = PhaseCompleted
	m.draft = d
	return d, nil
}

// Draft returns the pending draft, if any.
func (m *Machine) Draft() *Draft {
	return m.draft
}

// Discard drops the pending draft. If the trip had been started it returns
// to Active, otherwise to Idle.
func (m *Machine) Discard() {
	m.draft = nil
	if !m.startedAt.IsZero() {
		m.phase = PhaseActive
		return
	}
	m.phase = PhaseIdle
}

// Reset returns the machine to Idle after a saved trip.
func (m *Machine) Reset() {
	m.phase = PhaseIdle
	m.startedAt = time.Time{}
	m.draft = nil
}

// LearnOrder infers the category walking order of a trip from check
// timestamps: bought items that carry one, ascending by check time, each
// category taken the first time it appears. Returns nil when no bought item
// has a check timestamp (bulk-marked trips), in which case callers leave any
// previously stored order untouched.
//
// Check timestamps are only ordering-authoritative within a single device's
// trip; two devices shopping the same list concurrently can interleave
// clocks and corrupt the inferred order. That limitation is inherited from
// the original design and deliberately not compensated for here.
func LearnOrder(items []model.ShoppingItem) []string {
	var checked []model.ShoppingItem
	for _, item := range items {
		if item.Bought && item.CheckedAt != nil {
			checked = append(checked, item)
		}
	}
	if len(checked) == 0 {
		return nil
	}

	sort.SliceStable(checked, func(i, j int) bool {
		return checked[i].CheckedAt.Before(*checked[j].CheckedAt)
	})

	var order []string
	seen := make(map[string]bool)
	for _, item := range checked {
		if !seen[item.Category] {
			seen[item.Category] = true
			order = append(order, item.Category)
		}
	}
	return order
}

// OrderCategories arranges the categories present on a list for display:
// those in the learned order come first, in that order; the rest trail in
// default-catalog order; anything unknown to both goes last alphabetically.
func OrderCategories(present, learned, defaults []string) []string {
	presentSet := make(map[string]bool, len(present))
	for _, c := range present {
		presentSet[c] = true
	}

	var out []string
	used := make(map[string]bool)
	for _, c := range learned {
		if presentSet[c] && !used[c] {
			used[c] = true
			out = append(out, c)
		}
	}
	for _, c := range defaults {
		if presentSet[c] && !used[c] {
			used[c] = true
			out = append(out, c)
		}
	}

	var rest []string
	for _, c := range present {
		if !used[c] {
			used[c] = true
			rest = append(rest, c)
		}
	}
	sort.Strings(rest)
	return append(out, rest...)
}
