package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"

	"github.com/tigerroll/eventgen/pkg/generator/support/util/exception"
)

// RecurrenceType selects the recurrence rule applied to recurring events.
type RecurrenceType string

const (
	RecurrenceAll     RecurrenceType = "all"
	RecurrenceDaily   RecurrenceType = "daily"
	RecurrenceWeekly  RecurrenceType = "weekly"
	RecurrenceMonthly RecurrenceType = "monthly"
	RecurrenceYearly  RecurrenceType = "yearly"
)

// Valid reports whether t is a known recurrence type. The empty value means RecurrenceAll.
func (t RecurrenceType) Valid() bool {
	switch t {
	case "", RecurrenceAll, RecurrenceDaily, RecurrenceWeekly, RecurrenceMonthly, RecurrenceYearly:
		return true
	}
	return false
}

// Default date window for events.
const (
	DefaultFromDate = "-1 month"
	DefaultToDate   = "+1 month"
)

// EntityQuantity is the remaining count for one kind plus the parameters that
// shape the records of that kind. Parameters other than Quantity only apply to events.
type EntityQuantity struct {
	Quantity              int            `json:"quantity"`
	FromDate              string         `json:"from_date,omitempty"`
	ToDate                string         `json:"to_date,omitempty"`
	Featured              bool           `json:"featured,omitempty"`
	Virtual               bool           `json:"virtual,omitempty"`
	Recurring             bool           `json:"recurring,omitempty"`
	RecurringType         RecurrenceType `json:"recurring_type,omitempty"`
	EventCategory         []string       `json:"event_category,omitempty"`
	EventTag              []string       `json:"event_tag,omitempty"`
	ContentLength         int            `json:"content_length,omitempty"`
	RSVP                  bool           `json:"add_rsvp,omitempty"`
	Ticket                bool           `json:"add_ticket,omitempty"`
	FastOccurrencesInsert bool           `json:"fast_occurrences_insert,omitempty"`
}

// DateWindow resolves FromDate and ToDate against now, applying the defaults.
func (q EntityQuantity) DateWindow(now time.Time) (time.Time, time.Time, error) {
	fromExpr, toExpr := q.FromDate, q.ToDate
	if fromExpr == "" {
		fromExpr = DefaultFromDate
	}
	if toExpr == "" {
		toExpr = DefaultToDate
	}
	from, err := ParseDateExpression(fromExpr, now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	to, err := ParseDateExpression(toExpr, now)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	return from, to, nil
}

func (q EntityQuantity) clone() EntityQuantity {
	c := q
	c.EventCategory = append([]string(nil), q.EventCategory...)
	c.EventTag = append([]string(nil), q.EventTag...)
	return c
}

// GenerationRequest is a multi-kind generation job. A continuation carries the
// same ID as the request it was sliced from.
type GenerationRequest struct {
	ID         string
	quantities [kindCount]EntityQuantity
}

// NewGenerationRequest returns an empty request with a fresh ID.
func NewGenerationRequest() *GenerationRequest {
	return &GenerationRequest{ID: uuid.NewString()}
}

// Set replaces the quantity and parameters for kind.
func (r *GenerationRequest) Set(kind EntityKind, q EntityQuantity) *GenerationRequest {
	if kind.valid() {
		r.quantities[kind] = q
	}
	return r
}

// Get returns the quantity and parameters for kind.
func (r *GenerationRequest) Get(kind EntityKind) EntityQuantity {
	if !kind.valid() {
		return EntityQuantity{}
	}
	return r.quantities[kind]
}

// Remaining returns the remaining count for kind, never negative.
func (r *GenerationRequest) Remaining(kind EntityKind) int {
	if n := r.Get(kind).Quantity; n > 0 {
		return n
	}
	return 0
}

// Decrement lowers the remaining count for kind by n, clamping at zero.
func (r *GenerationRequest) Decrement(kind EntityKind, n int) {
	if !kind.valid() || n <= 0 {
		return
	}
	q := &r.quantities[kind]
	q.Quantity -= n
	if q.Quantity < 0 {
		q.Quantity = 0
	}
}

// Total is the sum of remaining counts across kinds.
func (r *GenerationRequest) Total() int {
	total := 0
	for _, k := range Kinds() {
		total += r.Remaining(k)
	}
	return total
}

// IsEmpty reports whether nothing remains to be generated.
func (r *GenerationRequest) IsEmpty() bool {
	return r.Total() == 0
}

// Clone returns a deep copy.
func (r *GenerationRequest) Clone() *GenerationRequest {
	c := &GenerationRequest{ID: r.ID}
	for _, k := range Kinds() {
		c.quantities[k] = r.quantities[k].clone()
	}
	return c
}

// Validate checks every kind and reports all problems in one ValidationError.
func (r *GenerationRequest) Validate() error {
	var merr *multierror.Error
	now := time.Now()
	for _, k := range Kinds() {
		q := r.quantities[k]
		if q.Quantity < 0 {
			merr = multierror.Append(merr, fmt.Errorf("%s: quantity must not be negative, got %d", k, q.Quantity))
		}
		if q.ContentLength < 0 {
			merr = multierror.Append(merr, fmt.Errorf("%s: content length must not be negative, got %d", k, q.ContentLength))
		}
		if k != KindEvent {
			continue
		}
		if !q.RecurringType.Valid() {
			merr = multierror.Append(merr, fmt.Errorf("%s: unknown recurring type %q", k, q.RecurringType))
		}
		from, to, err := q.DateWindow(now)
		if err != nil {
			merr = multierror.Append(merr, fmt.Errorf("%s: %w", k, err))
		} else if from.After(to) {
			merr = multierror.Append(merr, fmt.Errorf("%s: from date %s is after to date %s", k, from.Format(DateTimeLayout), to.Format(DateTimeLayout)))
		}
	}
	if err := merr.ErrorOrNil(); err != nil {
		return exception.NewValidationError(moduleName, "invalid generation request", err)
	}
	return nil
}

// MarshalJSON encodes the request as {"id": ..., "<kind>": {...}}.
func (r *GenerationRequest) MarshalJSON() ([]byte, error) {
	out := make(map[string]interface{}, int(kindCount)+1)
	out["id"] = r.ID
	for _, k := range Kinds() {
		out[k.String()] = r.quantities[k]
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the form produced by MarshalJSON. Unknown keys are rejected.
func (r *GenerationRequest) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return exception.NewValidationError(moduleName, "malformed generation request", err)
	}
	decoded := GenerationRequest{}
	for key, value := range raw {
		if key == "id" {
			if err := json.Unmarshal(value, &decoded.ID); err != nil {
				return exception.NewValidationError(moduleName, "malformed request id", err)
			}
			continue
		}
		kind, err := ParseEntityKind(key)
		if err != nil {
			return err
		}
		var q EntityQuantity
		if err := json.Unmarshal(value, &q); err != nil {
			return exception.NewValidationError(moduleName, fmt.Sprintf("malformed quantity for %s", key), err)
		}
		decoded.quantities[kind] = q
	}
	if decoded.ID == "" {
		decoded.ID = uuid.NewString()
	}
	*r = decoded
	return nil
}
