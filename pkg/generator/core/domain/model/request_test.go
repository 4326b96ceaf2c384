package model

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/eventgen/pkg/generator/support/util/exception"
)

func TestKindsAreInProcessingOrder(t *testing.T) {
	assert.Equal(t, []EntityKind{KindOrganizer, KindVenue, KindEvent, KindUpload}, Kinds())
	assert.Equal(t, "venues", KindVenue.String())
	assert.Equal(t, "event", KindEvent.RecordType())
}

func TestParseEntityKind(t *testing.T) {
	k, err := ParseEntityKind(" Uploads ")
	require.NoError(t, err)
	assert.Equal(t, KindUpload, k)

	k, err = ParseEntityKind("organizer")
	require.NoError(t, err)
	assert.Equal(t, KindOrganizer, k)

	_, err = ParseEntityKind("tickets")
	assert.ErrorIs(t, err, exception.ErrValidation)
}

func TestDecrementClampsAtZero(t *testing.T) {
	r := NewGenerationRequest().Set(KindVenue, EntityQuantity{Quantity: 3})
	r.Decrement(KindVenue, 5)
	assert.Equal(t, 0, r.Remaining(KindVenue))
	assert.True(t, r.IsEmpty())
}

func TestCloneIsDeep(t *testing.T) {
	r := NewGenerationRequest().Set(KindEvent, EntityQuantity{Quantity: 2, EventCategory: []string{"A"}})
	c := r.Clone()
	c.Decrement(KindEvent, 1)
	c.quantities[KindEvent].EventCategory[0] = "B"

	assert.Equal(t, 2, r.Remaining(KindEvent))
	assert.Equal(t, "A", r.Get(KindEvent).EventCategory[0])
	assert.Equal(t, r.ID, c.ID)
}

func TestValidateAggregatesProblems(t *testing.T) {
	r := NewGenerationRequest().
		Set(KindVenue, EntityQuantity{Quantity: -1}).
		Set(KindEvent, EntityQuantity{Quantity: 1, RecurringType: "hourly", FromDate: "someday"})

	err := r.Validate()
	require.Error(t, err)
	assert.ErrorIs(t, err, exception.ErrValidation)

	var merr *multierror.Error
	require.ErrorAs(t, err, &merr)
	assert.Len(t, merr.Errors, 3)
}

func TestValidateRejectsInvertedWindow(t *testing.T) {
	r := NewGenerationRequest().Set(KindEvent, EntityQuantity{Quantity: 1, FromDate: "+2 months", ToDate: "now"})
	assert.ErrorIs(t, r.Validate(), exception.ErrValidation)
}

func TestJSONRoundTripKeepsIDAndParameters(t *testing.T) {
	r := NewGenerationRequest().
		Set(KindVenue, EntityQuantity{Quantity: 4}).
		Set(KindEvent, EntityQuantity{Quantity: 120, Recurring: true, RecurringType: RecurrenceWeekly, FastOccurrencesInsert: true})

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var decoded GenerationRequest
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, r.ID, decoded.ID)
	assert.Equal(t, 4, decoded.Remaining(KindVenue))
	assert.Equal(t, r.Get(KindEvent), decoded.Get(KindEvent))
}

func TestUnmarshalRejectsUnknownKind(t *testing.T) {
	var r GenerationRequest
	err := json.Unmarshal([]byte(`{"id":"x","tickets":{"quantity":1}}`), &r)
	assert.ErrorIs(t, err, exception.ErrValidation)
}

func TestUnmarshalAssignsMissingID(t *testing.T) {
	var r GenerationRequest
	require.NoError(t, json.Unmarshal([]byte(`{"venues":{"quantity":2}}`), &r))
	assert.NotEmpty(t, r.ID)
	assert.Equal(t, 2, r.Total())
}

func TestParseDateExpression(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	now := time.Date(2024, 3, 15, 10, 30, 0, 0, loc)

	cases := map[string]time.Time{
		"now":                 now,
		"-1 month":            time.Date(2024, 2, 15, 10, 30, 0, 0, loc),
		"+2 weeks":            time.Date(2024, 3, 29, 10, 30, 0, 0, loc),
		"3 days":              time.Date(2024, 3, 18, 10, 30, 0, 0, loc),
		"tomorrow":            time.Date(2024, 3, 16, 0, 0, 0, 0, loc),
		"2020-12-31":          time.Date(2020, 12, 31, 0, 0, 0, 0, loc),
		"2021-01-02 08:00:00": time.Date(2021, 1, 2, 8, 0, 0, 0, loc),
	}
	for expr, want := range cases {
		got, err := ParseDateExpression(expr, now)
		require.NoError(t, err, expr)
		assert.True(t, want.Equal(got), "%s: want %s got %s", expr, want, got)
	}

	_, err = ParseDateExpression("next full moon", now)
	assert.Error(t, err)
}

func TestSnapshotTermIDsAreDistinct(t *testing.T) {
	s := ParentRecordSnapshot{Relations: []TermRelation{{TermTaxonomyID: 3}, {TermTaxonomyID: 7}, {TermTaxonomyID: 3}}}
	assert.Equal(t, []int64{3, 7}, s.TermIDs())
}

func TestBatchSliceTotals(t *testing.T) {
	var s BatchSlice
	s.Take(KindVenue, 2)
	s.Take(KindEvent, 3)
	s.Take(KindEvent, -1)
	assert.Equal(t, 3, s.Taken(KindEvent))
	assert.Equal(t, 5, s.Total())
}
