package content

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tigerroll/eventgen/pkg/generator/core/domain/model"
)

func seeded() *Provider {
	return NewProvider(rand.New(rand.NewSource(42)))
}

func TestVenueFieldsCarryMarkerAndAddress(t *testing.T) {
	f := seeded().RandomFields(model.KindVenue)

	v, ok := f.MetaValue(model.MetaGeneratedMarker)
	require.True(t, ok)
	assert.Equal(t, model.GeneratedMarkerValue, v)

	state, ok := f.MetaValue(model.MetaVenueState)
	require.True(t, ok)
	assert.Contains(t, []string{"New York", "Illinois", "California"}, state)
	assert.NotEmpty(t, f.Row.Title)
	assert.Contains(t, f.Row.Content, f.Row.Title)
}

func TestOrganizerFieldsHaveContactData(t *testing.T) {
	f := seeded().RandomFields(model.KindOrganizer)
	email, ok := f.MetaValue(model.MetaOrganizerEmail)
	require.True(t, ok)
	assert.True(t, strings.HasSuffix(email, "@example.com"))
	_, ok = f.MetaValue(model.MetaOrganizerPhone)
	assert.True(t, ok)
}

func TestSameSeedSameOutput(t *testing.T) {
	assert.Equal(t, seeded().EventTitle(), seeded().EventTitle())
}

func TestEventDescriptionLength(t *testing.T) {
	p := seeded()
	assert.Len(t, p.EventDescription("T", "", "", "", 120), 120)
	assert.Len(t, p.EventDescription("T", "", "", "", 8), 8)

	d := p.EventDescription("Jazz Night", "The Hall", "Chicago", "Ada Quinn", 0)
	assert.True(t, strings.HasPrefix(d, "<p>The Hall hosts Jazz Night, an event by Ada Quinn coming to Chicago! </p>"))
}

func TestEventDatesStayInWindowOnHalfHours(t *testing.T) {
	loc, err := time.LoadLocation("America/Chicago")
	require.NoError(t, err)
	p := seeded()
	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	to := from.AddDate(0, 2, 0)

	allDay := 0
	for i := 0; i < 500; i++ {
		d := p.EventDates(from, to, loc)
		assert.Equal(t, loc, d.Start.Location())
		if d.AllDay {
			allDay++
			assert.Zero(t, d.Start.Hour())
			continue
		}
		assert.Contains(t, []int{0, 30}, d.Start.Minute())
		assert.Contains(t, []time.Duration{2 * time.Hour, 3 * time.Hour}, d.Duration())
		assert.False(t, d.Start.Before(from.In(loc).Add(-24*time.Hour)))
		assert.True(t, d.Start.Before(to.Add(24*time.Hour)))
	}
	assert.Less(t, allDay, 60)
}

func TestEventDatesDurationAcrossDST(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)
	// 2024-03-10 01:00 local, the night clocks move forward.
	at := time.Date(2024, 3, 10, 1, 10, 0, 0, loc)
	p := seeded()
	for i := 0; i < 50; i++ {
		d := p.EventDates(at, at, loc)
		if d.AllDay {
			continue
		}
		wall := time.Duration(d.End.Hour()-d.Start.Hour()) * time.Hour
		assert.Equal(t, wall-time.Hour, d.Duration())
	}
}

func TestRecurrenceTypeResolvesAll(t *testing.T) {
	p := seeded()
	assert.Equal(t, model.RecurrenceWeekly, p.RecurrenceType(model.RecurrenceWeekly))
	for i := 0; i < 20; i++ {
		got := p.RecurrenceType(model.RecurrenceAll)
		assert.NotEqual(t, model.RecurrenceAll, got)
		assert.True(t, got.Valid())
	}
}

func TestTicketPricing(t *testing.T) {
	p := seeded()
	for i := 0; i < 50; i++ {
		offer := p.Ticket()
		if offer.Price > 70 {
			assert.Equal(t, "VIP", offer.Name)
			assert.Equal(t, 50, offer.Capacity)
		} else {
			assert.Equal(t, 100, offer.Capacity)
		}
	}
}

func TestImageSourceURL(t *testing.T) {
	url := seeded().ImageSourceURL()
	assert.True(t, strings.HasPrefix(url, ImageBaseURL+"#"))
	assert.Len(t, strings.TrimPrefix(url, ImageBaseURL+"#"), 32)
}

func TestPick(t *testing.T) {
	p := seeded()
	_, ok := p.Pick(nil)
	assert.False(t, ok)
	id, ok := p.Pick([]int64{7})
	assert.True(t, ok)
	assert.Equal(t, int64(7), id)
}
