// Package content produces the random field values of generated records.
package content

import (
	"encoding/hex"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/tigerroll/eventgen/pkg/generator/core/domain/model"
)

// ImageBaseURL is the placeholder image service recorded as an upload's source.
const ImageBaseURL = "https://picsum.photos/640/360"

type address struct {
	streets []street
	city    string
	state   string
	country string
}

type street struct {
	name     string
	min, max int
}

var addresses = []address{
	{[]street{{"Broadway", 25, 185}, {"42nd St", 18, 120}}, "New York City", "New York", "United States"},
	{[]street{{"W Madison St", 3, 547}, {"S Michigan Ave", 2, 1150}}, "Chicago", "Illinois", "United States"},
	{[]street{{"Sunset Blvd", 1135, 2900}, {"Santa Monica Blvd", 4114, 5244}}, "Los Angeles", "California", "United States"},
	{[]street{{"Sunset Boulevard", 346, 481}, {"Wilshire Blvd", 8556, 9777}}, "Beverly Hills", "California", "United States"},
	{[]street{{"Lombard St", 1200, 2499}, {"Columbus Ave", 13, 1335}}, "San Francisco", "California", "United States"},
}

var (
	lastNames = []string{
		"Abbott", "Barrett", "Castillo", "Delgado", "Ellison", "Fischer", "Gallagher", "Harper",
		"Ingram", "Jensen", "Kowalski", "Lindqvist", "Moreno", "Nakamura", "Okafor", "Patel",
		"Quinn", "Rasmussen", "Sullivan", "Thornton", "Underwood", "Vasquez", "Whitfield", "Young",
	}
	firstNames = []string{
		"Ada", "Bruno", "Carmen", "Dmitri", "Elena", "Farah", "Gus", "Hana", "Ivan", "Jules",
		"Kira", "Leo", "Maya", "Nils", "Olga", "Pablo", "Rosa", "Sami", "Tess", "Viktor",
	}
	companySuffixes = []string{"Group", "LLC", "and Sons", "Collective", "Partners", "Inc"}
	venueSuffixes   = []string{" Hall", " Room", " Cafe", " Arena", "", ""}
	buzzVerbs       = []string{"Integrate", "Leverage", "Streamline", "Reinvent", "Orchestrate", "Scale", "Empower"}
	buzzAdjectives  = []string{"Seamless", "Cross-Platform", "Next-Generation", "Sustainable", "Open-Source", "Real-Time"}
	buzzNouns       = []string{"Communities", "Workflows", "Synergies", "Platforms", "Experiences", "Networks"}
	catchPhrases    = []string{
		"Innovative Local Meetup", "Community Open House", "Hands-On Workshop", "Evening Of Jazz",
		"Founders Breakfast", "Open Mic Night", "Neighborhood Market", "Design Sprint Kickoff",
	}
	jobTitles = []string{
		"Urban Planning", "Data Engineering", "Pastry Arts", "Marine Biology", "Stage Lighting",
		"Civil Rights Law", "Product Design", "Beekeeping", "Architecture", "Sound Engineering",
	}
	discussionVerbs = []string{"Discusses", "Talks", "Dissects", "Analyzes"}
	gerunds         = []string{"Discussing", "Talking", "Dissecting", "Analyzing"}
	words           = strings.Fields(`the quick event brings together neighbors friends and curious minds for an
		afternoon of music food conversation and discovery guests will enjoy local vendors live
		performances and hands on activities for every age bring a friend and stay for the closing
		celebration under the lights of the city everyone is welcome and admission details follow`)
	alphanumerics = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	ticketPrices  = []float64{9.99, 15, 25, 35, 49.99, 75, 150}
	ticketTypes   = []string{"Standard", "General", "Basic", "Student"}
)

// Provider produces random record content. It is safe for concurrent use.
type Provider struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewProvider creates a provider drawing from rng, or from a time-seeded source
// when rng is nil.
func NewProvider(rng *rand.Rand) *Provider {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Provider{rng: rng}
}

// NewDefaultProvider creates a time-seeded provider.
func NewDefaultProvider() *Provider {
	return NewProvider(nil)
}

func (p *Provider) intn(n int) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.rng.Intn(n)
}

// between returns a uniform integer in [min, max].
func (p *Provider) between(min, max int) int {
	return min + p.intn(max-min+1)
}

func (p *Provider) pick(values []string) string {
	return values[p.intn(len(values))]
}

// Chance reports true with probability percent/100.
func (p *Provider) Chance(percent int) bool {
	return p.intn(100) < percent
}

// Pick returns a random element of ids, or false when ids is empty.
func (p *Provider) Pick(ids []int64) (int64, bool) {
	if len(ids) == 0 {
		return 0, false
	}
	return ids[p.intn(len(ids))], true
}

func (p *Provider) lastName() string { return p.pick(lastNames) }

func (p *Provider) fullName() string { return p.pick(firstNames) + " " + p.lastName() }

func (p *Provider) company() string {
	return p.lastName() + " " + p.pick(companySuffixes)
}

func (p *Provider) phone() string {
	return fmt.Sprintf("(%03d) %03d-%04d", p.between(201, 989), p.between(200, 999), p.between(0, 9999))
}

func marker() model.MetaEntry {
	return model.MetaEntry{Key: model.MetaGeneratedMarker, Value: model.GeneratedMarkerValue}
}

// RandomFields returns the fields of a new record of kind. Events and uploads
// only get their base fields; the creators add the rest.
func (p *Provider) RandomFields(kind model.EntityKind) model.RecordFields {
	switch kind {
	case model.KindVenue:
		return p.venueFields()
	case model.KindOrganizer:
		return p.organizerFields()
	case model.KindUpload:
		return model.RecordFields{
			Row:  model.RecordRow{Title: "Placeholder " + p.HexToken(4), Status: model.StatusInherit},
			Meta: []model.MetaEntry{marker()},
		}
	default:
		return model.RecordFields{
			Row:  model.RecordRow{Title: p.EventTitle(), Status: model.StatusPublish},
			Meta: []model.MetaEntry{marker()},
		}
	}
}

func (p *Provider) venueName() string {
	name := p.lastName()
	if p.intn(2) == 0 {
		name = "The " + name
	}
	suffix := p.intn(len(venueSuffixes) + 1)
	if suffix == len(venueSuffixes) {
		return p.company()
	}
	return name + venueSuffixes[suffix]
}

func (p *Provider) venueFields() model.RecordFields {
	name := p.venueName()
	addr := addresses[p.intn(len(addresses))]
	st := addr.streets[p.intn(len(addr.streets))]
	streetLine := fmt.Sprintf("%d %s", p.between(st.min, st.max), st.name)
	website := strings.ToLower(strings.ReplaceAll(name, " ", "")) + "-qa.example.com"
	description := fmt.Sprintf("%s is a multi-purpose space in %s, %s with over %d years of experience hosting events "+
		"ranging from small & intimate occasions and classes to big crowd events and concerts. Winner of the %d %s Venue Awards.",
		name, addr.city, addr.state, p.between(5, 12), p.between(2012, 2020), addr.state)

	return model.RecordFields{
		Row: model.RecordRow{Title: name, Content: description, Status: model.StatusPublish},
		Meta: []model.MetaEntry{
			marker(),
			{Key: model.MetaVenueAddress, Value: streetLine},
			{Key: model.MetaVenueCity, Value: addr.city},
			{Key: model.MetaVenueState, Value: addr.state},
			{Key: model.MetaVenueStateProvince, Value: addr.state},
			{Key: model.MetaVenueCountry, Value: addr.country},
			{Key: model.MetaVenuePhone, Value: p.phone()},
			{Key: model.MetaVenueURL, Value: website},
			{Key: model.MetaEventShowMap, Value: "1"},
			{Key: model.MetaEventShowMapLink, Value: "1"},
			{Key: model.MetaVenueOrigin, Value: "eventgen"},
		},
	}
}

func (p *Provider) organizerFields() model.RecordFields {
	name := p.fullName()
	handle := strings.ToLower(strings.ReplaceAll(name, " ", "."))
	return model.RecordFields{
		Row: model.RecordRow{Title: name, Status: model.StatusPublish},
		Meta: []model.MetaEntry{
			marker(),
			{Key: model.MetaOrganizerPhone, Value: p.phone()},
			{Key: model.MetaOrganizerWebsite, Value: "https://" + strings.ReplaceAll(handle, ".", "-") + ".example.com"},
			{Key: model.MetaOrganizerEmail, Value: handle + "@example.com"},
			{Key: model.MetaOrganizerOrigin, Value: "eventgen"},
		},
	}
}

// EventTitle returns a random event title.
func (p *Provider) EventTitle() string {
	switch p.intn(4) {
	case 0:
		return p.pick(buzzVerbs) + " " + p.pick(buzzAdjectives) + " " + p.pick(buzzNouns)
	case 1:
		return p.pick(catchPhrases)
	case 2:
		return p.pick(gerunds) + " " + p.pick(jobTitles)
	default:
		return p.fullName() + " " + p.pick(discussionVerbs) + " " + p.pick(jobTitles)
	}
}

func (p *Provider) text(n int) string {
	var b strings.Builder
	for b.Len() < n {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString(p.pick(words))
	}
	out := []rune(b.String())[:n]
	if n > 1 {
		out[n-1] = '.'
	}
	out[0] = []rune(strings.ToUpper(string(out[0])))[0]
	return string(out)
}

// EventDescription returns the event's body. When contentLength is positive the
// body is exactly that many characters; otherwise it is 200 to 300 characters of
// text wrapped in a short introduction naming the venue and organizer.
func (p *Provider) EventDescription(title, venueName, venueCity, organizerName string, contentLength int) string {
	if contentLength > 0 {
		if contentLength <= 10 {
			b := make([]byte, contentLength)
			for i := range b {
				b[i] = alphanumerics[p.intn(len(alphanumerics))]
			}
			return string(b)
		}
		return p.text(contentLength)
	}
	if venueName == "" {
		venueName = "The Venue"
	}
	if venueCity == "" {
		venueCity = "your city"
	}
	if organizerName == "" {
		organizerName = "a Premium Organizer"
	}
	return fmt.Sprintf("<p>%s hosts %s, an event by %s coming to %s! </p><p>%s</p>",
		venueName, title, organizerName, venueCity, p.text(p.between(200, 300)))
}

// EventDates is the schedule of a generated event.
type EventDates struct {
	Start  time.Time
	End    time.Time
	AllDay bool
}

// Duration is the elapsed time between Start and End, which differs from the
// wall-clock difference across a daylight-saving change.
func (d EventDates) Duration() time.Duration {
	return d.End.Sub(d.Start)
}

// EventDates picks a schedule inside [from, to] in loc. One event in twenty is
// all-day; the others start on the hour or half hour and last two or three
// wall-clock hours.
func (p *Provider) EventDates(from, to time.Time, loc *time.Location) EventDates {
	span := to.Sub(from)
	offset := time.Duration(0)
	if span > 0 {
		p.mu.Lock()
		offset = time.Duration(p.rng.Int63n(int64(span)))
		p.mu.Unlock()
	}
	at := from.Add(offset).In(loc)
	y, m, d := at.Date()

	if p.Chance(5) {
		start := time.Date(y, m, d, 0, 0, 0, 0, loc)
		return EventDates{Start: start, End: time.Date(y, m, d, 23, 59, 59, 0, loc), AllDay: true}
	}
	minute := 0
	if p.intn(2) == 1 {
		minute = 30
	}
	hours := 2 + p.intn(2)
	return EventDates{
		Start: time.Date(y, m, d, at.Hour(), minute, 0, 0, loc),
		End:   time.Date(y, m, d, at.Hour()+hours, minute, 0, 0, loc),
	}
}

// RecurrenceType resolves "all" (or an empty value) to a random concrete type.
func (p *Provider) RecurrenceType(requested model.RecurrenceType) model.RecurrenceType {
	if requested != "" && requested != model.RecurrenceAll {
		return requested
	}
	all := []model.RecurrenceType{model.RecurrenceDaily, model.RecurrenceWeekly, model.RecurrenceMonthly, model.RecurrenceYearly}
	return all[p.intn(len(all))]
}

// TicketOffer is a paid ticket attached to an event.
type TicketOffer struct {
	Name     string
	Price    float64
	Capacity int
}

// Ticket returns a random ticket; tickets over 70 are VIP with half the capacity.
func (p *Provider) Ticket() TicketOffer {
	p.mu.Lock()
	price := ticketPrices[p.rng.Intn(len(ticketPrices))]
	p.mu.Unlock()
	if price > 70 {
		return TicketOffer{Name: "VIP", Price: price, Capacity: 50}
	}
	return TicketOffer{Name: p.pick(ticketTypes), Price: price, Capacity: 100}
}

// HexToken returns n random bytes hex-encoded.
func (p *Provider) HexToken(n int) string {
	b := make([]byte, n)
	p.mu.Lock()
	p.rng.Read(b)
	p.mu.Unlock()
	return hex.EncodeToString(b)
}

// ImageSourceURL returns a unique placeholder image URL.
func (p *Provider) ImageSourceURL() string {
	return ImageBaseURL + "#" + p.HexToken(16)
}

// Color returns a random opaque RGB triple.
func (p *Provider) Color() (r, g, b uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return uint8(p.rng.Intn(256)), uint8(p.rng.Intn(256)), uint8(p.rng.Intn(256))
}
