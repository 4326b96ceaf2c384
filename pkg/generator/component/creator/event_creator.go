package creator

import (
	"context"
	"strconv"
	"time"

	"go.uber.org/fx"

	"github.com/tigerroll/eventgen/pkg/generator/component/content"
	"github.com/tigerroll/eventgen/pkg/generator/core/config"
	"github.com/tigerroll/eventgen/pkg/generator/core/domain/model"
	"github.com/tigerroll/eventgen/pkg/generator/core/domain/repository"
	"github.com/tigerroll/eventgen/pkg/generator/core/metrics"
	"github.com/tigerroll/eventgen/pkg/generator/core/tx"
	"github.com/tigerroll/eventgen/pkg/generator/engine/occurrence"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/exception"
	"github.com/tigerroll/eventgen/pkg/generator/support/util/logger"
)

// Zones by venue state; any other state uses the configured default.
var stateZones = map[string]string{
	"California": "America/Los_Angeles",
	"Illinois":   "America/Chicago",
}

const fallbackZone = "America/New_York"

// EventCreatorParams are the fx inputs of NewEventCreator.
type EventCreatorParams struct {
	fx.In
	Config   *config.GeneratorConfig
	Repo     repository.ContentRepository
	Store    repository.RowStore
	TM       tx.TransactionManager
	Fast     *occurrence.FastOccurrenceInserter
	RowByRow occurrence.OccurrenceWriter
	Provider *content.Provider
	Cache    *CandidateCache
	Recorder metrics.MetricRecorder
	Tracer   metrics.Tracer
}

// EventCreator creates events and, for recurring ones, their occurrences.
type EventCreator struct {
	repo        repository.ContentRepository
	store       repository.RowStore
	tm          tx.TransactionManager
	fast        *occurrence.FastOccurrenceInserter
	rowByRow    occurrence.OccurrenceWriter
	provider    *content.Provider
	cache       *CandidateCache
	recorder    metrics.MetricRecorder
	tracer      metrics.Tracer
	defaultZone *time.Location
	now         func() time.Time
}

// NewEventCreator creates the event Creator.
func NewEventCreator(p EventCreatorParams) *EventCreator {
	name := fallbackZone
	if p.Config != nil && p.Config.DefaultTimezone != "" {
		name = p.Config.DefaultTimezone
	}
	zone, err := time.LoadLocation(name)
	if err != nil {
		logger.Warnf("Unknown default time zone '%s'; events use UTC: %v", name, err)
		zone = time.UTC
	}
	return &EventCreator{
		repo:        p.Repo,
		store:       p.Store,
		tm:          p.TM,
		fast:        p.Fast,
		rowByRow:    p.RowByRow,
		provider:    p.Provider,
		cache:       p.Cache,
		recorder:    p.Recorder,
		tracer:      p.Tracer,
		defaultZone: zone,
		now:         time.Now,
	}
}

// Kind implements Creator.
func (c *EventCreator) Kind() model.EntityKind { return model.KindEvent }

type plannedEvent struct {
	fields model.RecordFields
	dates  content.EventDates
	rule   *occurrence.Rule
}

// Create implements Creator.
func (c *EventCreator) Create(ctx context.Context, n int, params model.EntityQuantity) ([]int64, error) {
	const op = "EventCreator.Create"

	from, to, err := params.DateWindow(c.now())
	if err != nil {
		return nil, exception.NewValidationError(op, "invalid event date window", err)
	}
	categories, err := c.upsertTerms(ctx, params.EventCategory, model.DefaultEventCategoryName, model.TaxonomyEventCategory)
	if err != nil {
		return nil, err
	}
	tags, err := c.upsertTerms(ctx, params.EventTag, model.DefaultEventTagName, model.TaxonomyTag)
	if err != nil {
		return nil, err
	}
	termIDs := append(categories, tags...)

	fast, err := c.useFastPath(ctx, params)
	if err != nil {
		return nil, err
	}

	ids := make([]int64, 0, n)
	defer func() {
		if len(ids) > 0 {
			c.recorder.RecordRecordsCreated(ctx, model.KindEvent, len(ids))
		}
	}()
	for i := 0; i < n; i++ {
		ev, err := c.plan(ctx, params, from, to, termIDs)
		if err != nil {
			return ids, err
		}
		id, err := c.persist(ctx, ev, fast)
		if id != 0 {
			ids = append(ids, id)
		}
		if err != nil {
			return ids, err
		}
	}
	logger.Debugf("Created %d events (recurring: %t, fast occurrences: %t).", len(ids), params.Recurring, fast)
	return ids, nil
}

func (c *EventCreator) useFastPath(ctx context.Context, params model.EntityQuantity) (bool, error) {
	if !params.Recurring || !params.FastOccurrencesInsert {
		return false, nil
	}
	ok, err := c.fast.Supported(ctx)
	if err != nil {
		return false, err
	}
	if !ok {
		logger.Warnf("Fast occurrence insert requested but the content tables are not transactional; inserting occurrences row by row.")
	}
	return ok, nil
}

func (c *EventCreator) upsertTerms(ctx context.Context, names []string, fallback, taxonomy string) ([]int64, error) {
	if len(names) == 0 {
		names = []string{fallback}
	}
	ids := make([]int64, 0, len(names))
	for _, name := range names {
		id, err := c.repo.UpsertTerm(ctx, name, taxonomy)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// pick returns a random existing record of kind, or 0 when there is none.
func (c *EventCreator) pick(ctx context.Context, kind model.EntityKind) (int64, error) {
	ids, err := c.cache.IDs(ctx, kind)
	if err != nil {
		return 0, err
	}
	id, _ := c.provider.Pick(ids)
	return id, nil
}

func (c *EventCreator) title(ctx context.Context, id int64) (string, error) {
	if id == 0 {
		return "", nil
	}
	row, err := c.store.ReadRecordRow(ctx, id)
	if err != nil {
		return "", err
	}
	return row.Title, nil
}

func (c *EventCreator) zone(state string) *time.Location {
	if name, ok := stateZones[state]; ok {
		if loc, err := time.LoadLocation(name); err == nil {
			return loc
		}
	}
	return c.defaultZone
}

func (c *EventCreator) plan(ctx context.Context, params model.EntityQuantity, from, to time.Time, termIDs []int64) (plannedEvent, error) {
	venueID, err := c.pick(ctx, model.KindVenue)
	if err != nil {
		return plannedEvent{}, err
	}
	organizerID, err := c.pick(ctx, model.KindOrganizer)
	if err != nil {
		return plannedEvent{}, err
	}
	imageID, err := c.pick(ctx, model.KindUpload)
	if err != nil {
		return plannedEvent{}, err
	}

	venueName, err := c.title(ctx, venueID)
	if err != nil {
		return plannedEvent{}, err
	}
	organizerName, err := c.title(ctx, organizerID)
	if err != nil {
		return plannedEvent{}, err
	}
	var city, state string
	if venueID != 0 {
		if city, err = c.repo.ReadMetaValue(ctx, venueID, model.MetaVenueCity); err != nil {
			return plannedEvent{}, err
		}
		if state, err = c.repo.ReadMetaValue(ctx, venueID, model.MetaVenueState); err != nil {
			return plannedEvent{}, err
		}
	}

	loc := c.zone(state)
	dates := c.provider.EventDates(from, to, loc)
	fields := c.provider.RandomFields(model.KindEvent)
	fields.Row.Content = c.provider.EventDescription(fields.Row.Title, venueName, city, organizerName, params.ContentLength)
	fields.TermIDs = termIDs
	fields.Meta = append(fields.Meta, dateMeta(dates, loc)...)
	fields.Meta = append(fields.Meta,
		model.MetaEntry{Key: model.MetaEventShowMap, Value: "1"},
		model.MetaEntry{Key: model.MetaEventShowMapLink, Value: "1"},
		model.MetaEntry{Key: model.MetaEventOrigin, Value: "eventgen"},
	)
	if venueID != 0 {
		fields.Meta = append(fields.Meta, model.MetaEntry{Key: model.MetaEventVenueID, Value: strconv.FormatInt(venueID, 10)})
	}
	if organizerID != 0 {
		fields.Meta = append(fields.Meta, model.MetaEntry{Key: model.MetaEventOrganizerID, Value: strconv.FormatInt(organizerID, 10)})
	}
	if imageID != 0 {
		fields.Meta = append(fields.Meta, model.MetaEntry{Key: model.MetaThumbnailID, Value: strconv.FormatInt(imageID, 10)})
	}
	if params.Featured {
		fields.Meta = append(fields.Meta, model.MetaEntry{Key: model.MetaFeatured, Value: "1"})
	}
	if params.Virtual {
		fields.Meta = append(fields.Meta, c.virtualMeta()...)
	}
	fields.Meta = append(fields.Meta, c.admissionMeta(params)...)

	ev := plannedEvent{fields: fields, dates: dates}
	if params.Recurring {
		rule, err := occurrence.RuleFor(c.provider.RecurrenceType(params.RecurringType))
		if err != nil {
			return plannedEvent{}, exception.NewValidationError("EventCreator.plan", "invalid recurrence", err)
		}
		ev.rule = &rule
		ev.fields.Meta = append(ev.fields.Meta, model.MetaEntry{Key: model.MetaEventRecurrence, Value: rule.Descriptor(dates.Start)})
	}
	return ev, nil
}

// dateMeta is the schedule metadata of an event. The duration is the elapsed
// time in the event's zone.
func dateMeta(d content.EventDates, loc *time.Location) []model.MetaEntry {
	meta := []model.MetaEntry{
		{Key: model.MetaEventStartDate, Value: d.Start.In(loc).Format(model.DateTimeLayout)},
		{Key: model.MetaEventEndDate, Value: d.End.In(loc).Format(model.DateTimeLayout)},
		{Key: model.MetaEventStartDateUTC, Value: d.Start.UTC().Format(model.DateTimeLayout)},
		{Key: model.MetaEventEndDateUTC, Value: d.End.UTC().Format(model.DateTimeLayout)},
		{Key: model.MetaEventDuration, Value: strconv.FormatInt(int64(d.Duration()/time.Second), 10)},
		{Key: model.MetaEventTimezone, Value: loc.String()},
		{Key: model.MetaEventTimezoneAbbr, Value: d.Start.In(loc).Format("MST")},
	}
	if d.AllDay {
		meta = append(meta, model.MetaEntry{Key: model.MetaEventAllDay, Value: "yes"})
	}
	return meta
}

func (c *EventCreator) virtualMeta() []model.MetaEntry {
	meta := []model.MetaEntry{
		{Key: model.MetaVirtual, Value: "yes"},
		{Key: model.MetaVirtualShowEmbedAt, Value: "immediately"},
		{Key: model.MetaVirtualShowOn, Value: "yes"},
	}
	if c.provider.Chance(50) {
		return append(meta,
			model.MetaEntry{Key: model.MetaVirtualURL, Value: "https://www.youtube.com/watch?v=" + c.provider.HexToken(6)},
			model.MetaEntry{Key: model.MetaVirtualLinkText, Value: "Watch Now"},
		)
	}
	return append(meta,
		model.MetaEntry{Key: model.MetaVirtualURL, Value: "https://zoom.us/j/1100000"},
		model.MetaEntry{Key: model.MetaVirtualLinkText, Value: "Join Session"},
	)
}

// admissionMeta adds the free RSVP and the paid ticket. The event cost is the
// ticket price when there is a ticket and zero for an RSVP-only event.
func (c *EventCreator) admissionMeta(params model.EntityQuantity) []model.MetaEntry {
	var meta []model.MetaEntry
	cost := ""
	if params.RSVP {
		meta = append(meta,
			model.MetaEntry{Key: model.MetaRSVPName, Value: "Free Entrance"},
			model.MetaEntry{Key: model.MetaRSVPCapacity, Value: "70"},
		)
		cost = "0"
	}
	if params.Ticket {
		t := c.provider.Ticket()
		price := strconv.FormatFloat(t.Price, 'f', -1, 64)
		meta = append(meta,
			model.MetaEntry{Key: model.MetaTicketName, Value: t.Name},
			model.MetaEntry{Key: model.MetaTicketPrice, Value: price},
			model.MetaEntry{Key: model.MetaTicketCapacity, Value: strconv.Itoa(t.Capacity)},
		)
		cost = price
	}
	if cost != "" {
		meta = append(meta, model.MetaEntry{Key: model.MetaEventCost, Value: cost})
	}
	return meta
}

// persist stores the event and its occurrences. On the fast path both happen
// in one transaction; otherwise the parent stays when an occurrence fails.
func (c *EventCreator) persist(ctx context.Context, ev plannedEvent, fast bool) (int64, error) {
	const op = "EventCreator.persist"

	if ev.rule == nil {
		return c.repo.Create(ctx, model.KindEvent, ev.fields)
	}
	occs := occurrence.Expand(ev.dates.Start, ev.dates.End, *ev.rule)

	if !fast {
		id, err := c.repo.Create(ctx, model.KindEvent, ev.fields)
		if err != nil {
			return 0, err
		}
		return id, c.rowByRow.InsertOccurrences(ctx, id, occs)
	}

	ctx, end := c.tracer.StartSpan(ctx, "event.create_recurring", map[string]interface{}{
		"recurrence":  string(ev.rule.Type),
		"occurrences": len(occs),
	})
	defer end()

	var id int64
	err := tx.RunInTransaction(ctx, c.tm, func(txCtx context.Context) error {
		var err error
		if id, err = c.repo.Create(txCtx, model.KindEvent, ev.fields); err != nil {
			return err
		}
		return c.fast.InsertOccurrences(txCtx, id, occs)
	})
	if err != nil {
		return 0, storageError(op, "failed to create recurring event", err)
	}
	return id, nil
}
