package model

import "time"

const moduleName = "model"

// Record statuses.
const (
	StatusPublish = "publish"
	StatusInherit = "inherit"
)

// Taxonomies used for event terms.
const (
	TaxonomyEventCategory = "event_category"
	TaxonomyTag           = "post_tag"
)

// Metadata keys written by the generator.
const (
	MetaGeneratedMarker      = "tribe_test_data_gen"
	MetaModifiedFields       = "_tribe_modified_fields"
	MetaEventStartDate       = "_EventStartDate"
	MetaEventEndDate         = "_EventEndDate"
	MetaEventStartDateUTC    = "_EventStartDateUTC"
	MetaEventEndDateUTC      = "_EventEndDateUTC"
	MetaEventDuration        = "_EventDuration"
	MetaEventRecurrence      = "_EventRecurrence"
	MetaEventTimezone        = "_EventTimezone"
	MetaEventTimezoneAbbr    = "_EventTimezoneAbbr"
	MetaEventAllDay          = "_EventAllDay"
	MetaEventVenueID         = "_EventVenueID"
	MetaEventOrganizerID     = "_EventOrganizerID"
	MetaEventShowMap         = "_EventShowMap"
	MetaEventShowMapLink     = "_EventShowMapLink"
	MetaEventCost            = "_EventCost"
	MetaEventURL             = "_EventURL"
	MetaFeatured             = "_tribe_featured"
	MetaThumbnailID          = "_thumbnail_id"
	MetaVirtual              = "_tribe_events_is_virtual"
	MetaVirtualURL           = "_tribe_events_virtual_url"
	MetaVirtualShowEmbedAt   = "_tribe_events_virtual_show_embed_at"
	MetaVirtualShowOn        = "_tribe_events_virtual_show_on_event"
	MetaVirtualLinkText      = "_tribe_events_virtual_linked_button_text"
	MetaRSVPName             = "_tribe_rsvp_name"
	MetaRSVPCapacity         = "_tribe_rsvp_capacity"
	MetaTicketPrice          = "_tribe_ticket_price"
	MetaTicketCapacity       = "_tribe_ticket_capacity"
	MetaTicketName           = "_tribe_ticket_name"
	MetaAttachedFile         = "_wp_attached_file"
	MetaSourceURL            = "_source_url"
	MetaVenueAddress         = "_VenueAddress"
	MetaVenueCity            = "_VenueCity"
	MetaVenueState           = "_VenueState"
	MetaVenueProvince        = "_VenueProvince"
	MetaVenueZip             = "_VenueZip"
	MetaVenueCountry         = "_VenueCountry"
	MetaVenuePhone           = "_VenuePhone"
	MetaVenueURL             = "_VenueURL"
	MetaVenueStateProvince   = "_VenueStateProvince"
	MetaOrganizerPhone       = "_OrganizerPhone"
	MetaOrganizerWebsite     = "_OrganizerWebsite"
	MetaOrganizerEmail       = "_OrganizerEmail"
	MetaOrganizerOrigin      = "_OrganizerOrigin"
	MetaVenueOrigin          = "_VenueOrigin"
	MetaEventOrigin          = "_EventOrigin"
	GeneratedMarkerValue     = "1"
	DateTimeLayout           = "2006-01-02 15:04:05"
	DefaultEventCategoryName = "Generated"
	DefaultEventTagName      = "Automated"
)

// RecordRow is the primary row of a stored record.
type RecordRow struct {
	ID         int64
	Kind       string
	Title      string
	Content    string
	Excerpt    string
	Status     string
	ParentID   int64
	GUID       string
	MimeType   string
	CreatedAt  time.Time
	ModifiedAt time.Time
}

// MetaEntry is one key/value metadata pair attached to a record.
type MetaEntry struct {
	Key   string
	Value string
}

// TermRelation links a record to a taxonomy term.
type TermRelation struct {
	TermTaxonomyID int64
	TermOrder      int
}

// Term is a taxonomy term together with the number of records linked to it.
type Term struct {
	ID       int64
	Name     string
	Slug     string
	Taxonomy string
	Count    int64
}

// RecordFields is everything needed to create one record: its row, ordered
// metadata, and the terms it links to.
type RecordFields struct {
	Row     RecordRow
	Meta    []MetaEntry
	TermIDs []int64
}

// MetaValue returns the value of the first entry with the given key.
func (f RecordFields) MetaValue(key string) (string, bool) {
	return FindMeta(f.Meta, key)
}

// FindMeta returns the value of the first entry with the given key.
func FindMeta(entries []MetaEntry, key string) (string, bool) {
	for _, e := range entries {
		if e.Key == key {
			return e.Value, true
		}
	}
	return "", false
}

// Filter narrows Count, ListIDs and Delete.
type Filter struct {
	// GeneratedOnly restricts the operation to records carrying MetaGeneratedMarker.
	GeneratedOnly bool
	// Status restricts to a record status when non-empty.
	Status string
	// TopLevelOnly excludes records with a parent (occurrences).
	TopLevelOnly bool
}
