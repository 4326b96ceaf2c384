// Package model holds the domain types of the generator.
//
// EntityKind names what can be generated, and Kinds returns them in the order
// a batch visits them. A GenerationRequest maps each kind to an EntityQuantity
// carrying the count plus the options of that kind, such as the event date
// window or the recurrence type. Requests are cloned and decremented as slices
// complete, and serialized as the payload of a continuation.
//
// BatchResult reports one invocation: the slice taken, what remains, and
// whether anything was created. RecordFields, RecordRow and MetaEntry describe
// a stored record as a base row, key/value metadata and term links.
// ParentRecordSnapshot is the read-only copy of a recurring event that its
// occurrences are cloned from.
package model

import (
	"fmt"
	"strings"

	"github.com/tigerroll/eventgen/pkg/generator/support/util/exception"
)

// EntityKind is the closed set of record kinds the generator can produce.
// The declaration order is the processing order.
type EntityKind int

const (
	KindOrganizer EntityKind = iota
	KindVenue
	KindEvent
	KindUpload

	kindCount
)

var kindNames = [kindCount]string{"organizers", "venues", "events", "uploads"}

// recordTypes are the values stored in the kind column of a record row.
var recordTypes = [kindCount]string{"organizer", "venue", "event", "upload"}

// Kinds returns every kind in processing order.
func Kinds() []EntityKind {
	return []EntityKind{KindOrganizer, KindVenue, KindEvent, KindUpload}
}

// String returns the plural wire name ("organizers", "venues", ...).
func (k EntityKind) String() string {
	if !k.valid() {
		return fmt.Sprintf("EntityKind(%d)", int(k))
	}
	return kindNames[k]
}

// RecordType returns the value stored in RecordRow.Kind for this kind.
func (k EntityKind) RecordType() string {
	if !k.valid() {
		return ""
	}
	return recordTypes[k]
}

func (k EntityKind) valid() bool {
	return k >= 0 && k < kindCount
}

// ParseEntityKind accepts either the plural wire name or the record type.
func ParseEntityKind(s string) (EntityKind, error) {
	name := strings.ToLower(strings.TrimSpace(s))
	for _, k := range Kinds() {
		if name == kindNames[k] || name == recordTypes[k] {
			return k, nil
		}
	}
	return 0, exception.NewValidationError(moduleName, fmt.Sprintf("unknown entity kind %q", s), nil)
}

// MarshalText implements encoding.TextMarshaler.
func (k EntityKind) MarshalText() ([]byte, error) {
	if !k.valid() {
		return nil, exception.NewValidationError(moduleName, fmt.Sprintf("invalid entity kind %d", int(k)), nil)
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *EntityKind) UnmarshalText(text []byte) error {
	parsed, err := ParseEntityKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
