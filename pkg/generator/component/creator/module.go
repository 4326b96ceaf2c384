package creator

import (
	"go.uber.org/fx"

	"github.com/tigerroll/eventgen/pkg/generator/component/content"
)

func asCreator(constructor interface{}) interface{} {
	return fx.Annotate(constructor, fx.As(new(Creator)), fx.ResultTags(`group:"`+CreatorGroup+`"`))
}

// Module provides every Creator in the creators group plus the shared content
// provider and candidate cache.
var Module = fx.Options(
	fx.Provide(content.NewDefaultProvider),
	fx.Provide(NewCandidateCache),
	fx.Provide(
		asCreator(NewOrganizerCreator),
		asCreator(NewVenueCreator),
		asCreator(NewEventCreator),
		asCreator(NewUploadCreator),
	),
)
