package occurrence

import "go.uber.org/fx"

// Module provides the fast inserter and the row-by-row OccurrenceWriter.
var Module = fx.Provide(
	NewFastOccurrenceInserter,
	fx.Annotate(NewRowByRowInserter, fx.As(new(OccurrenceWriter))),
)
