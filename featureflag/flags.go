package featureflag

type Flag string

const (
	// FlagLegacyDeltaFormat reads layer deltas stored as plain trees, where an
	// unset value means no change.
	FlagLegacyDeltaFormat Flag = "LEGACY_DELTA_FORMAT"

	// FlagSimplifyOnLoad re-canonicalizes layer trees after a map is loaded.
	FlagSimplifyOnLoad Flag = "SIMPLIFY_ON_LOAD"

	FlagDisableRenderCache Flag = "DISABLE_RENDER_CACHE"
)

var knownFlags = []Flag{
	FlagLegacyDeltaFormat,
	FlagSimplifyOnLoad,
	FlagDisableRenderCache,
}
