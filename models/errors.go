package models

// Error types reported by the models package.
const (
	ErrTypeMapNotFound   = "quadmap-map-not-found"
	ErrTypeMapExists     = "quadmap-map-exists"
	ErrTypeLayerNotFound = "quadmap-layer-not-found"
	ErrTypeLayerExists   = "quadmap-layer-exists"
	ErrTypeDataExists    = "quadmap-area-data-exists"
	ErrTypeNothingToUndo = "quadmap-nothing-to-undo"
	ErrTypeNothingToRedo = "quadmap-nothing-to-redo"
	ErrTypeInvalidColor  = "quadmap-invalid-color"
	ErrTypeInvalidMap    = "quadmap-invalid-map"
)
