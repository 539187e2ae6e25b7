package render

// Error types reported by the render package.
const (
	ErrTypeInvalidSize  = "quadmap-render-invalid-size"
	ErrTypeInvalidImage = "quadmap-render-invalid-image"
)
