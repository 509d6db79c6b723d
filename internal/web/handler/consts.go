package handler

const (
	// RootPath is the root path of the API route group.
	RootPath = "/api/v1"

	// ErrNilACDFatalLogMsg is used if app or cfg or db var pointer is nil.
	ErrNilACDFatalLogMsg = "app, cfg or db is nil"
)
