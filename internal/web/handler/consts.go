package handler

const (
	// RootPath is the root path the route group.
	RootPath = "/"

	// RouterRootPath is the path of a route group's own endpoint.
	RouterRootPath = ""

	// APIPath prefixes the json admin api.
	APIPath = "/api"

	// ErrNilDepsFatalLogMsg is used if app or deps var pointer is nil.
	ErrNilDepsFatalLogMsg = "app or deps is nil"
)
