package handler

const (
	errInternalServer = "Internal server error"
	errNotRegistered  = "Email is not registered."
	errInvalidLevel   = "Unknown log level"
)
