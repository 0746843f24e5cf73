package auth

// Known OAuth scopes used by the service API.
const (
	ScopeSyncWrite = "sync:write"
	ScopeSyncRead  = "sync:read"
)
