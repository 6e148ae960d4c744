package auth

// Known OAuth scopes used by the training service.
const (
	ScopeTrainingWrite = "training:write"
	ScopeTrainingRead  = "training:read"
)
