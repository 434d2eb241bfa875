package types

// ContextKey is the type for request-scoped values placed on a context.
type ContextKey string

const (
	ContextKeyStoryID       ContextKey = "story_id"
	ContextKeyUserID        ContextKey = "user_id"
	ContextKeyRequestSource ContextKey = "request_source"
)
