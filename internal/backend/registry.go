package backend

// Registry hands out live backends. Each accessor is called at most once per
// server, after the server type and identity parameters have been validated.
type Registry interface {
	Memory(agentID string) Memory
	Sessions() Sessions
	Message() Message
	Nodes(sessionKey string) Invoker
	Browser() Invoker
	Canvas() Invoker
}
