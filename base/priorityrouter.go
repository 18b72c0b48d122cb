package base

// PriorityRouter decides whether a message must bypass batching and be dispatched on its own
//
// HasPriority is evaluated once per inbound message before any queueing. It must be pure: no side
// effects and no retained references to the message.
type PriorityRouter interface {
	HasPriority(message Message) bool
}

// PriorityFunc adapts a plain function to a PriorityRouter
type PriorityFunc func(message Message) bool

// HasPriority invokes the function
func (check PriorityFunc) HasPriority(message Message) bool {
	return check(message)
}

// NoPriority is the default PriorityRouter: everything is batched
type NoPriority struct{}

// HasPriority returns false for all messages
func (NoPriority) HasPriority(_ Message) bool {
	return false
}
