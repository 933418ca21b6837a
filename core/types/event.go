package types

// Event is the attribute form of a module event handed to external consumers
// such as the RPC layer and the history recorder.
type Event struct {
	Type       string            `json:"type"`
	Attributes map[string]string `json:"attributes"`
}
