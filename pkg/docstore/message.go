package docstore

const (
	mtSubscribe = "subscribe"
	mtUpdate    = "update"
	mtSnapshot  = "snapshot"
	mtMissing   = "missing"
)

// Message is the frame exchanged between WebSocketStore and Hub.
type Message struct {
	MessageType string         `json:"type"`
	Doc         string         `json:"doc"`
	Fields      map[string]any `json:"fields,omitempty"`
	Body        string         `json:"body,omitempty"`
}
