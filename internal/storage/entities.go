package storage

// Broadcast is the sentinel recipient meaning "every participant in the room".
const Broadcast = "Todos"

// Message type tags. Status messages are system-generated (join/leave notices).
const (
	TypeMessage = "message"
	TypePrivate = "private_message"
	TypeStatus  = "status"
)

// timeLayout is the human-readable clock format exposed in message payloads.
const timeLayout = "15:04:05"

type Participant struct {
	Name       string `json:"name"`
	LastStatus int64  `json:"lastStatus"`
}

type Message struct {
	ID   int64  `json:"id"`
	From string `json:"from"`
	To   string `json:"to"`
	Text string `json:"text"`
	Type string `json:"type"`
	Time string `json:"time"`
}
