package core

// Client is one live device session as seen by the relay core.
// Rooms is owned by the hub goroutine; transport code must not touch it.
type Client struct {
	ID       string
	Commands chan *Command
	Events   chan *Event
	Rooms    map[string]struct{}
}

// NewClient constructs a client with initialized channels. The events
// channel is sized for chunk traffic; a consumer that falls behind has
// events dropped rather than blocking the hub.
func NewClient(id string) *Client {
	return &Client{
		ID:       id,
		Commands: make(chan *Command, 32),
		Events:   make(chan *Event, 256),
		Rooms:    make(map[string]struct{}),
	}
}
