package events

type Handler func(Event)

type Subscription interface {
	Unsubscribe()
}

type Stats struct {
	Published   uint64         `json:"published" yaml:"published"`
	Dropped     uint64         `json:"dropped" yaml:"dropped"`
	Subscribers map[string]int `json:"subscribers" yaml:"subscribers"`
}

// Bus delivers events asynchronously. Each subscriber sees the events of a
// topic in publish order.
type Bus interface {
	Publish(topic string, event Event)
	Subscribe(topic string, handler Handler) Subscription
	Stats() Stats
	Close() error
}
