package events

const (
	TopicLease = "dhclient:events:lease"
	TopicState = "dhclient:events:state"
)
