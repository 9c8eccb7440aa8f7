package broadcast

// Event tags carried by every [Message].
const (
	// EventData tags a full-history message; Data is []float64 oldest first.
	EventData = "data"

	// EventUpdate tags an incremental update; Data is the newest float64.
	EventUpdate = "update"
)

// Message is a single notification delivered to an observer.
//
// Messages serialize to {"event":"data","data":[...]} or
// {"event":"update","data":v}, which is the wire format of the dashboard.
type Message struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

// HistoryMessage builds a full-history message from a snapshot.
func HistoryMessage(samples []float64) Message {
	return Message{Event: EventData, Data: samples}
}

// UpdateMessage builds an incremental update for a single sample.
func UpdateMessage(value float64) Message {
	return Message{Event: EventUpdate, Data: value}
}
