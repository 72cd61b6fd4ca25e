package events

// Kind represents a kind of backend event
type Kind int

// kinds
const (
	KindUnknown Kind = iota // fallback for anything not listed below
	KindSearchStarted
	KindSearchCompleted
	KindSearchStopped
	KindSearchError
	KindRentalBooked
	KindRentalCancelled
	KindRentalTripStarted
	KindRentalTripEnded
	KindRentalExtended
	KindRentalTransferred
	KindOptimizationSwap
)

// event type names
var kindNames = map[Kind]string{
	KindSearchStarted:     "search.started",
	KindSearchCompleted:   "search.completed",
	KindSearchStopped:     "search.stopped",
	KindSearchError:       "search.error",
	KindRentalBooked:      "rental.booked",
	KindRentalCancelled:   "rental.cancelled",
	KindRentalTripStarted: "rental.trip_started",
	KindRentalTripEnded:   "rental.trip_ended",
	KindRentalExtended:    "rental.extended",
	KindRentalTransferred: "rental.transferred",
	KindOptimizationSwap:  "optimization.swap",
}

var kindsByName = func() map[string]Kind {
	m := make(map[string]Kind, len(kindNames)+1)
	for k, name := range kindNames {
		m[name] = k
	}
	m["rental.created"] = KindRentalBooked
	return m
}()

// ParseKind returns the Kind of the given event type, KindUnknown if it isn't a known one
func ParseKind(eventType string) Kind {
	return kindsByName[eventType]
}

// String returns the canonical event type of the Kind
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Types returns the canonical event types of all the known kinds, in declaration order
func Types() []string {
	types := make([]string, 0, len(kindNames))
	for k := KindSearchStarted; k <= KindOptimizationSwap; k++ {
		types = append(types, k.String())
	}
	return types
}
