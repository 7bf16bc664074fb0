package alert

// Aggregator collects one cycle's alerts in arrival order. It performs no
// deduplication: a condition that holds for several cycles alerts every cycle.
// Not safe for concurrent use; a cycle owns its aggregator.
type Aggregator struct {
	alerts []Alert
}

func NewAggregator() *Aggregator {
	return &Aggregator{}
}

func (a *Aggregator) Add(alerts ...Alert) {
	a.alerts = append(a.alerts, alerts...)
}

// Alerts returns a copy of the collected alerts.
func (a *Aggregator) Alerts() []Alert {
	out := make([]Alert, len(a.alerts))
	copy(out, a.alerts)
	return out
}

func (a *Aggregator) Len() int {
	return len(a.alerts)
}

func (a *Aggregator) CountByKind() map[Kind]int {
	counts := make(map[Kind]int, len(Kinds))
	for _, al := range a.alerts {
		counts[al.Kind()]++
	}
	return counts
}
