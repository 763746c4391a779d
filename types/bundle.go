package types

// ChartKind names one of the chart artifacts produced for a query.
type ChartKind string

// Chart kinds served by the service.
const (
	ChartFlows    ChartKind = "Flows"
	ChartBalances ChartKind = "Balances"
)

// ChartKinds lists the charts fetched during hydration, in display order.
var ChartKinds = []ChartKind{ChartFlows, ChartBalances}

// ResultBundle is the assembled result of one completed query.
// A bundle belongs to exactly one QueryKey and is never merged across queries.
type ResultBundle struct {
	Key QueryKey `json:"key" yaml:"key"`
	// Dialog is the raw transcript text.
	Dialog string `json:"dialog" yaml:"dialog"`
	// Turns is Dialog parsed into attributed turns.
	Turns []Turn `json:"turns" yaml:"turns"`
	// Inputs is the structured model-input record; nil when absent.
	Inputs map[string]any `json:"inputs,omitempty" yaml:"inputs,omitempty"`
	// Charts holds chart bytes by kind; a missing key means the chart is absent.
	Charts map[ChartKind][]byte `json:"-" yaml:"-"`
}

// Chart returns the bytes of a chart and whether it is present.
func (b *ResultBundle) Chart(kind ChartKind) ([]byte, bool) {
	if b == nil || b.Charts == nil {
		return nil, false
	}
	data, ok := b.Charts[kind]
	return data, ok
}

// HasInputs reports whether structured inputs were fetched.
func (b *ResultBundle) HasInputs() bool {
	return b != nil && b.Inputs != nil
}

// LastAgentTurn returns the final agent turn of the transcript, if any.
func (b *ResultBundle) LastAgentTurn() (Turn, bool) {
	if b == nil {
		return Turn{}, false
	}
	for i := len(b.Turns) - 1; i >= 0; i-- {
		if b.Turns[i].Speaker == SpeakerAgent {
			return b.Turns[i], true
		}
	}
	return Turn{}, false
}
