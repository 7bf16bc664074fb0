package detector

import (
	"perpscanner/internal/alert"
)

// Pipeline runs its detectors in a fixed order.
type Pipeline struct {
	cfg       Config
	detectors []Detector
}

func NewPipeline(cfg Config) *Pipeline {
	return &Pipeline{
		cfg:       cfg,
		detectors: []Detector{VolumeSpike, PriceMove, Volatility, Breakout},
	}
}

// Evaluate returns the symbol's alerts in detector order.
func (p *Pipeline) Evaluate(in Input) []alert.Alert {
	var out []alert.Alert
	for _, d := range p.detectors {
		if a, ok := d(in, p.cfg); ok {
			out = append(out, a)
		}
	}
	return out
}
