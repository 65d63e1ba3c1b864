// Package project defines the render descriptor consumed by the assembly
// pipeline. Descriptors are produced by the marking tool; this package only
// reads them.
package project

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Clip is one annotated source clip. Marker coordinates and radius are in
// proxy pixel space, not source pixel space.
type Clip struct {
	Source    string  `yaml:"source"`
	Proxy     string  `yaml:"proxy,omitempty"`
	MarkerX   int     `yaml:"marker_x"`
	MarkerY   int     `yaml:"marker_y"`
	Radius    int     `yaml:"radius"`
	StartTrim float64 `yaml:"start_trim"`
	EndTrim   float64 `yaml:"end_trim"`

	// Exactly one of these identifies the spot moment
	SpotTime  *float64 `yaml:"spot_time,omitempty"`
	SpotFrame *int     `yaml:"spot_frame,omitempty"`
}

// Project is an ordered clip list plus slate settings. Meta is opaque and
// forwarded untouched to the slate provider.
type Project struct {
	Title string         `yaml:"title"`
	Slate bool           `yaml:"slate"`
	Meta  map[string]any `yaml:"meta,omitempty"`
	Clips []Clip         `yaml:"clips"`
}

// Load reads and validates a project descriptor
func Load(path string) (*Project, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading project descriptor: %w", err)
	}

	var p Project
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing project descriptor: %w", err)
	}

	if err := p.Validate(); err != nil {
		return nil, err
	}

	return &p, nil
}

// Validate checks structural invariants of the descriptor
func (p *Project) Validate() error {
	if len(p.Clips) == 0 {
		return fmt.Errorf("project has no clips")
	}

	for i, c := range p.Clips {
		if c.Source == "" {
			return fmt.Errorf("clip %d: source path is required", i)
		}
		if c.StartTrim < 0 {
			return fmt.Errorf("clip %d: start_trim cannot be negative", i)
		}
		if c.EndTrim < 0 {
			return fmt.Errorf("clip %d: end_trim cannot be negative", i)
		}
		if c.Radius <= 0 {
			return fmt.Errorf("clip %d: radius must be positive", i)
		}
		if c.SpotTime == nil && c.SpotFrame == nil {
			return fmt.Errorf("clip %d: either spot_time or spot_frame is required", i)
		}
		if c.SpotTime != nil && c.SpotFrame != nil {
			return fmt.Errorf("clip %d: spot_time and spot_frame are mutually exclusive", i)
		}
	}

	return nil
}
