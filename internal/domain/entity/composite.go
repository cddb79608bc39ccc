package entity

import "image/color"

const (
	DefaultVideoSpacing = 1
	MaxVideoSpacing     = 100
	DefaultJoinSpacing  = 2
	MaxJoinSpacing      = 50
)

// CompositeSpec controls how segments are stacked.
type CompositeSpec struct {
	Spacing    int
	Background color.NRGBA
	// LeadBound keeps only rows [0, LeadBound) of the lead image; 0 keeps it whole.
	LeadBound int
}
