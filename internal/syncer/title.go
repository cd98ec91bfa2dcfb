package syncer

import (
	"sort"

	"notioncal/internal/models"
)

// UntitledEvent is used when neither side has a usable title.
const UntitledEvent = "Untitled Event"

// titleStrategy picks a title out of a property bag, or returns "".
type titleStrategy func(props map[string]models.Property) string

// TitlePolicy extracts a display title from record properties. Both sync
// directions must use the same policy, otherwise titles flap between runs.
type TitlePolicy struct {
	strategies []titleStrategy
}

// NewTitlePolicy returns the policy that prefers the title property named
// canonical, then any title property in name order, then UntitledEvent.
func NewTitlePolicy(canonical string) *TitlePolicy {
	return &TitlePolicy{strategies: []titleStrategy{
		byName(canonical),
		byType(models.PropertyTitle),
	}}
}

func byName(name string) titleStrategy {
	return func(props map[string]models.Property) string {
		p, ok := props[name]
		if !ok || p.Type != models.PropertyTitle {
			return ""
		}
		return p.Text
	}
}

func byType(typ string) titleStrategy {
	return func(props map[string]models.Property) string {
		names := make([]string, 0, len(props))
		for name := range props {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			if p := props[name]; p.Type == typ && p.Text != "" {
				return p.Text
			}
		}
		return ""
	}
}

// RecordTitle returns the record's title.
func (p *TitlePolicy) RecordTitle(rec *models.Record) string {
	for _, s := range p.strategies {
		if title := s(rec.Properties); title != "" {
			return title
		}
	}
	return UntitledEvent
}

// EventTitle returns the event's title normalized the same way.
func (p *TitlePolicy) EventTitle(ev *models.Event) string {
	if ev.Title == "" {
		return UntitledEvent
	}
	return ev.Title
}
