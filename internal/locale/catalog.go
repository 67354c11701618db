// Package locale resolves human-readable notification strings. The engine
// passes opaque keys and arguments; real deployments swap in the external
// localization service behind the same interface.
package locale

import (
	"fmt"

	"chrona/internal/notification"
)

// DefaultLocale is used when a recipient has no locale preference.
const DefaultLocale = "en"

type template struct {
	title string
	body  string
}

// StaticCatalog is a map-backed Catalog. Missing locales fall back to the
// default locale; missing keys fall back to the raw type name so a catalog gap
// never blocks delivery.
type StaticCatalog struct {
	templates map[string]map[notification.Type]template
}

// NewStaticCatalog builds the built-in English catalog.
func NewStaticCatalog() *StaticCatalog {
	return &StaticCatalog{
		templates: map[string]map[notification.Type]template{
			DefaultLocale: {
				notification.TypeLeaveApproved:      {"Leave request approved", "Your leave request %s was approved."},
				notification.TypeLeaveRejected:      {"Leave request rejected", "Your leave request %s was rejected."},
				notification.TypeLeaveCancelled:     {"Leave request cancelled", "Leave request %s was cancelled by its owner."},
				notification.TypeAttendanceApproved: {"Attendance record approved", "Your attendance record %s was approved."},
				notification.TypeAttendanceRejected: {"Attendance record rejected", "Your attendance record %s was rejected."},
				notification.TypeAttendanceFlagged:  {"Attendance record flagged", "Attendance record %s needs your review."},
				notification.TypeApprovalRequested:  {"Approval requested", "A new request %s is waiting for your approval."},
			},
		},
	}
}

// AddLocale registers templates for another locale.
func (c *StaticCatalog) AddLocale(locale string, entries map[notification.Type][2]string) {
	bucket := make(map[notification.Type]template, len(entries))
	for typ, pair := range entries {
		bucket[typ] = template{title: pair[0], body: pair[1]}
	}
	c.templates[locale] = bucket
}

func (c *StaticCatalog) Render(typ notification.Type, locale string, args ...any) (string, string) {
	bucket, ok := c.templates[locale]
	if !ok {
		bucket = c.templates[DefaultLocale]
	}
	tmpl, ok := bucket[typ]
	if !ok {
		tmpl, ok = c.templates[DefaultLocale][typ]
		if !ok {
			return string(typ), string(typ)
		}
	}
	return tmpl.title, fmt.Sprintf(tmpl.body, args...)
}
