// Package testcases holds the built-in extraction test-case collection.
package testcases

import (
	"strings"

	"github.com/x0rium/llm-structured-output-benchmark/internal/bench"
	"github.com/x0rium/llm-structured-output-benchmark/internal/schema"
)

// Cases returns the benchmark's test-case collection. Every configuration is
// measured against the same fixed collection, in this order.
func Cases() []bench.TestCase {
	return []bench.TestCase{
		{
			Description: "compact contact line",
			Content:     "Meet John, 29yo, john@x.com",
			Validate: func(p *schema.Person) bool {
				return p.Name != nil
			},
		},
		{
			Description: "name and email in prose",
			Content: "For any press inquiries please reach out to Maria Santos, " +
				"our communications lead, at maria.santos@example.org.",
			Validate: func(p *schema.Person) bool {
				return p.Name != nil && p.Email != nil && strings.Contains(*p.Email, "@")
			},
		},
		{
			Description: "age spelled out in words",
			Content: "Daniel Okafor, twenty-nine years old, joined the team last " +
				"spring and can be reached at d.okafor@example.com.",
			Validate: func(p *schema.Person) bool {
				return p.Age != nil && *p.Age == 29
			},
		},
		{
			Description: "obfuscated email address",
			Content: "The maintainer goes by Bob and prefers mail at " +
				"bob dot miller at example dot com. He turned 41 in March.",
		},
		{
			Description: "no contact details present",
			Content: "The quarterly meeting covered budget planning, the office " +
				"move, and the upcoming release schedule. No decisions were " +
				"recorded and the minutes will follow next week.",
		},
		{
			Description: "unicode name with signature block",
			Content: "Best regards,\nZoé Müller-Ávila\nHead of Research\n" +
				"zoe.mueller@example.de\n(she turns 35 this year)",
			Validate: func(p *schema.Person) bool {
				return p.Name != nil && strings.Contains(*p.Name, "Zoé")
			},
		},
	}
}
