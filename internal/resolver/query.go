package resolver

import (
	"fmt"
	"strings"

	"github.com/vijay-prabhu/mailcode/internal/config"
)

// BuildQuery renders the Gmail search for messages sent to alias:
//
//	(from:a OR from:b) (to:"alias" OR deliveredto:"alias") subject:("k1" OR "k2") newer_than:2d
func BuildQuery(cfg config.SearchConfig, alias string) string {
	alias = strings.ReplaceAll(alias, `"`, "")

	var parts []string

	if len(cfg.Senders) > 0 {
		from := make([]string, len(cfg.Senders))
		for i, s := range cfg.Senders {
			from[i] = "from:" + s
		}
		parts = append(parts, "("+strings.Join(from, " OR ")+")")
	}

	parts = append(parts, fmt.Sprintf(`(to:"%s" OR deliveredto:"%s")`, alias, alias))

	if len(cfg.SubjectKeywords) > 0 {
		subjects := make([]string, len(cfg.SubjectKeywords))
		for i, k := range cfg.SubjectKeywords {
			subjects[i] = `"` + strings.ReplaceAll(k, `"`, "") + `"`
		}
		parts = append(parts, "subject:("+strings.Join(subjects, " OR ")+")")
	}

	if cfg.NewerThanDays > 0 {
		parts = append(parts, fmt.Sprintf("newer_than:%dd", cfg.NewerThanDays))
	}

	return strings.Join(parts, " ")
}
