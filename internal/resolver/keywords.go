package resolver

import (
	"net/url"
	"strings"

	"github.com/jobradar/harvester/internal/source"
)

// glueKeywords joins the run's keywords per source rules. Order of
// operations is fixed: substitute spaces, then encode, then join.
func glueKeywords(rule source.KeywordRule, keywords []string) string {
	if len(keywords) == 0 {
		return ""
	}
	parts := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		if kw == "" {
			continue
		}
		if rule.SpaceChar != "" {
			kw = strings.ReplaceAll(kw, " ", rule.SpaceChar)
		}
		if rule.Encode {
			kw = url.QueryEscape(kw)
		}
		parts = append(parts, kw)
	}
	separator := rule.Separator
	if separator == "" {
		separator = " "
	}
	return strings.Join(parts, separator)
}
