package queryguard

import "strings"

// Suggestions returns optimization hints for a query that already passed
// validation. An empty slice means nothing to flag.
func (g *Gateway) Suggestions(query string) []string {
	upper := strings.ToUpper(query)
	suggestions := []string{}

	if !strings.Contains(upper, "LIMIT") && !strings.Contains(upper, "COUNT") {
		suggestions = append(suggestions, "Consider adding a LIMIT clause to prevent large result sets")
	}
	if strings.Contains(upper, "ORDER BY") && !strings.Contains(upper, "LIMIT") {
		suggestions = append(suggestions, "ORDER BY without LIMIT can be expensive - consider adding LIMIT")
	}
	if !strings.Contains(strings.ToLower(query), "user_id") {
		suggestions = append(suggestions, "Consider adding user_id filter for better data isolation")
	}
	if strings.Count(upper, "MATCH") > 3 {
		suggestions = append(suggestions, "Complex query with multiple MATCH clauses - consider breaking into smaller queries")
	}
	return suggestions
}
