package codec

import "strings"

// KeywordSeparator joins keywords in the single keywords column.
//
// There is no escaping: a keyword that itself contains a comma is split into
// several keywords on the next read. Existing databases depend on this layout,
// so changing it needs a migration, not a quiet fix here.
const KeywordSeparator = ","

// JoinKeywords marshals a keyword list. Entries are trimmed and blanks dropped;
// a list with nothing left is stored as absent.
func JoinKeywords(keywords []string) *string {
	cleaned := make([]string, 0, len(keywords))
	for _, keyword := range keywords {
		if trimmed := strings.TrimSpace(keyword); trimmed != "" {
			cleaned = append(cleaned, trimmed)
		}
	}
	if len(cleaned) == 0 {
		return nil
	}
	joined := strings.Join(cleaned, KeywordSeparator)
	return &joined
}

// SplitKeywords unmarshals the keywords column: split on commas, trim, drop empties.
// The result is never nil.
func SplitKeywords(raw *string) []string {
	if raw == nil {
		return []string{}
	}
	return ParseKeywordInput(*raw)
}

// ParseKeywordInput applies the read rule to free text typed by a person.
func ParseKeywordInput(raw string) []string {
	keywords := []string{}
	for _, token := range strings.Split(raw, KeywordSeparator) {
		trimmed := strings.TrimSpace(token)
		if trimmed == "" {
			continue
		}
		keywords = append(keywords, trimmed)
	}
	return keywords
}
