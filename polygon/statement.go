package polygon

import "sort"

// pickStatement selects the statement to migrate: english when the
// authors wrote one, otherwise the alphabetically first language so
// that repeated runs pick the same one.
func pickStatement(statements map[string]statementPayload) (string, statementPayload) {
	if stmt, ok := statements["english"]; ok {
		return "english", stmt
	}
	langs := make([]string, 0, len(statements))
	for lang := range statements {
		langs = append(langs, lang)
	}
	sort.Strings(langs)
	if len(langs) == 0 {
		return "", statementPayload{}
	}
	return langs[0], statements[langs[0]]
}
