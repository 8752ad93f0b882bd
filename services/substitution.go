package services

import (
	"regexp"
	"slices"
	"strings"
)

// variablePattern matches {{name}} where name is one or more ASCII word characters.
var variablePattern = regexp.MustCompile(`\{\{(\w+)\}\}`)

// ExtractVariables returns every placeholder name in template, left to right,
// duplicates included.
func ExtractVariables(template string) []string {
	matches := variablePattern.FindAllStringSubmatch(template, -1)
	names := make([]string, 0, len(matches))
	for _, m := range matches {
		names = append(names, m[1])
	}
	return names
}

// Substitute replaces each {{name}} whose name is in variables. Unknown
// placeholders are kept verbatim and reported once per occurrence.
func Substitute(template string, variables map[string]string) (string, []string) {
	if template == "" {
		return template, nil
	}

	var unmatched []string
	var b strings.Builder
	last := 0
	for _, loc := range variablePattern.FindAllStringSubmatchIndex(template, -1) {
		b.WriteString(template[last:loc[0]])
		name := template[loc[2]:loc[3]]
		if value, ok := variables[name]; ok {
			b.WriteString(value)
		} else {
			b.WriteString(template[loc[0]:loc[1]])
			unmatched = append(unmatched, name)
		}
		last = loc[1]
	}
	b.WriteString(template[last:])
	return b.String(), unmatched
}

// SubstituteMap applies Substitute to every value of data. Keys are visited
// in sorted order so the combined unmatched list is deterministic.
func SubstituteMap(data map[string]string, variables map[string]string) (map[string]string, []string) {
	result := make(map[string]string, len(data))
	var unmatched []string

	keys := make([]string, 0, len(data))
	for k := range data {
		keys = append(keys, k)
	}
	slices.Sort(keys)

	for _, k := range keys {
		value, missing := Substitute(data[k], variables)
		result[k] = value
		unmatched = append(unmatched, missing...)
	}
	return result, unmatched
}
