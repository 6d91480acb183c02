package app

import (
	"fmt"
	"regexp"
	"strings"

	"data-extractor/internal/model"
)

const responseFormatName = "DataExtractorResponse"

var whitespaceRun = regexp.MustCompile(`\s+`)

// columnFieldKey derives the output-contract key for a column: the name
// trimmed, lowercased, with internal whitespace runs collapsed to single
// underscores. Blank names fall back to column_<id>.
func columnFieldKey(column model.Column) string {
	name := strings.TrimSpace(column.Name)
	if name == "" {
		return fmt.Sprintf("column_%d", column.ID)
	}
	return strings.ToLower(whitespaceRun.ReplaceAllString(name, "_"))
}

// compileResponseFormat builds the structured-output contract for the
// active columns: one required string property per column, no extras
// allowed. Two columns normalizing to the same key would silently
// overwrite each other in the schema, so that is rejected here.
func compileResponseFormat(columns []model.Column) (map[string]any, error) {
	properties := map[string]any{}
	required := make([]string, 0, len(columns))
	keyOwner := map[string]string{}

	for _, column := range columns {
		key := columnFieldKey(column)
		if owner, exists := keyOwner[key]; exists {
			return nil, fmt.Errorf("%w: %q and %q both normalize to %q", ErrColumnKeyCollision, owner, column.Name, key)
		}
		keyOwner[key] = column.Name

		description := strings.TrimSpace(column.Prompt)
		if description == "" {
			label := column.Name
			if label == "" {
				label = fmt.Sprintf("column %d", column.ID)
			}
			description = "Value extracted for " + label
		}

		properties[key] = map[string]any{
			"type":        "string",
			"description": description,
		}
		required = append(required, key)
	}

	return map[string]any{
		"type": "json_schema",
		"name": responseFormatName,
		"schema": map[string]any{
			"type":                 "object",
			"properties":           properties,
			"required":             required,
			"additionalProperties": false,
		},
	}, nil
}

// compilePrompt renders the extraction instruction: a fixed preamble plus
// one bullet per active column, in column order.
func compilePrompt(columns []model.Column) string {
	lines := []string{
		"You are a document extraction specialist.",
		"Use file_extraction on the attachments, then fill the JSON schema exactly.",
		"Return ONLY the JSON object that satisfies the schema.",
		"Fields to extract:",
	}
	for _, column := range columns {
		name := strings.TrimSpace(column.Name)
		if name == "" {
			name = fmt.Sprintf("Column %d", column.ID)
		}
		description := strings.TrimSpace(column.Prompt)
		if description == "" {
			description = "No description"
		}
		lines = append(lines, fmt.Sprintf("- %s: %s", name, description))
	}
	return strings.Join(lines, "\n")
}
