package app

import (
	"errors"
	"strings"
	"testing"

	"data-extractor/internal/model"
)

func TestColumnFieldKey(t *testing.T) {
	cases := []struct {
		name   string
		column model.Column
		want   string
	}{
		{"simple", model.Column{ID: 1, Name: "Invoice Number"}, "invoice_number"},
		{"trims", model.Column{ID: 1, Name: "  Total Amount  "}, "total_amount"},
		{"collapses runs", model.Column{ID: 1, Name: "Due \t  Date"}, "due_date"},
		{"lowercases", model.Column{ID: 1, Name: "VAT"}, "vat"},
		{"blank name", model.Column{ID: 7, Name: "   "}, "column_7"},
		{"empty name", model.Column{ID: 3}, "column_3"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := columnFieldKey(tc.column); got != tc.want {
				t.Fatalf("key=%q, want %q", got, tc.want)
			}
		})
	}
}

func TestCompileResponseFormat(t *testing.T) {
	columns := []model.Column{
		{ID: 1, Name: "Invoice Number", Prompt: "Find the invoice number"},
		{ID: 2, Name: "", Prompt: "Find the total"},
	}

	format, err := compileResponseFormat(columns)
	if err != nil {
		t.Fatalf("compileResponseFormat: %v", err)
	}

	if format["type"] != "json_schema" {
		t.Fatalf("type=%v", format["type"])
	}
	if format["name"] != "DataExtractorResponse" {
		t.Fatalf("name=%v", format["name"])
	}

	schema := format["schema"].(map[string]any)
	if schema["additionalProperties"] != false {
		t.Fatalf("additionalProperties=%v", schema["additionalProperties"])
	}

	properties := schema["properties"].(map[string]any)
	if len(properties) != 2 {
		t.Fatalf("properties=%d", len(properties))
	}
	invoice := properties["invoice_number"].(map[string]any)
	if invoice["type"] != "string" {
		t.Fatalf("invoice type=%v", invoice["type"])
	}
	if invoice["description"] != "Find the invoice number" {
		t.Fatalf("invoice description=%v", invoice["description"])
	}
	if _, ok := properties["column_2"]; !ok {
		t.Fatalf("blank-name column missing fallback key, properties=%v", properties)
	}

	required := schema["required"].([]string)
	if len(required) != 2 || required[0] != "invoice_number" || required[1] != "column_2" {
		t.Fatalf("required=%v", required)
	}
}

func TestCompileResponseFormatDescriptionFallback(t *testing.T) {
	format, err := compileResponseFormat([]model.Column{{ID: 4, Name: "Vendor", Prompt: "   "}})
	if err != nil {
		t.Fatalf("compileResponseFormat: %v", err)
	}
	properties := format["schema"].(map[string]any)["properties"].(map[string]any)
	vendor := properties["vendor"].(map[string]any)
	if vendor["description"] != "Value extracted for Vendor" {
		t.Fatalf("description=%v", vendor["description"])
	}

	format, err = compileResponseFormat([]model.Column{{ID: 4, Name: "", Prompt: " "}})
	if err != nil {
		t.Fatalf("compileResponseFormat: %v", err)
	}
	properties = format["schema"].(map[string]any)["properties"].(map[string]any)
	fallback := properties["column_4"].(map[string]any)
	if fallback["description"] != "Value extracted for column 4" {
		t.Fatalf("description=%v", fallback["description"])
	}
}

func TestCompileResponseFormatKeyCollision(t *testing.T) {
	_, err := compileResponseFormat([]model.Column{
		{ID: 1, Name: "Invoice Number", Prompt: "a"},
		{ID: 2, Name: " invoice  NUMBER ", Prompt: "b"},
	})
	if !errors.Is(err, ErrColumnKeyCollision) {
		t.Fatalf("err=%v, want ErrColumnKeyCollision", err)
	}
	if !strings.Contains(err.Error(), `"invoice_number"`) {
		t.Fatalf("err=%v, want colliding key in message", err)
	}
}

func TestCompilePrompt(t *testing.T) {
	prompt := compilePrompt([]model.Column{
		{ID: 1, Name: "Invoice Number", Prompt: "Find the invoice number"},
		{ID: 2, Name: "  ", Prompt: " \t"},
	})

	lines := strings.Split(prompt, "\n")
	if lines[0] != "You are a document extraction specialist." {
		t.Fatalf("preamble=%q", lines[0])
	}
	if lines[3] != "Fields to extract:" {
		t.Fatalf("header=%q", lines[3])
	}
	if lines[4] != "- Invoice Number: Find the invoice number" {
		t.Fatalf("bullet=%q", lines[4])
	}
	if lines[5] != "- Column 2: No description" {
		t.Fatalf("fallback bullet=%q", lines[5])
	}
}
