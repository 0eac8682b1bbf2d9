package model

import (
	"errors"
	"strings"
	"testing"
)

func TestTechnology_String_ReturnsName(t *testing.T) {
	tech := &Technology{Name: "Django", Description: "Django Web Framework"}
	if tech.String() != "Django" {
		t.Errorf("String() = %q, want %q", tech.String(), "Django")
	}
}

func TestTechnology_FieldMetadata(t *testing.T) {
	if TechnologyNameMaxLength != 30 {
		t.Errorf("TechnologyNameMaxLength = %d, want 30", TechnologyNameMaxLength)
	}
	if TechnologyNameHelpText != "Enter the name of the technology." {
		t.Errorf("TechnologyNameHelpText = %q", TechnologyNameHelpText)
	}
	if TechnologyDescriptionHelpText != "Enter a description of the technology." {
		t.Errorf("TechnologyDescriptionHelpText = %q", TechnologyDescriptionHelpText)
	}
	if TechnologyVerboseNamePlural != "technologies" {
		t.Errorf("TechnologyVerboseNamePlural = %q", TechnologyVerboseNamePlural)
	}
}

func TestTechnology_Validate(t *testing.T) {
	tests := []struct {
		name      string
		tech      Technology
		wantField string
	}{
		{name: "有効", tech: Technology{Name: "Django", Description: "Django Web Framework"}},
		{name: "30文字は有効", tech: Technology{Name: strings.Repeat("x", 30), Description: "d"}},
		{name: "31文字は無効", tech: Technology{Name: strings.Repeat("x", 31), Description: "d"}, wantField: "name"},
		{name: "名前空は無効", tech: Technology{Name: "", Description: "d"}, wantField: "name"},
		{name: "説明空は無効", tech: Technology{Name: "Go", Description: ""}, wantField: "description"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.tech.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() returned error: %v", err)
				}
				return
			}
			var apiErr *APIError
			if !errors.As(err, &apiErr) {
				t.Fatalf("expected *APIError, got %v", err)
			}
			if !strings.HasPrefix(apiErr.Message, tt.wantField+":") {
				t.Errorf("Message = %q, want prefix %q", apiErr.Message, tt.wantField+":")
			}
		})
	}
}
