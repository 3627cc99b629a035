package template

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestGenerator_Generate(t *testing.T) {
	generator := NewGenerator()

	tests := []struct {
		name         string
		templateType TemplateType
		endpointName string
		expectError  bool
		validate     func(*testing.T, *EndpointTemplate)
	}{
		{
			name:         "http_template",
			templateType: TypeHTTP,
			endpointName: "origin",
			validate: func(t *testing.T, tpl *EndpointTemplate) {
				if tpl.Name != "origin" {
					t.Errorf("expected name 'origin', got '%s'", tpl.Name)
				}
				if tpl.Kind != "http" || tpl.Port != 80 || tpl.Scheme != "http" {
					t.Errorf("unexpected template: %+v", tpl)
				}
			},
		},
		{
			name:         "https_template",
			templateType: TypeHTTPS,
			endpointName: "secure",
			validate: func(t *testing.T, tpl *EndpointTemplate) {
				if tpl.Port != 443 || tpl.Scheme != "https" {
					t.Errorf("unexpected template: %+v", tpl)
				}
			},
		},
		{
			name:         "nginx_template",
			templateType: TypeNginx,
			endpointName: "frontdoor",
			validate: func(t *testing.T, tpl *EndpointTemplate) {
				if tpl.Path != "/healthz" {
					t.Errorf("expected health path, got '%s'", tpl.Path)
				}
				if tpl.IntervalSeconds != 30 {
					t.Errorf("expected 30s interval, got %d", tpl.IntervalSeconds)
				}
			},
		},
		{
			name:         "squid_template",
			templateType: TypeSquid,
			endpointName: "edge",
			validate: func(t *testing.T, tpl *EndpointTemplate) {
				if tpl.Kind != "squid" || tpl.Port != 3128 {
					t.Errorf("unexpected template: %+v", tpl)
				}
				if tpl.Scheme != "" {
					t.Errorf("proxies take no scheme, got '%s'", tpl.Scheme)
				}
			},
		},
		{
			name:         "proxy_alias",
			templateType: TypeProxy,
			endpointName: "edge",
			validate: func(t *testing.T, tpl *EndpointTemplate) {
				if tpl.Kind != "squid" {
					t.Errorf("expected squid kind, got '%s'", tpl.Kind)
				}
			},
		},
		{
			name:         "unknown_type",
			templateType: "ftp",
			endpointName: "x",
			expectError:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tpl, err := generator.Generate(tt.templateType, tt.endpointName)
			if tt.expectError {
				if err == nil {
					t.Fatal("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			tt.validate(t, tpl)
		})
	}
}

func TestGenerator_GenerateJSON(t *testing.T) {
	generator := NewGenerator()

	data, err := generator.GenerateJSON(TypeSquid, "edge")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var tpl EndpointTemplate
	if err := json.Unmarshal(data, &tpl); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if tpl.Name != "edge" || tpl.Kind != "squid" {
		t.Errorf("unexpected template: %+v", tpl)
	}
}

func TestGenerator_GenerateTOML(t *testing.T) {
	generator := NewGenerator()

	stanza, err := generator.GenerateTOML(TypeNginx, "frontdoor")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, want := range []string{"[[endpoints]]", `name = "frontdoor"`, `kind = "nginx"`, `interval = "30s"`} {
		if !strings.Contains(stanza, want) {
			t.Errorf("stanza missing %q:\n%s", want, stanza)
		}
	}

	if _, err := generator.GenerateTOML("ftp", "x"); err == nil {
		t.Fatal("expected error for unknown type")
	}
}

func TestSupportedTypes(t *testing.T) {
	types := SupportedTypes()
	if len(types) == 0 {
		t.Fatal("expected supported types")
	}
}
