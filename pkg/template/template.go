// Package template generates ready-to-edit endpoint payloads for the
// common monitoring setups.
package template

import (
	"encoding/json"
	"fmt"
)

// TemplateType represents the type of template to generate
type TemplateType string

const (
	TypeHTTP  TemplateType = "http"
	TypeHTTPS TemplateType = "https"
	TypeNginx TemplateType = "nginx"
	TypeSquid TemplateType = "squid"
	TypeProxy TemplateType = "proxy"
)

// EndpointTemplate is an endpoint payload accepted by the management
// API and the [[endpoints]] config section.
type EndpointTemplate struct {
	Name            string `json:"name"`
	Kind            string `json:"kind"`
	Host            string `json:"host"`
	Port            int    `json:"port"`
	Scheme          string `json:"scheme,omitempty"`
	Path            string `json:"path,omitempty"`
	IntervalSeconds int    `json:"interval_seconds"`
}

// Generator provides template generation functionality
type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate creates an endpoint template for the given type and name.
func (g *Generator) Generate(templateType TemplateType, name string) (*EndpointTemplate, error) {
	switch templateType {
	case TypeHTTP:
		return &EndpointTemplate{
			Name: name, Kind: "http", Host: "example.com",
			Port: 80, Scheme: "http", Path: "/", IntervalSeconds: 60,
		}, nil
	case TypeHTTPS:
		return &EndpointTemplate{
			Name: name, Kind: "http", Host: "example.com",
			Port: 443, Scheme: "https", Path: "/", IntervalSeconds: 60,
		}, nil
	case TypeNginx:
		return &EndpointTemplate{
			Name: name, Kind: "nginx", Host: "example.com",
			Port: 80, Scheme: "http", Path: "/healthz", IntervalSeconds: 30,
		}, nil
	case TypeSquid, TypeProxy:
		return &EndpointTemplate{
			Name: name, Kind: "squid", Host: "10.0.0.2",
			Port: 3128, IntervalSeconds: 60,
		}, nil
	default:
		return nil, fmt.Errorf("unknown template type: %s (supported: http, https, nginx, squid)", templateType)
	}
}

// GenerateJSON creates a JSON representation of the template
func (g *Generator) GenerateJSON(templateType TemplateType, name string) ([]byte, error) {
	tpl, err := g.Generate(templateType, name)
	if err != nil {
		return nil, err
	}
	return json.MarshalIndent(tpl, "", "  ")
}

// GenerateTOML renders the template as an [[endpoints]] config stanza.
func (g *Generator) GenerateTOML(templateType TemplateType, name string) (string, error) {
	tpl, err := g.Generate(templateType, name)
	if err != nil {
		return "", err
	}
	stanza := fmt.Sprintf("[[endpoints]]\nname = %q\nkind = %q\nhost = %q\nport = %d\n",
		tpl.Name, tpl.Kind, tpl.Host, tpl.Port)
	if tpl.Scheme != "" {
		stanza += fmt.Sprintf("scheme = %q\n", tpl.Scheme)
	}
	if tpl.Path != "" {
		stanza += fmt.Sprintf("path = %q\n", tpl.Path)
	}
	stanza += fmt.Sprintf("interval = \"%ds\"\n", tpl.IntervalSeconds)
	return stanza, nil
}

// SupportedTypes lists the template types.
func SupportedTypes() []TemplateType {
	return []TemplateType{TypeHTTP, TypeHTTPS, TypeNginx, TypeSquid}
}
