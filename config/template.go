package config

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cpcf/kiln/tree"
	"github.com/cpcf/kiln/vars"
)

// TemplateFiles lists the schema file names looked up at the root of a
// template source, in order of preference. JSON is valid YAML, so all of
// them are parsed with the YAML decoder, which keeps key order.
var TemplateFiles = []string{"kiln.yaml", "kiln.yml", "kiln.json", "cookiecutter.json"}

var ErrNoTemplateConfig = errors.New("no template configuration file")

// Template is the content of a template's schema file.
//
// The structured form is
//
//	variables:
//	  project_name: My Project
//	  use_docker: true
//	when:
//	  Dockerfile: use_docker
//	copy_without_render:
//	  - "*.png"
//
// A flat mapping is also accepted, in which case every key is a variable
// except those starting with an underscore: _when and _copy_without_render.
type Template struct {
	Variables         *vars.Schema
	When              map[string]string
	CopyWithoutRender []string
}

type structuredTemplate struct {
	Variables         *vars.Schema      `yaml:"variables"`
	When              map[string]string `yaml:"when"`
	CopyWithoutRender []string          `yaml:"copy_without_render"`
}

func (t *Template) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind != yaml.MappingNode {
		return fmt.Errorf("line %d: template configuration must be a mapping", node.Line)
	}

	if hasKey(node, "variables") {
		var st structuredTemplate
		if err := node.Decode(&st); err != nil {
			return err
		}
		*t = Template{Variables: st.Variables, When: st.When, CopyWithoutRender: st.CopyWithoutRender}
		return nil
	}

	varsNode := &yaml.Node{Kind: yaml.MappingNode, Tag: "!!map", Line: node.Line}
	*t = Template{}
	for i := 0; i+1 < len(node.Content); i += 2 {
		key, val := node.Content[i], node.Content[i+1]
		switch {
		case key.Value == "_when":
			if err := val.Decode(&t.When); err != nil {
				return err
			}
		case key.Value == "_copy_without_render":
			if err := val.Decode(&t.CopyWithoutRender); err != nil {
				return err
			}
		case strings.HasPrefix(key.Value, "_"):
			// Other private keys belong to other tools.
		default:
			varsNode.Content = append(varsNode.Content, key, val)
		}
	}
	var schema vars.Schema
	if err := varsNode.Decode(&schema); err != nil {
		return err
	}
	t.Variables = &schema
	return nil
}

func hasKey(node *yaml.Node, name string) bool {
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == name {
			return true
		}
	}
	return false
}

func (t *Template) Validate() error {
	if t.Variables == nil {
		t.Variables = vars.MustSchema()
	}
	for p, expr := range t.When {
		if path.Clean(p) != p || strings.HasPrefix(p, "/") {
			return fmt.Errorf("when: %q must be a clean relative path", p)
		}
		if _, err := tree.ParsePredicate(expr); err != nil {
			return fmt.Errorf("when %s: %w", p, err)
		}
	}
	for _, pattern := range t.CopyWithoutRender {
		if _, err := path.Match(pattern, ""); err != nil {
			return fmt.Errorf("copy_without_render %q: %w", pattern, err)
		}
	}
	return nil
}

// TreeOptions returns the tree loading options this configuration implies.
func (t *Template) TreeOptions() tree.Options {
	return tree.Options{When: t.When, CopyWithoutRender: t.CopyWithoutRender}
}

// LoadTemplate reads the first schema file found at the root of fsys. It
// returns the file name it used.
func LoadTemplate(fsys fs.FS) (*Template, string, error) {
	for _, name := range TemplateFiles {
		if _, err := fs.Stat(fsys, name); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return nil, "", err
		}
		var t Template
		if err := LoadYAMLFS(fsys, name, &t); err != nil {
			return nil, "", err
		}
		return &t, name, nil
	}
	return nil, "", fmt.Errorf("%w: looked for %s", ErrNoTemplateConfig, strings.Join(TemplateFiles, ", "))
}
