package permission

import (
	"errors"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// ErrInvalidDocument indicates a permission document that cannot be loaded.
var ErrInvalidDocument = errors.New("permission: invalid document")

// document is the on-disk form:
//
//	roles:
//	  admin: ["*"]
//	  user: [retrieve_doc, list_tools]
//	  guest: []
type document struct {
	Roles map[string][]string `yaml:"roles"`
}

// LoadYAML reads a permission map from a YAML document.
func LoadYAML(r io.Reader) (*Map, error) {
	var doc document
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidDocument, err)
	}
	if len(doc.Roles) == 0 {
		return nil, fmt.Errorf("%w: no roles defined", ErrInvalidDocument)
	}
	roles := make(map[Role]ToolSet, len(doc.Roles))
	for name, tools := range doc.Roles {
		if name == "" {
			return nil, fmt.Errorf("%w: empty role name", ErrInvalidDocument)
		}
		roles[Role(name)] = Tools(tools...)
	}
	return NewMap(roles), nil
}

// LoadFile reads a permission map from the YAML file at path.
func LoadFile(path string) (*Map, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("permission: open %s: %w", path, err)
	}
	defer f.Close()
	return LoadYAML(f)
}
