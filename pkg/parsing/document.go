package parsing

import (
	"bufio"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/leapstack-labs/leapmapper/pkg/core"
	"gopkg.in/yaml.v3"
)

// Format is the surface syntax of a description.
type Format int

const (
	// FormatAuto sniffs the first significant byte: '<' means XML.
	FormatAuto Format = iota
	// FormatXML is the element/attribute form.
	FormatXML
	// FormatYAML maps elements to mappings and attributes to scalars.
	FormatYAML
)

// bodyKey holds text or mixed content in the YAML form.
const bodyKey = "_body"

// ParseFormat parses auto, xml or yaml.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(s) {
	case "", "auto":
		return FormatAuto, nil
	case "xml":
		return FormatXML, nil
	case "yaml", "yml":
		return FormatYAML, nil
	}
	return FormatAuto, fmt.Errorf("unknown description format %q (expected auto, xml or yaml)", s)
}

func (f Format) String() string {
	switch f {
	case FormatXML:
		return "xml"
	case FormatYAML:
		return "yaml"
	default:
		return "auto"
	}
}

// Document is a decoded description together with its variable context.
type Document struct {
	root *Node
	vars *Variables
}

// Decode reads a whole description from r.
func Decode(r io.Reader, format Format, vars core.Properties) (*Document, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read description: %w", err)
	}
	if format == FormatAuto {
		format = sniff(data)
	}

	v := NewVariables(vars)
	var root *Node
	switch format {
	case FormatXML:
		root, err = decodeXML(data, v)
	default:
		root, err = decodeYAML(data, v)
	}
	if err != nil {
		return nil, err
	}
	return &Document{root: root, vars: v}, nil
}

// Root returns the root element, failing when its name differs from name.
func (d *Document) Root(name string) (*Node, error) {
	if d.root == nil || d.root.name != name {
		found := "nothing"
		if d.root != nil {
			found = "<" + d.root.name + ">"
		}
		return nil, fmt.Errorf("expected root element <%s>, found %s", name, found)
	}
	return d.root, nil
}

// SetVariables replaces the substitution context for all later reads.
func (d *Document) SetVariables(props core.Properties) { d.vars.Set(props) }

// Variables returns a copy of the current substitution context.
func (d *Document) Variables() core.Properties { return d.vars.Properties() }

func sniff(data []byte) Format {
	sc := bufio.NewScanner(bytes.NewReader(data))
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, "<") {
			return FormatXML
		}
		return FormatYAML
	}
	return FormatYAML
}

func decodeXML(data []byte, vars *Variables) (*Node, error) {
	dec := xml.NewDecoder(bytes.NewReader(data))
	var stack []*Node
	var root *Node
	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to decode XML description: %w", err)
		}
		switch t := tok.(type) {
		case xml.StartElement:
			n := newElement(t.Name.Local, vars)
			for _, a := range t.Attr {
				n.setAttr(a.Name.Local, a.Value)
			}
			if len(stack) == 0 {
				if root != nil {
					return nil, fmt.Errorf("failed to decode XML description: multiple root elements")
				}
				root = n
			} else {
				stack[len(stack)-1].appendChild(n)
			}
			stack = append(stack, n)
		case xml.EndElement:
			stack = stack[:len(stack)-1]
		case xml.CharData:
			if len(stack) > 0 {
				stack[len(stack)-1].appendChild(newText(string(t), vars))
			}
		}
	}
	if root == nil {
		return nil, fmt.Errorf("failed to decode XML description: no root element")
	}
	return root, nil
}

func decodeYAML(data []byte, vars *Variables) (*Node, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("failed to decode YAML description: %w", err)
	}
	if doc.Kind != yaml.DocumentNode || len(doc.Content) == 0 {
		return nil, fmt.Errorf("failed to decode YAML description: empty document")
	}
	top := resolveAlias(doc.Content[0])
	if top.Kind != yaml.MappingNode || len(top.Content) != 2 {
		return nil, fmt.Errorf("failed to decode YAML description: expected a single root key")
	}
	return yamlElement(top.Content[0].Value, top.Content[1], vars)
}

func resolveAlias(n *yaml.Node) *yaml.Node {
	for n != nil && n.Kind == yaml.AliasNode {
		n = n.Alias
	}
	return n
}

func yamlElement(name string, value *yaml.Node, vars *Variables) (*Node, error) {
	el := newElement(name, vars)
	value = resolveAlias(value)
	switch value.Kind {
	case yaml.ScalarNode:
		if value.Tag != "!!null" && value.Value != "" {
			el.appendChild(newText(value.Value, vars))
		}
		return el, nil
	case yaml.SequenceNode:
		return nil, fmt.Errorf("line %d: element %q cannot be a sequence at this position", value.Line, name)
	case yaml.MappingNode:
	default:
		return el, nil
	}

	for i := 0; i+1 < len(value.Content); i += 2 {
		key := value.Content[i].Value
		v := resolveAlias(value.Content[i+1])
		if key == bodyKey {
			if err := yamlBody(el, v, vars); err != nil {
				return nil, err
			}
			continue
		}
		switch v.Kind {
		case yaml.ScalarNode:
			if v.Tag == "!!null" {
				el.appendChild(newElement(key, vars))
				continue
			}
			el.setAttr(key, v.Value)
		case yaml.MappingNode:
			child, err := yamlElement(key, v, vars)
			if err != nil {
				return nil, err
			}
			el.appendChild(child)
		case yaml.SequenceNode:
			for _, item := range v.Content {
				child, err := yamlElement(key, item, vars)
				if err != nil {
					return nil, err
				}
				el.appendChild(child)
			}
		}
	}
	return el, nil
}

func yamlBody(el *Node, v *yaml.Node, vars *Variables) error {
	switch v.Kind {
	case yaml.ScalarNode:
		el.appendChild(newText(v.Value, vars))
	case yaml.SequenceNode:
		for _, item := range v.Content {
			item = resolveAlias(item)
			switch item.Kind {
			case yaml.ScalarNode:
				el.appendChild(newText(item.Value, vars))
			case yaml.MappingNode:
				if len(item.Content) != 2 {
					return fmt.Errorf("line %d: mixed content items must have exactly one key", item.Line)
				}
				child, err := yamlElement(item.Content[0].Value, item.Content[1], vars)
				if err != nil {
					return err
				}
				el.appendChild(child)
			default:
				return fmt.Errorf("line %d: unsupported mixed content item", item.Line)
			}
		}
	default:
		return fmt.Errorf("line %d: %s must be text or a sequence", v.Line, bodyKey)
	}
	return nil
}
