// Package compose rewrites docker-compose documents so that one of their
// services is routed by traefik.
//
// Documents are edited as yaml.Node trees: key order, quoting and comments
// written by the user survive a rewrite.
package compose

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/kan/routeadd/internal/fileutil"
)

// Document is a parsed compose file
type Document struct {
	Path string

	raw  []byte
	root *yaml.Node // document node
	top  *yaml.Node // top-level mapping
}

// Load reads and validates the compose file at path
func Load(path string) (*Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &MissingFileError{Path: path}
		}
		return nil, fmt.Errorf("failed to read compose file: %w", err)
	}

	doc, err := Parse(data)
	if err != nil {
		var schemaErr *SchemaError
		if errors.As(err, &schemaErr) {
			schemaErr.Path = path
		}
		return nil, err
	}
	doc.Path = path
	return doc, nil
}

// Parse validates a compose document held in memory. The document must be a
// mapping whose "services" key holds at least one service.
func Parse(data []byte) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, &SchemaError{Reason: "malformed YAML", Err: err}
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, &SchemaError{Reason: "document is empty"}
	}

	top := resolve(root.Content[0])
	if top.Kind != yaml.MappingNode {
		return nil, &SchemaError{Reason: "top level is not a mapping"}
	}

	services := resolve(mappingValue(top, "services"))
	if services == nil {
		return nil, &SchemaError{Reason: "no 'services' in document"}
	}
	if services.Kind != yaml.MappingNode {
		return nil, &SchemaError{Reason: "'services' is not a mapping"}
	}
	if len(mappingKeys(services)) == 0 {
		return nil, &SchemaError{Reason: "no services declared"}
	}

	return &Document{
		raw:  data,
		root: &root,
		top:  top,
	}, nil
}

// Original returns the bytes the document was parsed from
func (d *Document) Original() []byte {
	return d.raw
}

// ServiceNames returns the declared service names in document order
func (d *Document) ServiceNames() []string {
	return mappingKeys(d.services())
}

func (d *Document) services() *yaml.Node {
	return resolve(mappingValue(d.top, "services"))
}

// service returns the definition of the named service, ready to be edited
func (d *Document) service(name string) (*yaml.Node, error) {
	services := d.services()
	svc := ownValue(services, name)
	if svc == nil {
		return nil, &SchemaError{Path: d.Path, Reason: fmt.Sprintf("service %q not found", name)}
	}
	if svc.Kind != yaml.MappingNode {
		return nil, &SchemaError{Path: d.Path, Reason: fmt.Sprintf("service %q is not a mapping", name)}
	}
	return svc, nil
}

// ServiceLabels returns the normalized labels of the named service
func (d *Document) ServiceLabels(name string) ([]string, error) {
	svc, err := d.service(name)
	if err != nil {
		return nil, err
	}
	labels, err := ReadLabels(lookup(svc, "labels"))
	if err != nil {
		return nil, d.schemaError(err)
	}
	return labels.Normalize(), nil
}

// ServicePorts returns the string form of every ports entry of the named service
func (d *Document) ServicePorts(name string) ([]string, error) {
	svc, err := d.service(name)
	if err != nil {
		return nil, err
	}
	return portEntries(lookup(svc, "ports")), nil
}

// ServiceNetworks returns the networks the named service joins
func (d *Document) ServiceNetworks(name string) ([]string, error) {
	svc, err := d.service(name)
	if err != nil {
		return nil, err
	}
	names, err := NetworkNames(lookup(svc, "networks"))
	if err != nil {
		return nil, &SchemaError{Path: d.Path, Reason: fmt.Sprintf("service %q: %v", name, err)}
	}
	return names, nil
}

// Render serializes the document. Collections are written in block style
// and keys keep the order they were authored in.
func (d *Document) Render() ([]byte, error) {
	blockStyle(d.root)
	untagMergeKeys(d.root)

	var buf bytes.Buffer
	encoder := yaml.NewEncoder(&buf)
	encoder.SetIndent(2)
	if err := encoder.Encode(d.root); err != nil {
		return nil, fmt.Errorf("failed to encode compose file: %w", err)
	}
	if err := encoder.Close(); err != nil {
		return nil, fmt.Errorf("failed to encode compose file: %w", err)
	}
	return buf.Bytes(), nil
}

// Save renders the document and replaces the file at d.Path with it
func (d *Document) Save() error {
	data, err := d.Render()
	if err != nil {
		return err
	}
	if err := fileutil.WriteFile(d.Path, data, 0644); err != nil {
		return fmt.Errorf("failed to write compose file: %w", err)
	}
	d.raw = data
	return nil
}

func (d *Document) schemaError(err error) error {
	var schemaErr *SchemaError
	if errors.As(err, &schemaErr) && schemaErr.Path == "" {
		schemaErr.Path = d.Path
	}
	return err
}
