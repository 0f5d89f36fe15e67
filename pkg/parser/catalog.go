package parser

import (
	"bytes"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/kondukto-io/portguard/internal/core/domain"
)

// catalogFile is the layout of a catalog import file
type catalogFile struct {
	Ports []domain.PortInfo `yaml:"ports"`
}

// ParseCatalog reads catalog entries from YAML or JSON. The document is
// either a list of entries or a mapping with a "ports" list.
func ParseCatalog(r io.Reader) ([]domain.PortInfo, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	var node yaml.Node
	if err := yaml.Unmarshal(data, &node); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}

	if len(node.Content) == 0 {
		return nil, nil
	}

	var entries []domain.PortInfo
	switch node.Content[0].Kind {
	case yaml.SequenceNode:
		err = yaml.NewDecoder(bytes.NewReader(data)).Decode(&entries)
	case yaml.MappingNode:
		var file catalogFile
		err = yaml.NewDecoder(bytes.NewReader(data)).Decode(&file)
		entries = file.Ports
	default:
		return nil, fmt.Errorf("unexpected catalog document")
	}

	if err != nil {
		return nil, fmt.Errorf("failed to decode catalog: %w", err)
	}

	for i := range entries {
		if entries[i].Protocol == "" {
			continue
		}

		proto, err := domain.ParseProtocol(string(entries[i].Protocol))
		if err != nil {
			return nil, fmt.Errorf("entry %d: %w", i, err)
		}
		entries[i].Protocol = proto
	}

	return entries, nil
}
