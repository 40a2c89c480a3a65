// Package delfconfig decodes the YAML schema and config documents
// described in spec.md §6 into the plain schemabuild doc structs.
// Decoding lives here, deliberately outside internal/schemabuild, so
// the core graph-construction code never depends on a YAML parser.
package delfconfig

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/mcmcgrath13/delf/internal/schemabuild"
	"gopkg.in/yaml.v3"
)

// yamlSchemaFile is one schema document: a single object_type entry.
type yamlSchemaFile struct {
	ObjectType yamlObjectType `yaml:"object_type"`
}

type yamlObjectType struct {
	Name      string         `yaml:"name"`
	Storage   string         `yaml:"storage"`
	Deletion  string         `yaml:"deletion"`
	ID        string         `yaml:"id"`
	IDType    string         `yaml:"id_type"`
	X         []string       `yaml:"x"`
	TimeField string         `yaml:"time_field"`
	EdgeTypes []yamlEdgeType `yaml:"edge_types"`
}

type yamlEdgeType struct {
	Name     string     `yaml:"name"`
	Deletion string     `yaml:"deletion"`
	Inverse  string     `yaml:"inverse"`
	To       yamlEdgeTo `yaml:"to"`
}

type yamlEdgeTo struct {
	ObjectType   string `yaml:"object_type"`
	Field        string `yaml:"field"`
	MappingTable string `yaml:"mapping_table"`
}

type yamlConfigFile struct {
	Storages []yamlStorage `yaml:"storages"`
}

type yamlStorage struct {
	Name   string `yaml:"name"`
	Plugin string `yaml:"plugin"`
	URL    string `yaml:"url"`
}

// LoadSchema reads and parses the YAML documents in a schema file
// (one object_type per YAML document, separated by "---").
func LoadSchema(path string) ([]schemabuild.SchemaDoc, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("delfconfig: read schema %s: %w", path, err)
	}
	return DecodeSchema(raw)
}

// DecodeSchema parses raw YAML bytes into schemabuild.SchemaDoc values.
func DecodeSchema(raw []byte) ([]schemabuild.SchemaDoc, error) {
	var docs []schemabuild.SchemaDoc
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	for {
		var doc yamlSchemaFile
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("delfconfig: decode schema document: %w", err)
		}
		docs = append(docs, schemabuild.SchemaDoc{
			ObjectType: schemabuild.ObjectTypeDoc{
				Name:      doc.ObjectType.Name,
				Storage:   doc.ObjectType.Storage,
				Deletion:  doc.ObjectType.Deletion,
				ID:        doc.ObjectType.ID,
				IDType:    doc.ObjectType.IDType,
				X:         doc.ObjectType.X,
				TimeField: doc.ObjectType.TimeField,
				EdgeTypes: convertEdgeTypes(doc.ObjectType.EdgeTypes),
			},
		})
	}
	return docs, nil
}

func convertEdgeTypes(in []yamlEdgeType) []schemabuild.EdgeTypeDoc {
	out := make([]schemabuild.EdgeTypeDoc, 0, len(in))
	for _, e := range in {
		out = append(out, schemabuild.EdgeTypeDoc{
			Name:     e.Name,
			Deletion: e.Deletion,
			Inverse:  e.Inverse,
			To: schemabuild.ToDoc{
				ObjectType:   e.To.ObjectType,
				Field:        e.To.Field,
				MappingTable: e.To.MappingTable,
			},
		})
	}
	return out
}

// LoadConfig reads and parses the YAML documents in a config file.
func LoadConfig(path string) ([]schemabuild.ConfigDoc, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("delfconfig: read config %s: %w", path, err)
	}
	return DecodeConfig(raw)
}

// DecodeConfig parses raw YAML bytes into schemabuild.ConfigDoc values.
func DecodeConfig(raw []byte) ([]schemabuild.ConfigDoc, error) {
	var docs []schemabuild.ConfigDoc
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	for {
		var doc yamlConfigFile
		if err := dec.Decode(&doc); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, fmt.Errorf("delfconfig: decode config document: %w", err)
		}
		storages := make([]schemabuild.StorageDoc, 0, len(doc.Storages))
		for _, s := range doc.Storages {
			storages = append(storages, schemabuild.StorageDoc{
				Name:   s.Name,
				Plugin: s.Plugin,
				URL:    s.URL,
			})
		}
		docs = append(docs, schemabuild.ConfigDoc{Storages: storages})
	}
	return docs, nil
}
