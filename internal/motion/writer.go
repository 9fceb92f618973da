package motion

import (
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Encode writes table as YAML.
func Encode(w io.Writer, table *Table) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(table); err != nil {
		return err
	}
	return enc.Close()
}

// Decode reads a YAML table, rejecting unknown fields, and validates it.
func Decode(r io.Reader) (*Table, error) {
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)

	var table Table
	if err := dec.Decode(&table); err != nil {
		return nil, fmt.Errorf("motion: decode table: %w", err)
	}
	if err := table.Validate(); err != nil {
		return nil, err
	}
	return &table, nil
}

// WriteTable writes a table to a YAML file
func WriteTable(table *Table, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := Encode(f, table); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// ReadTable reads and validates a table from a YAML file
func ReadTable(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Decode(f)
}
