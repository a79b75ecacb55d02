package models

import (
	"fmt"
	"strings"
	"time"
)

// SchemaDocument is a point-in-time snapshot of a target database's
// structure. It is immutable once produced: re-extraction replaces the
// whole document, never patches it.
type SchemaDocument struct {
	DatabaseName string        `json:"database_name"`
	Dialect      Dialect       `json:"dialect"`
	ExtractedAt  time.Time     `json:"extracted_at"`
	Tables       []SchemaTable `json:"tables"`
}

// SchemaTable is one base table with its columns, keys and indexes.
type SchemaTable struct {
	Name        string           `json:"name"`
	Columns     []SchemaColumn   `json:"columns"`
	PrimaryKey  []string         `json:"primary_key,omitempty"`
	ForeignKeys []ForeignKeyEdge `json:"foreign_keys,omitempty"`
	Indexes     []SchemaIndex    `json:"indexes,omitempty"`
}

// SchemaColumn is one column of a table.
type SchemaColumn struct {
	Name     string `json:"name"`
	DataType string `json:"data_type"`
	Size     int64  `json:"size,omitempty"`
	Nullable bool   `json:"nullable"`
	Ordinal  int    `json:"ordinal"`
}

// ForeignKeyEdge is one imported foreign key: a column referencing
// another table's column, with its update/delete rules.
type ForeignKeyEdge struct {
	Column           string `json:"column"`
	ReferencedTable  string `json:"referenced_table"`
	ReferencedColumn string `json:"referenced_column"`
	UpdateRule       string `json:"update_rule,omitempty"`
	DeleteRule       string `json:"delete_rule,omitempty"`
}

// SchemaIndex is one non-statistical index entry.
type SchemaIndex struct {
	Name   string `json:"name"`
	Column string `json:"column"`
	Unique bool   `json:"unique"`
}

// TableNames returns the names of every table in the document.
func (s *SchemaDocument) TableNames() []string {
	names := make([]string, len(s.Tables))
	for i, t := range s.Tables {
		names[i] = t.Name
	}
	return names
}

// Summary renders the schema in the compact table/column/key form that
// is embedded into generation prompts.
func (s *SchemaDocument) Summary() string {
	var b strings.Builder
	for _, t := range s.Tables {
		b.WriteString("Table ")
		b.WriteString(t.Name)
		b.WriteString(" (")
		for i, c := range t.Columns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.WriteString(c.Name)
			b.WriteString(" ")
			b.WriteString(c.DataType)
		}
		b.WriteString(")")
		if len(t.PrimaryKey) > 0 {
			fmt.Fprintf(&b, " PRIMARY KEY (%s)", strings.Join(t.PrimaryKey, ", "))
		}
		for _, fk := range t.ForeignKeys {
			fmt.Fprintf(&b, " FOREIGN KEY %s -> %s.%s", fk.Column, fk.ReferencedTable, fk.ReferencedColumn)
		}
		b.WriteString("\n")
	}
	return b.String()
}
