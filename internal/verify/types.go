package verify

import "time"

// TableSpec names a table the schema is expected to contain and the
// columns it must carry. An empty Columns list checks existence only.
type TableSpec struct {
	Name    string   `json:"name" yaml:"name"`
	Columns []string `json:"columns,omitempty" yaml:"columns,omitempty"`
}

// TableState is the observed state of one expected table
type TableState struct {
	Name           string   `json:"name" yaml:"name"`
	Exists         bool     `json:"exists" yaml:"exists"`
	Columns        []string `json:"columns,omitempty" yaml:"columns,omitempty"`
	MissingColumns []string `json:"missing_columns,omitempty" yaml:"missing_columns,omitempty"`
	RowCount       int64    `json:"row_count" yaml:"row_count"`
	Error          string   `json:"error,omitempty" yaml:"error,omitempty"`
}

// Conforms reports whether the table exists with every expected column
func (s TableState) Conforms() bool {
	return s.Exists && len(s.MissingColumns) == 0 && s.Error == ""
}

// SchemaReport is the result of one verification pass
type SchemaReport struct {
	Tables    []TableState `json:"tables" yaml:"tables"`
	CheckedAt time.Time    `json:"checked_at" yaml:"checked_at"`
}

// Lookup returns the state recorded for the named table
func (r *SchemaReport) Lookup(name string) (TableState, bool) {
	for _, t := range r.Tables {
		if t.Name == name {
			return t, true
		}
	}
	return TableState{}, false
}

// Missing returns the names of expected tables that do not exist
func (r *SchemaReport) Missing() []string {
	var missing []string
	for _, t := range r.Tables {
		if !t.Exists {
			missing = append(missing, t.Name)
		}
	}
	return missing
}

// Conforms reports whether every expected table conforms
func (r *SchemaReport) Conforms() bool {
	for _, t := range r.Tables {
		if !t.Conforms() {
			return false
		}
	}
	return true
}
