package migration

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"sort"
	"strconv"
	"strings"

	apperrors "github.com/p4market/catalogdb/internal/errors"
)

// V<version>__<description>.sql or <version>_<description>.sql
var fileNamePattern = regexp.MustCompile(`^(?:[Vv](\d+)__|(\d+)_)([^/]+)\.sql$`)

// Unit is one versioned migration. Units are immutable once registered.
type Unit struct {
	Version  int64  `json:"version" yaml:"version"`
	Name     string `json:"name" yaml:"name"`
	SQL      string `json:"-" yaml:"-"`
	Checksum string `json:"checksum" yaml:"checksum"`
	// Source is the file the unit was loaded from, empty for units built in code
	Source string `json:"source,omitempty" yaml:"source,omitempty"`
}

// Checksum returns the lowercase hex SHA-256 of the raw SQL text
func Checksum(sql string) string {
	sum := sha256.Sum256([]byte(sql))
	return hex.EncodeToString(sum[:])
}

// NewUnit builds a unit and computes its checksum
func NewUnit(version int64, name, sql string) Unit {
	return Unit{
		Version:  version,
		Name:     name,
		SQL:      sql,
		Checksum: Checksum(sql),
	}
}

// Registry is the ordered, immutable set of known units
type Registry struct {
	units     []Unit
	byVersion map[int64]int
}

// NewRegistry sorts units by version. A non-positive or repeated version
// is a LoadError.
func NewRegistry(units ...Unit) (*Registry, error) {
	sorted := make([]Unit, len(units))
	copy(sorted, units)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Version < sorted[j].Version
	})

	r := &Registry{
		units:     sorted,
		byVersion: make(map[int64]int, len(sorted)),
	}
	for i, u := range sorted {
		if u.Version <= 0 {
			return nil, apperrors.NewLoadError(u.Source, fmt.Sprintf("invalid version %d for %q", u.Version, u.Name), nil)
		}
		if _, dup := r.byVersion[u.Version]; dup {
			return nil, apperrors.NewLoadError(u.Source, fmt.Sprintf("version %d is registered more than once", u.Version), nil)
		}
		if u.Checksum == "" {
			sorted[i].Checksum = Checksum(u.SQL)
		}
		r.byVersion[u.Version] = i
	}
	return r, nil
}

// LoadRegistry reads every *.sql file directly under dir in fsys.
// Sub-directories and other files are ignored.
func LoadRegistry(fsys fs.FS, dir string) (*Registry, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, apperrors.NewLoadError(dir, "failed to read migration directory", err)
	}

	var units []Unit
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".sql") {
			continue
		}

		filePath := path.Join(dir, entry.Name())
		version, name, err := parseFileName(entry.Name())
		if err != nil {
			return nil, apperrors.NewLoadError(filePath, "unrecognized migration file name", err)
		}

		content, err := fs.ReadFile(fsys, filePath)
		if err != nil {
			return nil, apperrors.NewLoadError(filePath, "failed to read migration file", err)
		}

		unit := NewUnit(version, name, string(content))
		unit.Source = filePath
		units = append(units, unit)
	}

	return NewRegistry(units...)
}

func parseFileName(fileName string) (int64, string, error) {
	m := fileNamePattern.FindStringSubmatch(fileName)
	if m == nil {
		return 0, "", fmt.Errorf("expected V<version>__<description>.sql or <version>_<description>.sql, got %q", fileName)
	}
	digits := m[1]
	if digits == "" {
		digits = m[2]
	}
	version, err := strconv.ParseInt(digits, 10, 64)
	if err != nil {
		return 0, "", err
	}
	return version, strings.ReplaceAll(m[3], "_", " "), nil
}

// List returns the units in ascending version order
func (r *Registry) List() []Unit {
	out := make([]Unit, len(r.units))
	copy(out, r.units)
	return out
}

// Lookup returns the unit registered for version
func (r *Registry) Lookup(version int64) (Unit, bool) {
	i, ok := r.byVersion[version]
	if !ok {
		return Unit{}, false
	}
	return r.units[i], true
}

// Len returns the number of registered units
func (r *Registry) Len() int {
	return len(r.units)
}
