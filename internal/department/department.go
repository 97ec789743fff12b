// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package department holds the per-department roster policy: which
// departments exist, how their generic identifiers are prefixed, which rank
// names receive callsigns from which ranges, and the optional qualification
// role shown on each roster row.
package department

import (
	_ "embed"
	"os"
	"regexp"
	"slices"
	"strings"

	"github.com/samber/oops"
	"gopkg.in/yaml.v3"

	"github.com/holomush/portal/pkg/errutil"
)

//go:embed departments.yaml
var defaultPolicy []byte

// codePattern validates department codes.
var codePattern = regexp.MustCompile(`^[a-z][a-z0-9_-]*$`)

// Department is one department's roster policy.
type Department struct {
	Code string `yaml:"code" json:"code" jsonschema:"pattern=^[a-z][a-z0-9_-]*$,description=Stable department code used in URLs and storage"`
	Name string `yaml:"name" json:"name" jsonschema:"minLength=1"`
	// Identifier enables the generic PREFIX+NN+L identifier scheme.
	Identifier *IdentifierPolicy `yaml:"identifier,omitempty" json:"identifier,omitempty"`
	// Callsigns maps exact rank names to callsign ranges.
	Callsigns []CallsignPolicy `yaml:"callsigns,omitempty" json:"callsigns,omitempty"`
	// QualificationRoleID marks rows whose user holds this external role.
	QualificationRoleID string `yaml:"qualification_role_id,omitempty" json:"qualification_role_id,omitempty"`
}

// IdentifierPolicy configures the generic identifier allocator.
type IdentifierPolicy struct {
	Prefix string `yaml:"prefix" json:"prefix" jsonschema:"minLength=1"`
}

// CallsignPolicy assigns callsigns Prefix+Start .. Prefix+End to holders of
// the rank named Rank. An empty Prefix defers to the rank's stored callsign
// prefix.
type CallsignPolicy struct {
	Rank   string `yaml:"rank" json:"rank" jsonschema:"minLength=1"`
	Prefix string `yaml:"prefix,omitempty" json:"prefix,omitempty"`
	Start  int    `yaml:"start" json:"start" jsonschema:"minimum=1"`
	End    int    `yaml:"end" json:"end" jsonschema:"minimum=1"`
}

// File is the top level of a departments.yaml policy file.
type File struct {
	Departments []Department `yaml:"departments" json:"departments"`
}

// HasIdentifiers reports whether the department allocates generic identifiers.
func (d *Department) HasIdentifiers() bool {
	return d.Identifier != nil && d.Identifier.Prefix != ""
}

// CallsignPolicyFor returns the callsign policy for the rank named rankName.
// Names match exactly.
func (d *Department) CallsignPolicyFor(rankName string) (CallsignPolicy, bool) {
	for _, p := range d.Callsigns {
		if p.Rank == rankName {
			return p, true
		}
	}
	return CallsignPolicy{}, false
}

// Validate checks department constraints the schema cannot express.
func (d *Department) Validate() error {
	if !codePattern.MatchString(d.Code) {
		return oops.Code("INVALID_DEPARTMENT").
			With("code", d.Code).
			Errorf("department code %q must start with a-z and contain only a-z, 0-9, '_' and '-'", d.Code)
	}
	if strings.TrimSpace(d.Name) == "" {
		return oops.Code("INVALID_DEPARTMENT").With("code", d.Code).Errorf("department name is required")
	}
	if d.Identifier != nil && d.Identifier.Prefix == "" {
		return oops.Code("INVALID_DEPARTMENT").With("code", d.Code).Errorf("identifier prefix is required")
	}

	seen := make(map[string]struct{}, len(d.Callsigns))
	for _, p := range d.Callsigns {
		if p.Rank == "" {
			return oops.Code("INVALID_DEPARTMENT").
				With("code", d.Code).
				Errorf("callsign entries need a rank")
		}
		if p.Start < 1 || p.End < p.Start {
			return oops.Code("INVALID_DEPARTMENT").
				With("code", d.Code).
				With("rank", p.Rank).
				Errorf("callsign range %d-%d is invalid", p.Start, p.End)
		}
		if _, dup := seen[p.Rank]; dup {
			return oops.Code("INVALID_DEPARTMENT").
				With("code", d.Code).
				With("rank", p.Rank).
				Errorf("rank %q has more than one callsign range", p.Rank)
		}
		seen[p.Rank] = struct{}{}
	}
	return nil
}

// Registry is an immutable set of departments keyed by code.
type Registry struct {
	byCode map[string]*Department
	codes  []string
}

// NewRegistry validates departments and builds a Registry.
func NewRegistry(departments []Department) (*Registry, error) {
	r := &Registry{byCode: make(map[string]*Department, len(departments))}
	for i := range departments {
		d := departments[i]
		if err := d.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.byCode[d.Code]; dup {
			return nil, oops.Code("DUPLICATE_DEPARTMENT").
				With("code", d.Code).
				Errorf("department %q declared more than once", d.Code)
		}
		d.Callsigns = slices.Clone(d.Callsigns)
		r.byCode[d.Code] = &d
		r.codes = append(r.codes, d.Code)
	}
	slices.Sort(r.codes)
	return r, nil
}

// Get returns the department with the given code.
func (r *Registry) Get(code string) (*Department, error) {
	d, ok := r.byCode[code]
	if !ok {
		return nil, oops.Code("DEPARTMENT_NOT_FOUND").
			With("code", code).
			Wrap(errutil.ErrNotFound)
	}
	return d, nil
}

// Codes returns all department codes, sorted.
func (r *Registry) Codes() []string {
	return slices.Clone(r.codes)
}

// Parse validates data against the policy schema and builds a Registry.
func Parse(data []byte) (*Registry, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, err
	}
	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, oops.Code("INVALID_DEPARTMENT_FILE").Wrapf(err, "invalid YAML")
	}
	return NewRegistry(f.Departments)
}

// Load reads a policy file from path. An empty path loads the built-in policy.
func Load(path string) (*Registry, error) {
	if path == "" {
		return Default()
	}
	data, err := os.ReadFile(path) //nolint:gosec // operator-supplied path
	if err != nil {
		return nil, oops.Code("DEPARTMENT_FILE_READ_FAILED").With("path", path).Wrap(err)
	}
	reg, err := Parse(data)
	if err != nil {
		return nil, oops.With("path", path).Wrap(err)
	}
	return reg, nil
}

// Default returns the built-in department policy.
func Default() (*Registry, error) {
	return Parse(defaultPolicy)
}

// DefaultPolicy returns the raw built-in policy file.
func DefaultPolicy() []byte {
	return slices.Clone(defaultPolicy)
}
