// Package municipio resolves municipality codes to names using the attribute
// table of the municipal boundary layer.
package municipio

import (
	"fmt"
	"sort"
	"strings"

	shp "github.com/jonas-p/go-shp"
)

// Default DBF columns of the national geostatistical framework layer.
const (
	DefaultCodeField       = "MPIO_CDPMP"
	DefaultNameField       = "MPIO_CNMBR"
	DefaultDepartmentField = "DPTO_CNMBR"
)

// Municipio is one row of the boundary layer.
type Municipio struct {
	Code       string
	Name       string
	Department string
}

// Directory maps municipality codes to their attributes.
type Directory struct {
	byCode map[string]Municipio
}

// Fields names the DBF columns to read.
type Fields struct {
	Code       string
	Name       string
	Department string
}

func (f Fields) withDefaults() Fields {
	if f.Code == "" {
		f.Code = DefaultCodeField
	}
	if f.Name == "" {
		f.Name = DefaultNameField
	}
	if f.Department == "" {
		f.Department = DefaultDepartmentField
	}
	return f
}

// Load reads the shapefile at path. Rows without a code are ignored.
func Load(path string, fields Fields) (*Directory, error) {
	fields = fields.withDefaults()

	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open shapefile %s: %w", path, err)
	}
	defer r.Close()

	codeIdx, nameIdx, deptIdx := -1, -1, -1
	for i, f := range r.Fields() {
		switch strings.ToUpper(f.String()) {
		case strings.ToUpper(fields.Code):
			codeIdx = i
		case strings.ToUpper(fields.Name):
			nameIdx = i
		case strings.ToUpper(fields.Department):
			deptIdx = i
		}
	}
	if codeIdx < 0 || nameIdx < 0 {
		return nil, fmt.Errorf("shapefile %s lacks %s or %s", path, fields.Code, fields.Name)
	}

	d := &Directory{byCode: make(map[string]Municipio)}
	for r.Next() {
		idx, _ := r.Shape()
		code := clean(r.ReadAttribute(idx, codeIdx))
		if code == "" {
			continue
		}
		m := Municipio{
			Code: code,
			Name: clean(r.ReadAttribute(idx, nameIdx)),
		}
		if deptIdx >= 0 {
			m.Department = clean(r.ReadAttribute(idx, deptIdx))
		}
		d.byCode[code] = m
	}
	return d, nil
}

// clean strips the padding DBF leaves on character fields.
func clean(s string) string {
	return strings.TrimSpace(strings.Trim(s, "\x00"))
}

// Lookup returns the municipality with the given code.
func (d *Directory) Lookup(code string) (Municipio, bool) {
	if d == nil {
		return Municipio{}, false
	}
	m, ok := d.byCode[code]
	return m, ok
}

// Label renders "code NAME (DEPARTMENT)", dropping what the layer lacks, or
// the bare code when unknown. A nil directory is valid and always returns the
// code.
func (d *Directory) Label(code string) string {
	m, ok := d.Lookup(code)
	if !ok || m.Name == "" {
		return code
	}
	if m.Department == "" {
		return code + " " + m.Name
	}
	return code + " " + m.Name + " (" + m.Department + ")"
}

// Len returns the number of municipalities loaded.
func (d *Directory) Len() int {
	if d == nil {
		return 0
	}
	return len(d.byCode)
}

// Codes returns the loaded codes, sorted.
func (d *Directory) Codes() []string {
	if d == nil {
		return nil
	}
	codes := make([]string, 0, len(d.byCode))
	for c := range d.byCode {
		codes = append(codes, c)
	}
	sort.Strings(codes)
	return codes
}
