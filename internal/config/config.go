// Package config loads the TOML run file.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"
	"time"

	"github.com/pelletier/go-toml/v2"

	"catastro/internal/classify"
	"catastro/internal/diff"
	"catastro/internal/extract"
	"catastro/internal/source"
)

// Reference kinds.
const (
	KindOracle   = "oracle"
	KindPostgres = "postgres"
	KindSQLite   = "sqlite"
	KindFile     = "file"
)

type PathsConfig struct {
	VigenciaA   string `toml:"vigencia_a"`
	VigenciaB   string `toml:"vigencia_b"`
	Output      string `toml:"output"`
	Approved    string `toml:"approved"`
	FilePattern string `toml:"file_pattern"`
}

type PeriodsConfig struct {
	A    string         `toml:"a"`
	B    string         `toml:"b"`
	From toml.LocalDate `toml:"from"`
	To   toml.LocalDate `toml:"to"`
}

type SchemaConfig struct {
	RecordElement   string `toml:"record_element"`
	IdentifierField string `toml:"identifier_field"`
}

type PolicyConfig struct {
	NullTokens        []string `toml:"null_tokens"`
	AddressField      string   `toml:"address_field"`
	NoAddress         string   `toml:"no_address"`
	InterestedField   string   `toml:"interested_field"`
	UnknownName       string   `toml:"unknown_name"`
	NameFields        []string `toml:"name_fields"`
	PartyKey          string   `toml:"party_key"`
	ReportAddedFields bool     `toml:"report_added_fields"`
}

type ClassifiersConfig struct {
	Enabled           []string `toml:"enabled"`
	InterestedField   string   `toml:"interested_field"`
	AppraisalField    string   `toml:"appraisal_field"`
	ConditionField    string   `toml:"condition_field"`
	ConditionCode     string   `toml:"condition_code"`
	RegimePosition    int      `toml:"regime_position"`
	RegimeFlag        string   `toml:"regime_flag"`
	OwnerDocumentPath []string `toml:"owner_document_path"`
}

// ReferenceConfig describes one reference source. Database credentials are
// never read from this file: they come from <EnvPrefix>_DB_* variables.
type ReferenceConfig struct {
	Name       string `toml:"name"`
	Kind       string `toml:"kind"`
	EnvPrefix  string `toml:"env_prefix"`
	Query      string `toml:"query"`
	Lookup     string `toml:"lookup_query"`
	DateFormat string `toml:"date_format"`
	Path       string `toml:"path"`
	Column     string `toml:"column"`
}

type CrossrefConfig struct {
	AllowUnavailable bool `toml:"allow_unavailable"`
}

type ReportConfig struct {
	Text      string `toml:"text"`
	YAML      string `toml:"yaml"`
	Console   bool   `toml:"console"`
	MaxDeltas int    `toml:"max_deltas"`
}

type MunicipalitiesConfig struct {
	Approved  []string `toml:"approved"`
	Shapefile string   `toml:"shapefile"`
	CodeField string   `toml:"code_field"`
	NameField string   `toml:"name_field"`
	// DepartmentField is optional; the label omits the department without it.
	DepartmentField string `toml:"department_field"`
}

type MetricsConfig struct {
	Textfile string `toml:"textfile"`
}

type Config struct {
	Paths          PathsConfig          `toml:"paths"`
	Periods        PeriodsConfig        `toml:"periods"`
	Schema         SchemaConfig         `toml:"schema"`
	Policy         PolicyConfig         `toml:"policy"`
	Classifiers    ClassifiersConfig    `toml:"classifiers"`
	References     []ReferenceConfig    `toml:"references"`
	Crossref       CrossrefConfig       `toml:"crossref"`
	Report         ReportConfig         `toml:"report"`
	Municipalities MunicipalitiesConfig `toml:"municipalities"`
	Metrics        MetricsConfig        `toml:"metrics"`
}

// Default returns the configuration used for the 2024 to 2025 reconciliation.
func Default() *Config {
	p := diff.DefaultPolicy()
	r := classify.DefaultRules()
	s := extract.DefaultSchema()
	return &Config{
		Paths: PathsConfig{
			VigenciaA:   "2024",
			VigenciaB:   "2025",
			Output:      ".",
			FilePattern: source.DefaultPattern,
		},
		Periods: PeriodsConfig{
			A:    "2024",
			B:    "2025",
			From: toml.LocalDate{Year: 2025, Month: 1, Day: 1},
			To:   toml.LocalDate{Year: 2025, Month: 12, Day: 31},
		},
		Schema: SchemaConfig{
			RecordElement:   s.RecordElement,
			IdentifierField: s.IdentifierField,
		},
		Policy: PolicyConfig{
			NullTokens:        p.NullTokens,
			AddressField:      p.AddressField,
			NoAddress:         p.NoAddress,
			InterestedField:   p.InterestedField,
			UnknownName:       p.UnknownName,
			NameFields:        p.NameFields,
			PartyKey:          p.PartyKeyField,
			ReportAddedFields: p.ReportAddedFields,
		},
		Classifiers: ClassifiersConfig{
			Enabled: []string{
				classify.MissingInterestedParties,
				classify.MissingAppraisal,
				classify.ZeroAppraisalUnderCondition,
			},
			InterestedField:   r.InterestedField,
			AppraisalField:    r.AppraisalField,
			ConditionField:    r.ConditionField,
			ConditionCode:     r.ConditionCode,
			RegimePosition:    r.RegimePosition,
			RegimeFlag:        string(r.RegimeFlag),
			OwnerDocumentPath: r.OwnerDocumentPath,
		},
		Report: ReportConfig{
			Text:      "Reporte_Consolidado.txt",
			YAML:      "resultados.yaml",
			Console:   true,
			MaxDeltas: 20,
		},
	}
}

// Load reads path over the defaults, so a run file only needs what differs.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file '%s': %w", path, err)
	}

	cfg := Default()
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse TOML: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config '%s': %w", path, err)
	}
	return cfg, nil
}

// Validate reports every problem found, joined.
func (c *Config) Validate() error {
	var errs []error
	if c.Periods.A == "" || c.Periods.B == "" {
		errs = append(errs, errors.New("periods.a and periods.b are required"))
	}
	if c.Periods.A != "" && c.Periods.A == c.Periods.B {
		errs = append(errs, fmt.Errorf("periods.a and periods.b are both %q", c.Periods.A))
	}
	if c.From().After(c.To()) {
		errs = append(errs, fmt.Errorf("periods.from %s is after periods.to %s", c.Periods.From, c.Periods.To))
	}
	if re, err := regexp.Compile(c.Paths.FilePattern); err != nil {
		errs = append(errs, fmt.Errorf("paths.file_pattern: %w", err))
	} else if re.NumSubexp() < 1 {
		errs = append(errs, errors.New("paths.file_pattern needs a group capturing the municipality code"))
	}
	if len(c.Classifiers.RegimeFlag) != 1 {
		errs = append(errs, fmt.Errorf("classifiers.regime_flag must be one character, got %q", c.Classifiers.RegimeFlag))
	}
	known := make(map[string]bool)
	for _, cl := range classify.Standard(c.Rules()) {
		known[cl.Name] = true
	}
	for _, name := range c.Classifiers.Enabled {
		if !known[name] {
			errs = append(errs, fmt.Errorf("unknown classifier %q", name))
		}
	}

	seen := make(map[string]bool)
	for i, r := range c.References {
		if r.Name == "" {
			errs = append(errs, fmt.Errorf("references[%d]: name is required", i))
		} else if seen[r.Name] {
			errs = append(errs, fmt.Errorf("references[%d]: duplicate name %q", i, r.Name))
		}
		seen[r.Name] = true

		switch r.Kind {
		case KindOracle, KindPostgres:
			if r.Query == "" || r.EnvPrefix == "" {
				errs = append(errs, fmt.Errorf("reference %q: query and env_prefix are required", r.Name))
			}
		case KindSQLite:
			if r.Query == "" || r.Path == "" {
				errs = append(errs, fmt.Errorf("reference %q: query and path are required", r.Name))
			}
		case KindFile:
			if r.Path == "" {
				errs = append(errs, fmt.Errorf("reference %q: path is required", r.Name))
			}
		default:
			errs = append(errs, fmt.Errorf("reference %q: unknown kind %q", r.Name, r.Kind))
		}
	}
	return errors.Join(errs...)
}

// From returns the start of the reference date range.
func (c *Config) From() time.Time { return c.Periods.From.AsTime(time.Local) }

// To returns the end of the reference date range.
func (c *Config) To() time.Time { return c.Periods.To.AsTime(time.Local) }

// Pattern compiles the file name pattern. Call after Validate.
func (c *Config) Pattern() *regexp.Regexp { return regexp.MustCompile(c.Paths.FilePattern) }

// ExtractSchema returns the extractor schema.
func (c *Config) ExtractSchema() extract.Schema {
	return extract.Schema{
		RecordElement:   c.Schema.RecordElement,
		IdentifierField: c.Schema.IdentifierField,
	}
}

// DiffPolicy returns the differ policy.
func (c *Config) DiffPolicy() diff.Policy {
	return diff.Policy{
		NullTokens:        c.Policy.NullTokens,
		AddressField:      c.Policy.AddressField,
		NoAddress:         c.Policy.NoAddress,
		InterestedField:   c.Policy.InterestedField,
		UnknownName:       c.Policy.UnknownName,
		NameFields:        c.Policy.NameFields,
		PartyKeyField:     c.Policy.PartyKey,
		ReportAddedFields: c.Policy.ReportAddedFields,
	}
}

// Rules returns the classifier rules.
func (c *Config) Rules() classify.Rules {
	var flag byte
	if c.Classifiers.RegimeFlag != "" {
		flag = c.Classifiers.RegimeFlag[0]
	}
	return classify.Rules{
		InterestedField:   c.Classifiers.InterestedField,
		AppraisalField:    c.Classifiers.AppraisalField,
		ConditionField:    c.Classifiers.ConditionField,
		ConditionCode:     c.Classifiers.ConditionCode,
		RegimePosition:    c.Classifiers.RegimePosition,
		RegimeFlag:        flag,
		OwnerDocumentPath: c.Classifiers.OwnerDocumentPath,
	}
}

// EnabledClassifiers returns the enabled classifiers.
func (c *Config) EnabledClassifiers() []classify.Classifier {
	return classify.Select(classify.Standard(c.Rules()), c.Classifiers.Enabled)
}
