// Package confgen expands generator specs into transfer configs. A spec
// describes year x month x variable loops plus a path template; the
// generator unrolls the loops into explicit file lists so the uploader
// and checker stay free of any templating logic.
package confgen

import (
	"fmt"
	"io"
	"os"
	"strings"
	"text/template"

	"gopkg.in/yaml.v3"

	"github.com/JanStreffing/aleph-levante-uftp-transfer-script/internal/config"
	"github.com/JanStreffing/aleph-levante-uftp-transfer-script/internal/utils"
)

// YearRange is an inclusive range of simulation years.
type YearRange struct {
	From int `yaml:"from"`
	To   int `yaml:"to"`
}

// Entry describes one loop expansion producing one transfer group.
type Entry struct {
	Name         string    `yaml:"name"`
	LocalBase    string    `yaml:"local_base"`
	RemoteBase   string    `yaml:"remote_base"`
	Years        YearRange `yaml:"years"`
	Months       []int     `yaml:"months,omitempty"`
	Variables    []string  `yaml:"variables"`
	Pattern      string    `yaml:"pattern"`
	Exclude      []string  `yaml:"exclude,omitempty"`
	RequireLocal bool      `yaml:"require_local,omitempty"`
}

// Spec is a full generator spec: uftp settings passed through verbatim
// plus the loop entries.
type Spec struct {
	UFTP       config.UFTPSettings `yaml:"uftp"`
	MaxRetries int                 `yaml:"max_retries,omitempty"`
	Entries    []Entry             `yaml:"entries"`
}

// pathContext is what a pattern template sees for each loop step.
type pathContext struct {
	Year     int
	Month    int
	Variable string
}

// LoadSpec reads a generator spec from the given path.
func LoadSpec(path string) (*Spec, error) {
	fd, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fd.Close()

	spec, err := LoadSpecFromReader(fd)
	if err != nil {
		return nil, fmt.Errorf("generator spec '%s': %w", path, err)
	}
	return spec, nil
}

// LoadSpecFromReader parses a generator spec from YAML content.
func LoadSpecFromReader(reader io.Reader) (*Spec, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return nil, err
	}

	var spec Spec
	if err := yaml.Unmarshal(data, &spec); err != nil {
		return nil, err
	}

	for i := range spec.Entries {
		if err := spec.Entries[i].validate(); err != nil {
			return nil, err
		}
	}
	return &spec, nil
}

func (e *Entry) validate() error {
	if e.Name == "" {
		return fmt.Errorf("entry name cannot be empty")
	}
	if e.Pattern == "" {
		return fmt.Errorf("entry %q: pattern cannot be empty", e.Name)
	}
	if e.Years.From > e.Years.To {
		return fmt.Errorf("entry %q: years from=%d after to=%d", e.Name, e.Years.From, e.Years.To)
	}
	if len(e.Variables) == 0 {
		return fmt.Errorf("entry %q: variables cannot be empty", e.Name)
	}
	for _, m := range e.Months {
		if m < 1 || m > 12 {
			return fmt.Errorf("entry %q: month %d out of range", e.Name, m)
		}
	}
	return nil
}

// Generate expands all entries into a transfer config.
func (s *Spec) Generate() (*config.Config, error) {
	cfg := &config.Config{
		UFTP:       s.UFTP,
		MaxRetries: s.MaxRetries,
	}

	for i := range s.Entries {
		group, err := s.Entries[i].expand()
		if err != nil {
			return nil, err
		}
		cfg.Groups = append(cfg.Groups, *group)
	}

	return cfg, nil
}

func (e *Entry) expand() (*config.TransferGroup, error) {
	tmpl, err := template.New(e.Name).Parse(e.Pattern)
	if err != nil {
		return nil, fmt.Errorf("entry %q: bad pattern: %w", e.Name, err)
	}

	months := e.Months
	if len(months) == 0 {
		months = []int{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12}
	}

	group := &config.TransferGroup{
		Name:       e.Name,
		LocalBase:  e.LocalBase,
		RemoteBase: e.RemoteBase,
		Exclude:    e.Exclude,
	}

	var sb strings.Builder
	for _, variable := range e.Variables {
		for year := e.Years.From; year <= e.Years.To; year++ {
			for _, month := range months {
				sb.Reset()
				ctx := pathContext{Year: year, Month: month, Variable: variable}
				if err := tmpl.Execute(&sb, ctx); err != nil {
					return nil, fmt.Errorf("entry %q: pattern failed for %s/%d-%02d: %w", e.Name, variable, year, month, err)
				}
				rel := sb.String()

				if e.RequireLocal && !utils.FileExists(group.LocalPath(rel)) {
					continue
				}
				group.Files = append(group.Files, rel)
			}
		}
	}

	return group, nil
}
