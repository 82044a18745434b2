package templates

import (
	"embed"
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/hswtrack/compliance-backend/internal/pkg/logger"
)

const templatesEnv = "IMPORT_TEMPLATES_YAML"

//go:embed templates.yaml
var templatesFS embed.FS

// Template declares what an import template expects of each staged row:
// which columns can carry the caller identity (in resolution priority
// order), which other columns must be present, and the column synonyms the
// reconciliation layer reads timestamps and training references from.
type Template struct {
	Version              string   `yaml:"version"`
	IdentityColumns      []string `yaml:"identity_columns"`
	RequiredColumns      []string `yaml:"required_columns"`
	TrainingCodeColumns  []string `yaml:"training_code_columns"`
	TrainingTitleColumns []string `yaml:"training_title_columns"`
	CompletionColumns    []string `yaml:"completion_columns"`
	ExpiryColumns        []string `yaml:"expiry_columns"`

	Name string `yaml:"-"`
}

type registryFile struct {
	Templates map[string]Template `yaml:"templates"`
}

type Registry struct {
	templates map[string]Template
}

var (
	loadOnce sync.Once
	loaded   *Registry
)

// Load returns the template registry. An operator-supplied YAML path in
// IMPORT_TEMPLATES_YAML overrides the embedded defaults; a broken override
// falls back to the embedded file rather than failing startup.
func Load(log *logger.Logger) *Registry {
	loadOnce.Do(func() {
		if path := strings.TrimSpace(os.Getenv(templatesEnv)); path != "" {
			raw, err := os.ReadFile(path)
			if err == nil {
				if reg, perr := parse(raw); perr == nil {
					loaded = reg
					if log != nil {
						log.Info("import templates loaded from override", "path", path, "templates", reg.Names())
					}
					return
				} else if log != nil {
					log.Warn("import templates override invalid, using embedded defaults", "path", path, "error", perr)
				}
			} else if log != nil {
				log.Warn("import templates override unreadable, using embedded defaults", "path", path, "error", err)
			}
		}

		raw, err := templatesFS.ReadFile("templates.yaml")
		if err != nil {
			loaded = &Registry{templates: map[string]Template{}}
			return
		}
		reg, perr := parse(raw)
		if perr != nil {
			loaded = &Registry{templates: map[string]Template{}}
			return
		}
		loaded = reg
	})
	return loaded
}

func parse(raw []byte) (*Registry, error) {
	var file registryFile
	if err := yaml.Unmarshal(raw, &file); err != nil {
		return nil, fmt.Errorf("parse templates yaml: %w", err)
	}
	if len(file.Templates) == 0 {
		return nil, fmt.Errorf("templates yaml declares no templates")
	}
	templates := make(map[string]Template, len(file.Templates))
	for name, tpl := range file.Templates {
		tpl.Name = name
		templates[name] = tpl
	}
	return &Registry{templates: templates}, nil
}

// Parse builds a registry from raw YAML. Exposed for tests.
func Parse(raw []byte) (*Registry, error) { return parse(raw) }

func (r *Registry) Get(name string) (Template, bool) {
	tpl, ok := r.templates[name]
	return tpl, ok
}

func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
