// Command cleanarchguard checks that module packages only import inward:
// presentation and infrastructure may use services and domain, services may
// use domain, and domain imports neither.
package main

import (
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/roblaszczak/go-cleanarch/cleanarch"
	"gopkg.in/yaml.v3"
)

type layerAliases struct {
	Domain         []string `yaml:"domain"`
	Application    []string `yaml:"application"`
	Interfaces     []string `yaml:"interfaces"`
	Infrastructure []string `yaml:"infrastructure"`
}

type config struct {
	Version           int          `yaml:"version"`
	Root              string       `yaml:"root"`
	IgnoreTests       bool         `yaml:"ignore_tests"`
	IgnorePackages    []string     `yaml:"ignore_packages"`
	SharedModules     []string     `yaml:"shared_modules"`
	AllowedViolations []string     `yaml:"allow_violations"`
	Aliases           layerAliases `yaml:"aliases"`
}

var defaultAliases = layerAliases{
	Domain:         []string{"domain"},
	Application:    []string{"services"},
	Interfaces:     []string{"presentation", "handlers"},
	Infrastructure: []string{"infrastructure"},
}

func main() {
	configPath := flag.String("config", ".gocleanarch.yml", "config file path")
	debug := flag.Bool("debug", false, "enable go-cleanarch debug logging")
	flag.Parse()

	if *debug {
		cleanarch.Log.SetOutput(os.Stderr)
	}
	violations, err := run(*configPath)
	if err != nil {
		log.Fatal(err)
	}
	if report(os.Stderr, violations) {
		os.Exit(1)
	}
	log.Println("layering check passed")
}

func run(configPath string) ([]cleanarch.ValidationError, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	root, err := filepath.Abs(cfg.Root)
	if err != nil {
		return nil, fmt.Errorf("resolve root: %w", err)
	}
	validator := cleanarch.NewValidator(cfg.layers())
	ok, errs, err := validator.Validate(root, cfg.IgnoreTests, cfg.IgnorePackages)
	if err != nil {
		return nil, fmt.Errorf("run go-cleanarch: %w", err)
	}
	if ok {
		return nil, nil
	}
	return newViolationFilter(cfg).apply(errs), nil
}

func report(w io.Writer, violations []cleanarch.ValidationError) bool {
	for _, v := range violations {
		fmt.Fprintln(w, v.Error())
	}
	if len(violations) > 0 {
		fmt.Fprintf(w, "layering check failed: %d violation(s)\n", len(violations))
		return true
	}
	return false
}

func loadConfig(path string) (*config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := &config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if strings.TrimSpace(cfg.Root) == "" {
		cfg.Root = "."
	}
	return cfg, nil
}

// layers maps directory names to layers. A layer with no configured names
// keeps its defaults.
func (c *config) layers() map[string]cleanarch.Layer {
	out := map[string]cleanarch.Layer{}
	add := func(custom, defaults []string, layer cleanarch.Layer) {
		names := defaults
		if len(custom) > 0 {
			names = custom
		}
		for _, name := range names {
			if name = strings.TrimSpace(name); name != "" {
				out[name] = layer
			}
		}
	}
	add(c.Aliases.Domain, defaultAliases.Domain, cleanarch.LayerDomain)
	add(c.Aliases.Application, defaultAliases.Application, cleanarch.LayerApplication)
	add(c.Aliases.Interfaces, defaultAliases.Interfaces, cleanarch.LayerInterfaces)
	add(c.Aliases.Infrastructure, defaultAliases.Infrastructure, cleanarch.LayerInfrastructure)
	return out
}

var crossModulePattern = regexp.MustCompile(`between ([\w-]+) and ([\w-]+) modules`)

type violationFilter struct {
	shared  map[string]bool
	allowed []string
}

func newViolationFilter(cfg *config) *violationFilter {
	f := &violationFilter{shared: map[string]bool{}}
	for _, m := range cfg.SharedModules {
		if m = strings.TrimSpace(m); m != "" {
			f.shared[m] = true
		}
	}
	for _, p := range cfg.AllowedViolations {
		if p != "" {
			f.allowed = append(f.allowed, p)
		}
	}
	return f
}

// allows reports whether msg is an accepted violation: an import from or
// into a shared module, or one matching an allow-listed substring.
func (f *violationFilter) allows(msg string) bool {
	if m := crossModulePattern.FindStringSubmatch(msg); len(m) == 3 && (f.shared[m[1]] || f.shared[m[2]]) {
		return true
	}
	for _, p := range f.allowed {
		if strings.Contains(msg, p) {
			return true
		}
	}
	return false
}

func (f *violationFilter) apply(errs []cleanarch.ValidationError) []cleanarch.ValidationError {
	var out []cleanarch.ValidationError
	for _, e := range errs {
		if !f.allows(e.Error()) {
			out = append(out, e)
		}
	}
	return out
}
