package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/abdul-hamid-achik/hitscript/packages/response"
	"github.com/abdul-hamid-achik/hitscript/packages/vars"
)

// environmentsFile is the YAML file environments are loaded from.
const environmentsFile = "environments.yaml"

type environmentsConfig struct {
	Environments map[string]map[string]string `yaml:"environments"`
}

// loadEnvironment reads the named environment from environments.yaml in dir.
// An empty name means no environment.
func loadEnvironment(dir, name string) (*vars.Environment, error) {
	if name == "" {
		return nil, nil
	}

	data, err := os.ReadFile(filepath.Join(dir, environmentsFile))
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", environmentsFile, err)
	}

	var cfg environmentsConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", environmentsFile, err)
	}

	values, ok := cfg.Environments[name]
	if !ok {
		return nil, fmt.Errorf("environment %q not found in %s", name, environmentsFile)
	}
	return vars.NewEnvironment(name, values), nil
}

// responseFile is the on-disk shape of a captured response.
type responseFile struct {
	Status         int               `json:"status"`
	StatusText     string            `json:"statusText"`
	Headers        map[string]string `json:"headers"`
	Body           json.RawMessage   `json:"body"`
	ResponseTimeMs int64             `json:"responseTimeMs"`
}

// loadResponse reads a captured response from a JSON file. A string body is
// unquoted; any other JSON body is kept verbatim.
func loadResponse(path string) (*response.Response, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading response file: %w", err)
	}

	var rf responseFile
	if err := json.Unmarshal(data, &rf); err != nil {
		return nil, fmt.Errorf("parsing response file: %w", err)
	}

	var body []byte
	if len(rf.Body) > 0 {
		var s string
		if err := json.Unmarshal(rf.Body, &s); err == nil {
			body = []byte(s)
		} else {
			body = []byte(rf.Body)
		}
	}

	return &response.Response{
		Status:     rf.Status,
		StatusText: rf.StatusText,
		Headers:    rf.Headers,
		Body:       body,
		Duration:   time.Duration(rf.ResponseTimeMs) * time.Millisecond,
	}, nil
}
