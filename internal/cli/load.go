package cli

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Conceptual-Machines/magda-sequencer/internal/models"
	"github.com/Conceptual-Machines/magda-sequencer/pkg/embedded"
)

// LoadArrangement reads an arrangement from path. An empty path loads the
// built-in demo and "-" reads stdin. Files ending in .json are decoded as
// JSON, everything else as YAML.
func LoadArrangement(path string, stdin io.Reader) (*models.Arrangement, error) {
	switch path {
	case "":
		return DecodeArrangement(embedded.DemoArrangementYAML, "yaml")
	case "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return nil, fmt.Errorf("could not read stdin: %w", err)
		}
		return DecodeArrangement(data, "")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("could not read arrangement %s: %w", path, err)
	}
	arr, err := DecodeArrangement(data, strings.TrimPrefix(strings.ToLower(filepath.Ext(path)), "."))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return arr, nil
}

// DecodeArrangement decodes data as "json" or "yaml". An empty format
// sniffs: a document starting with '{' is JSON.
func DecodeArrangement(data []byte, format string) (*models.Arrangement, error) {
	if format == "" {
		format = "yaml"
		if bytes.HasPrefix(bytes.TrimSpace(data), []byte("{")) {
			format = "json"
		}
	}

	var arr models.Arrangement
	switch format {
	case "json":
		if err := json.Unmarshal(data, &arr); err != nil {
			return nil, fmt.Errorf("could not parse arrangement as JSON: %w", err)
		}
	case "yaml", "yml":
		if err := yaml.Unmarshal(data, &arr); err != nil {
			return nil, fmt.Errorf("could not parse arrangement as YAML: %w", err)
		}
	default:
		return nil, fmt.Errorf("unsupported arrangement format %q", format)
	}

	for _, t := range arr.Tracks {
		if !t.Role.Valid() {
			return nil, fmt.Errorf("track %q has unknown role %q", t.ID, t.Role)
		}
	}
	return &arr, nil
}
