package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/alecthomas/kong"
	"gopkg.in/yaml.v3"
)

// yamlConfig resolves flags from a YAML file. Keys use the flag name with
// underscores, e.g. api_key, log_level.
func yamlConfig(r io.Reader) (kong.Resolver, error) {
	values := map[string]any{}
	if err := yaml.NewDecoder(r).Decode(&values); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to decode yaml config: %w", err)
	}

	bs, err := json.Marshal(values)
	if err != nil {
		return nil, fmt.Errorf("failed to re-encode yaml config: %w", err)
	}

	return kong.JSON(bytes.NewReader(bs))
}
