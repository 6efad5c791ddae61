package main

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/jdss/jdssctl/pkg/jdssconfig"
)

// loadConfigFile reads a YAML document mapping configuration keys (§6's
// recognized options table) to scalar values, the same library the teacher
// uses for its -o yaml list output, now also doing config input.
func loadConfigFile(path string) (map[string]string, error) {
	if path == "" {
		return map[string]string{}, nil
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	var doc map[string]any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return flattenConfig(doc), nil
}

// flattenConfig converts a YAML-decoded document into the string-valued map
// jdssconfig.Config wraps. Sequences are joined into the comma-separated form
// Config.StringSlice expects (e.g. san_hosts, iscsi_vip_addresses).
func flattenConfig(doc map[string]any) map[string]string {
	out := make(map[string]string, len(doc))
	for k, v := range doc {
		switch val := v.(type) {
		case string:
			out[k] = val
		case bool:
			out[k] = strconv.FormatBool(val)
		case int:
			out[k] = strconv.Itoa(val)
		case []any:
			s := ""
			for i, item := range val {
				if i > 0 {
					s += ","
				}
				s += fmt.Sprintf("%v", item)
			}
			out[k] = s
		default:
			out[k] = fmt.Sprintf("%v", val)
		}
	}
	return out
}

// applyOverrides layers CLI flag overrides on top of the loaded config file
// map; a non-empty override always wins.
func applyOverrides(values map[string]string, overrides map[string]string) map[string]string {
	for k, v := range overrides {
		if v != "" {
			values[k] = v
		}
	}
	return values
}

// newConfig builds a jdssconfig.Config from a loaded file plus overrides.
func newConfig(values map[string]string) jdssconfig.Config {
	return jdssconfig.New(values)
}
