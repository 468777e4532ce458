// Package config holds the typed view over the job configuration.
package config

import (
	"encoding/json"
	"fmt"

	"github.com/google/shlex"
	"github.com/kairos-io/zfs-keyfile/collector"
	"github.com/kairos-io/zfs-keyfile/constants"
	"github.com/kairos-io/zfs-keyfile/types"
	jsonschemaValidator "github.com/santhosh-tekuri/jsonschema/v5"
	jsonschemaReflector "github.com/swaggest/jsonschema-go"
	"gopkg.in/yaml.v3"
)

// ModuleConfig is the job configuration as written in zfs_keyfile_passphrase.conf.
type ModuleConfig struct {
	AlwaysPrompt  bool   `yaml:"alwaysPrompt" json:"alwaysPrompt" description:"Prompt for the passphrase even if no encrypted pool was detected"`
	AllowTerminal bool   `yaml:"allowTerminal" json:"allowTerminal" description:"Fall back to a terminal prompt when neither kdialog nor zenity is installed"`
	DialogArgs    string `yaml:"dialogArgs,omitempty" json:"dialogArgs,omitempty" description:"Extra arguments passed to every dialog invocation, shell quoted"`
}

// ExtraDialogArgs splits DialogArgs the way a shell would.
func (c ModuleConfig) ExtraDialogArgs() ([]string, error) {
	if c.DialogArgs == "" {
		return nil, nil
	}
	args, err := shlex.Split(c.DialogArgs)
	if err != nil {
		return nil, fmt.Errorf("invalid dialogArgs %q: %w", c.DialogArgs, err)
	}
	return args, nil
}

// Schema returns the JSON schema for ModuleConfig.
func Schema() ([]byte, error) {
	r := jsonschemaReflector.Reflector{}
	s, err := r.Reflect(ModuleConfig{})
	if err != nil {
		return nil, err
	}
	s.WithTitle("zfs_keyfile_passphrase job configuration")
	return json.MarshalIndent(s, "", "  ")
}

// Validate checks raw configuration values against Schema.
func Validate(values collector.ConfigValues) error {
	schema, err := Schema()
	if err != nil {
		return err
	}
	compiled, err := jsonschemaValidator.CompileString("zfs_keyfile_passphrase.json", string(schema))
	if err != nil {
		return fmt.Errorf("compiling schema: %w", err)
	}

	// The validator only understands what encoding/json produces.
	var doc interface{}
	b, err := json.Marshal(values)
	if err != nil {
		return err
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return err
	}
	if doc == nil {
		doc = map[string]interface{}{}
	}

	return compiled.Validate(doc)
}

// FromValues validates and decodes merged configuration values.
func FromValues(values collector.ConfigValues) (ModuleConfig, error) {
	c := ModuleConfig{}
	if err := Validate(values); err != nil {
		return c, fmt.Errorf("invalid configuration: %w", err)
	}

	b, err := yaml.Marshal(values)
	if err != nil {
		return c, err
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return c, err
	}
	return c, nil
}

// Collect scans the given files (or DefaultConfigFiles when none are given)
// plus any extra collector options and returns the merged values. Unreadable
// sources and unreachable config_url chains are logged and skipped, sources
// that cannot be merged together are an error.
func Collect(logger types.Logger, files []string, opts ...collector.Option) (*collector.Config, error) {
	if len(files) == 0 {
		files = constants.DefaultConfigFiles
	}

	o := &collector.Options{}
	if err := o.Apply(append([]collector.Option{collector.Files(files...)}, opts...)...); err != nil {
		return nil, err
	}

	merged, err := collector.Scan(o)
	if merged == nil {
		return nil, fmt.Errorf("collecting configuration: %w", err)
	}
	if err != nil {
		logger.Warnf("Some configuration sources were skipped: %s", err)
	}

	logger.Debugf("Loaded job configuration from %v", merged.Sources)
	return merged, nil
}

// Load collects the configuration and decodes it into a ModuleConfig.
func Load(logger types.Logger, files []string, opts ...collector.Option) (ModuleConfig, error) {
	merged, err := Collect(logger, files, opts...)
	if err != nil {
		return ModuleConfig{}, err
	}
	return FromValues(merged.Values)
}

// FromMap decodes a configuration coming from a plugin payload. A missing
// configuration means all defaults.
func FromMap(m map[string]interface{}) (ModuleConfig, error) {
	if m == nil {
		return ModuleConfig{}, nil
	}
	return FromValues(collector.ConfigValues(m))
}
