// Package collector can be used to merge job configuration from different
// sources into one set of values.
package collector

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"time"

	"github.com/avast/retry-go"
	"github.com/hashicorp/go-multierror"
	"github.com/itchyny/gojq"
	"gopkg.in/yaml.v3"
)

// ValidExtensions are the file extensions parsed as YAML job configuration.
var ValidExtensions = []string{".conf", ".yaml", ".yml"}

type Configs []*Config

type ConfigValues map[string]interface{}

// Config is a merged job configuration and the sources it came from.
type Config struct {
	Sources []string
	Values  ConfigValues
}

// ErrConfigURL is wrapped by every failure to follow a config_url. Those are
// soft errors: the local values are still merged.
var ErrConfigURL = errors.New("config_url")

// MergeConfigURL looks for the "config_url" key and if it's found
// it downloads the remote config and merges it with the current one.
// Remote configs may define config_url again, the chain is followed until
// a config no longer does or points back to an URL already fetched.
func (c *Config) MergeConfigURL() error {
	return c.mergeConfigURL(map[string]bool{})
}

func (c *Config) mergeConfigURL(visited map[string]bool) error {
	configURL := c.ConfigURL()
	if configURL == "" {
		return nil
	}
	if visited[configURL] {
		return fmt.Errorf("%w: loop detected at %s", ErrConfigURL, configURL)
	}
	visited[configURL] = true

	remoteConfig, err := fetchRemoteConfig(configURL)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrConfigURL, err)
	}

	nestedErr := remoteConfig.mergeConfigURL(visited)
	if nestedErr != nil && !errors.Is(nestedErr, ErrConfigURL) {
		return nestedErr
	}

	if err := c.MergeConfig(remoteConfig); err != nil {
		return err
	}
	return nestedErr
}

func (c *Config) valuesCopy() (ConfigValues, error) {
	var result ConfigValues
	data, err := yaml.Marshal(c.Values)
	if err != nil {
		return result, err
	}

	err = yaml.Unmarshal(data, &result)

	return result, err
}

// MergeConfig merges the config passed as parameter back to the receiver Config.
func (c *Config) MergeConfig(newConfig *Config) error {
	aMap, err := c.valuesCopy()
	if err != nil {
		return err
	}
	bMap, err := newConfig.valuesCopy()
	if err != nil {
		return err
	}
	if aMap == nil {
		aMap = ConfigValues{}
	}
	if bMap == nil {
		bMap = ConfigValues{}
	}

	mergedValues, err := DeepMerge(aMap, bMap)
	if err != nil {
		return err
	}

	*c = Config{
		Sources: append(c.Sources, newConfig.Sources...),
		Values:  mergedValues.(ConfigValues),
	}

	return nil
}

func mergeSlices(sliceA, sliceB []interface{}) []interface{} {
	if len(sliceA) == 0 {
		return sliceB
	}
	// Lists of maps (for example a list of datasets) are concatenated.
	if reflect.ValueOf(sliceA[0]).Kind() == reflect.Map {
		return append(sliceA, sliceB...)
	}

	for _, vB := range sliceB {
		found := false
		for _, vA := range sliceA {
			if reflect.DeepEqual(vA, vB) {
				found = true
				break
			}
		}
		if !found {
			sliceA = append(sliceA, vB)
		}
	}

	return sliceA
}

func deepMergeMaps(a, b ConfigValues) (ConfigValues, error) {
	for k, v := range b {
		current, ok := a[k]
		if !ok {
			a[k] = v
			continue
		}
		res, err := DeepMerge(current, v)
		if err != nil {
			return a, fmt.Errorf("merging key %q: %w", k, err)
		}
		a[k] = res
	}

	return a, nil
}

// DeepMerge takes two data structures and merges them together deeply. B
// always takes precedence over A.
func DeepMerge(a, b interface{}) (interface{}, error) {
	if a == nil {
		return b, nil
	}

	typeA := reflect.TypeOf(a)

	// if b is null value, return null-value of whatever a currently is
	if b == nil {
		switch typeA.Kind() {
		case reflect.Slice:
			return reflect.MakeSlice(typeA, 0, 0).Interface(), nil
		case reflect.Map:
			return reflect.MakeMap(typeA).Interface(), nil
		}
		return reflect.Zero(typeA).Interface(), nil
	}

	typeB := reflect.TypeOf(b)
	if typeA.Kind() != typeB.Kind() {
		return ConfigValues{}, fmt.Errorf("cannot merge %s with %s", typeA.String(), typeB.String())
	}

	switch typeA.Kind() {
	case reflect.Slice:
		return mergeSlices(toSlice(a), toSlice(b)), nil
	case reflect.Map:
		return deepMergeMaps(toValues(a), toValues(b))
	}

	return b, nil
}

func toSlice(v interface{}) []interface{} {
	if s, ok := v.([]interface{}); ok {
		return s
	}
	rv := reflect.ValueOf(v)
	out := make([]interface{}, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func toValues(v interface{}) ConfigValues {
	switch m := v.(type) {
	case ConfigValues:
		return m
	case map[string]interface{}:
		return ConfigValues(m)
	}
	out := ConfigValues{}
	iter := reflect.ValueOf(v).MapRange()
	for iter.Next() {
		out[fmt.Sprint(iter.Key().Interface())] = iter.Value().Interface()
	}
	return out
}

// String returns a YAML representation of the Config, listing its sources.
func (c *Config) String() (string, error) {
	sourcesComment := ""
	if len(c.Sources) > 0 {
		sourcesComment = "# Sources:\n"
		for _, s := range c.Sources {
			sourcesComment += fmt.Sprintf("# - %s\n", s)
		}
		sourcesComment += "\n"
	}

	data, err := yaml.Marshal(c.Values)
	if err != nil {
		return "", fmt.Errorf("marshalling the config to a string: %w", err)
	}

	return sourcesComment + string(data), nil
}

// Merge merges the configs in order. Unreachable config_url chains are
// returned as soft errors alongside the result; a merge failure returns a
// nil Config.
func (cs Configs) Merge() (*Config, error) {
	var soft *multierror.Error
	result := &Config{Values: ConfigValues{}}

	for _, c := range cs {
		if err := c.MergeConfigURL(); err != nil {
			if !errors.Is(err, ErrConfigURL) {
				return nil, err
			}
			soft = multierror.Append(soft, err)
		}

		if err := result.MergeConfig(c); err != nil {
			return nil, fmt.Errorf("merging %v: %w", c.Sources, err)
		}
	}

	return result, soft.ErrorOrNil()
}

// Scan reads all the configured sources and merges them in order.
// Sources that cannot be read or parsed are skipped; the returned error then
// lists them but the merged config is still usable. When sources cannot be
// merged together the returned Config is nil.
func Scan(o *Options) (*Config, error) {
	var soft *multierror.Error

	configs := Configs{}

	fromFiles, err := parseFiles(o.Files)
	soft = multierror.Append(soft, err)
	configs = append(configs, fromFiles...)

	fromReaders, err := parseReaders(o.Readers)
	soft = multierror.Append(soft, err)
	configs = append(configs, fromReaders...)

	mergedConfig, err := configs.Merge()
	if mergedConfig == nil {
		return nil, err
	}
	soft = multierror.Append(soft, err)

	if o.Overwrites != "" {
		overwrite := &Config{Sources: []string{"overwrites"}}
		if err := yaml.Unmarshal([]byte(o.Overwrites), &overwrite.Values); err != nil {
			return nil, fmt.Errorf("parsing overwrites: %w", err)
		}
		if err := mergedConfig.MergeConfig(overwrite); err != nil {
			return nil, fmt.Errorf("applying overwrites: %w", err)
		}
	}

	return mergedConfig, soft.ErrorOrNil()
}

// parseFiles returns a list of Configs parsed from files. Files that do not
// exist are silently skipped, they are just candidate locations.
func parseFiles(files []string) (Configs, error) {
	var errs *multierror.Error
	result := Configs{}

	for _, f := range files {
		if !hasValidExtension(f) {
			errs = multierror.Append(errs, fmt.Errorf("skipping %s: unknown extension", f))
			continue
		}
		b, err := os.ReadFile(f)
		if os.IsNotExist(err) {
			continue
		}
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("reading %s: %w", f, err))
			continue
		}

		newConfig := &Config{Sources: []string{f}}
		if err := yaml.Unmarshal(b, &newConfig.Values); err != nil {
			errs = multierror.Append(errs, fmt.Errorf("parsing %s: %w", f, err))
			continue
		}

		result = append(result, newConfig)
	}

	return result, errs.ErrorOrNil()
}

// parseReaders returns a list of Configs parsed from readers holding YAML or JSON.
func parseReaders(readers []io.Reader) (Configs, error) {
	var errs *multierror.Error
	result := Configs{}

	for _, r := range readers {
		read, err := io.ReadAll(r)
		if err != nil {
			errs = multierror.Append(errs, fmt.Errorf("reading config: %w", err))
			continue
		}

		newConfig := &Config{Sources: []string{"reader"}}
		if err := yaml.Unmarshal(read, &newConfig.Values); err != nil {
			if jerr := json.Unmarshal(read, &newConfig.Values); jerr != nil {
				errs = multierror.Append(errs, fmt.Errorf("unmarshalling config: %w", err))
				continue
			}
		}
		result = append(result, newConfig)
	}

	return result, errs.ErrorOrNil()
}

func hasValidExtension(f string) bool {
	ext := filepath.Ext(f)
	for _, e := range ValidExtensions {
		if e == ext {
			return true
		}
	}
	return false
}

// ConfigURL returns the value of config_url if set or empty string otherwise.
func (c Config) ConfigURL() string {
	if val, hasKey := c.Values["config_url"]; hasKey {
		if s, isString := val.(string); isString {
			return s
		}
	}

	return ""
}

// FetchAttempts and FetchDelay control how hard a remote config is retried.
var (
	FetchAttempts uint = 3
	FetchDelay         = time.Second
)

func fetchRemoteConfig(url string) (*Config, error) {
	var body []byte
	result := &Config{}

	err := retry.Do(
		func() error {
			resp, err := http.Get(url) //nolint:gosec
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			if resp.StatusCode != http.StatusOK {
				return fmt.Errorf("unexpected status: %d", resp.StatusCode)
			}

			body, err = io.ReadAll(resp.Body)
			return err
		}, retry.Delay(FetchDelay), retry.Attempts(FetchAttempts),
	)
	if err != nil {
		return result, fmt.Errorf("fetching %s: %w", url, err)
	}

	if err := yaml.Unmarshal(body, &result.Values); err != nil {
		return result, fmt.Errorf("could not unmarshal remote config to an object: %w", err)
	}

	// Do not loop forever on a config pointing to itself.
	if result.ConfigURL() == url {
		delete(result.Values, "config_url")
	}
	result.Sources = []string{url}

	return result, nil
}

// Query runs a jq expression (without the leading dot) against the values.
// Null results are dropped.
func (c Config) Query(s string) (res string, err error) {
	var dat map[string]interface{}

	b, err := json.Marshal(c.Values)
	if err != nil {
		return res, err
	}
	if err := json.Unmarshal(b, &dat); err != nil {
		return res, err
	}

	query, err := gojq.Parse(fmt.Sprintf(".%s | if ( . | type) == \"null\" then empty else . end", s))
	if err != nil {
		return res, err
	}
	iter := query.Run(dat)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			return res, fmt.Errorf("failed parsing, error: %w", err)
		}

		out, err := yaml.Marshal(v)
		if err != nil {
			return res, err
		}
		res += string(out)
	}
	return res, nil
}
