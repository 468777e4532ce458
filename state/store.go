// Package state is the key-value store shared between installer jobs.
package state

import (
	"fmt"
	"os"
	"reflect"
	"sort"

	"github.com/gofrs/flock"
	"github.com/kairos-io/zfs-keyfile/constants"
	"github.com/kairos-io/zfs-keyfile/types"
	"gopkg.in/yaml.v3"
)

// Store holds pipeline state. Jobs run one after the other, so there is no
// locking on the values themselves; only writing the backing file is locked.
type Store struct {
	values map[string]interface{}
}

func New() *Store {
	return &Store{values: map[string]interface{}{}}
}

// FromMap wraps m, it is not copied.
func FromMap(m map[string]interface{}) *Store {
	if m == nil {
		m = map[string]interface{}{}
	}
	return &Store{values: m}
}

func (s *Store) Contains(key string) bool {
	_, ok := s.values[key]
	return ok
}

// Value returns nil for missing keys.
func (s *Store) Value(key string) interface{} {
	return s.values[key]
}

func (s *Store) Insert(key string, value interface{}) {
	s.values[key] = value
}

func (s *Store) Remove(key string) {
	delete(s.values, key)
}

// Keys returns the stored keys sorted.
func (s *Store) Keys() []string {
	keys := make([]string, 0, len(s.values))
	for k := range s.values {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Map returns the underlying values.
func (s *Store) Map() map[string]interface{} {
	return s.values
}

// Load reads a YAML (or JSON) document into a Store. A missing file is an empty store.
func Load(fs types.FS, path string) (*Store, error) {
	b, err := fs.ReadFile(path)
	if os.IsNotExist(err) {
		return New(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading state %s: %w", path, err)
	}

	values := map[string]interface{}{}
	if err := yaml.Unmarshal(b, &values); err != nil {
		return nil, fmt.Errorf("parsing state %s: %w", path, err)
	}
	return FromMap(values), nil
}

// Save writes the store back to path while holding <path>.lock.
func (s *Store) Save(fs types.FS, path string) error {
	raw, err := fs.RawPath(path + ".lock")
	if err != nil {
		return err
	}
	lock := flock.New(raw)
	if err := lock.Lock(); err != nil {
		return fmt.Errorf("locking state %s: %w", path, err)
	}
	defer lock.Unlock() //nolint:errcheck

	b, err := yaml.Marshal(s.values)
	if err != nil {
		return err
	}
	if err := fs.WriteFile(path, b, constants.StateFilePerm); err != nil {
		return fmt.Errorf("writing state %s: %w", path, err)
	}
	return nil
}

// Truthy mirrors how the installer treats loosely typed state values:
// nil, false, zero numbers and empty strings, maps and slices are false.
func Truthy(v interface{}) bool {
	if v == nil {
		return false
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Bool:
		return rv.Bool()
	case reflect.String, reflect.Map, reflect.Slice, reflect.Array:
		return rv.Len() > 0
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return rv.Int() != 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return rv.Uint() != 0
	case reflect.Float32, reflect.Float64:
		return rv.Float() != 0
	case reflect.Ptr, reflect.Interface:
		return !rv.IsNil()
	}
	return true
}
