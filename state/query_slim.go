//go:build queryslim

package state

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// Query walks a dotted path over the store without pulling in gojq, e.g.
// "zfsDatasets[0].mountpoint". Only plain paths are supported.
func (s *Store) Query(q string) (res string, err error) {
	var parts []string
	for _, p := range strings.Split(q, ".") {
		for len(p) > 0 {
			if p[0] == '[' {
				end := strings.Index(p, "]")
				if end > 0 {
					parts = append(parts, p[1:end])
					p = p[end+1:]
					continue
				}
			}
			bracketIdx := strings.Index(p, "[")
			if bracketIdx > 0 {
				parts = append(parts, p[:bracketIdx])
				p = p[bracketIdx:]
				continue
			}
			parts = append(parts, p)
			break
		}
	}

	v := reflect.ValueOf(s.values)
	for _, part := range parts {
		for v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr {
			if v.IsNil() {
				return "", nil
			}
			v = v.Elem()
		}
		switch v.Kind() {
		case reflect.Slice, reflect.Array:
			idx, err := strconv.Atoi(part)
			if err != nil {
				return "", fmt.Errorf("cannot index list with '%s'", part)
			}
			if idx < 0 || idx >= v.Len() {
				// jq yields null for out of range indexes
				return "", nil
			}
			v = v.Index(idx)
		case reflect.Map:
			v = v.MapIndex(reflect.ValueOf(part))
			if !v.IsValid() {
				return "", nil
			}
		default:
			return "", fmt.Errorf("cannot traverse into %s", v.Kind())
		}
	}

	for v.Kind() == reflect.Interface || v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return "", nil
		}
		v = v.Elem()
	}
	if v.Kind() == reflect.String {
		return v.String(), nil
	}
	return fmt.Sprint(v.Interface()), nil
}
