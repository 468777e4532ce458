// Package keyfile captures the ZFS encryption passphrase during installation
// so a keyfile can be created for unattended boot.
package keyfile

import (
	"reflect"

	"github.com/kairos-io/zfs-keyfile/config"
	"github.com/kairos-io/zfs-keyfile/constants"
	"github.com/kairos-io/zfs-keyfile/state"
)

// StateReader is the read side of the pipeline state.
type StateReader interface {
	Contains(key string) bool
	Value(key string) interface{}
}

// StateStore is the pipeline state the job publishes its result to.
type StateStore interface {
	StateReader
	Insert(key string, value interface{})
}

// ShouldPrompt decides whether the passphrase has to be asked for.
//
// Any dataset record on a present pool counts as "encryption may be
// configured". The encryption property of the datasets is not inspected.
func ShouldPrompt(cfg config.ModuleConfig, st StateReader) bool {
	if cfg.AlwaysPrompt {
		return true
	}

	if !st.Contains(constants.StateKeyPoolInfo) || !state.Truthy(st.Value(constants.StateKeyPoolInfo)) {
		return false
	}

	datasets := st.Value(constants.StateKeyDatasets)
	if !state.Truthy(datasets) {
		return false
	}

	rv := reflect.ValueOf(datasets)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return false
	}
	for i := 0; i < rv.Len(); i++ {
		if isMapping(rv.Index(i).Interface()) {
			return true
		}
	}

	return false
}

func isMapping(v interface{}) bool {
	return v != nil && reflect.ValueOf(v).Kind() == reflect.Map
}
