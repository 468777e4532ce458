//go:build !queryslim

package state

import (
	"encoding/json"
	"fmt"

	"github.com/itchyny/gojq"
)

// Query runs a jq path (without the leading dot) over the store, e.g.
// "zfsDatasets[0].mountpoint". Missing values yield an empty string.
func (s *Store) Query(q string) (res string, err error) {
	jsondata := map[string]interface{}{}
	dat, err := json.Marshal(s.values)
	if err != nil {
		return
	}
	if err = json.Unmarshal(dat, &jsondata); err != nil {
		return
	}
	query, err := gojq.Parse(fmt.Sprintf(".%s", q))
	if err != nil {
		return res, err
	}
	iter := query.Run(jsondata)
	for {
		v, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := v.(error); ok {
			return res, err
		}
		if v == nil {
			continue
		}
		res += fmt.Sprint(v)
	}
	return
}
