package keyfile_test

import (
	"github.com/kairos-io/zfs-keyfile/config"
	"github.com/kairos-io/zfs-keyfile/keyfile"
	"github.com/kairos-io/zfs-keyfile/state"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("ShouldPrompt", func() {
	pool := map[string]interface{}{"name": "zpcachyos", "encrypted": true}
	dataset := map[string]interface{}{"zpool": "zpcachyos", "name": "ROOT/cos/root", "mountpoint": "/"}

	DescribeTable("deciding from the pipeline state",
		func(alwaysPrompt bool, values map[string]interface{}, expected bool) {
			cfg := config.ModuleConfig{AlwaysPrompt: alwaysPrompt}
			Expect(keyfile.ShouldPrompt(cfg, state.FromMap(values))).To(Equal(expected))
		},
		Entry("empty state", false, map[string]interface{}{}, false),
		Entry("empty state with alwaysPrompt", true, map[string]interface{}{}, true),
		Entry("pool info without datasets", false, map[string]interface{}{"zfsPoolInfo": pool}, false),
		Entry("datasets without pool info", false, map[string]interface{}{"zfsDatasets": []interface{}{dataset}}, false),
		Entry("empty pool info", false, map[string]interface{}{
			"zfsPoolInfo": map[string]interface{}{},
			"zfsDatasets": []interface{}{dataset},
		}, false),
		Entry("pool info and one dataset", false, map[string]interface{}{
			"zfsPoolInfo": pool,
			"zfsDatasets": []interface{}{dataset},
		}, true),
		Entry("empty dataset list", false, map[string]interface{}{
			"zfsPoolInfo": pool,
			"zfsDatasets": []interface{}{},
		}, false),
		Entry("datasets is not a list", false, map[string]interface{}{
			"zfsPoolInfo": pool,
			"zfsDatasets": "ROOT/cos/root",
		}, false),
		Entry("no dataset is a mapping", false, map[string]interface{}{
			"zfsPoolInfo": pool,
			"zfsDatasets": []interface{}{"ROOT/cos/root", 3, nil},
		}, false),
		Entry("one mapping among other items", false, map[string]interface{}{
			"zfsPoolInfo": pool,
			"zfsDatasets": []interface{}{"ROOT/cos/root", dataset},
		}, true),
		Entry("unencrypted pool still counts", false, map[string]interface{}{
			"zfsPoolInfo": map[string]interface{}{"name": "zpcachyos", "encrypted": false},
			"zfsDatasets": []interface{}{dataset},
		}, true),
		Entry("alwaysPrompt wins over missing datasets", true, map[string]interface{}{"zfsPoolInfo": pool}, true),
	)
})
