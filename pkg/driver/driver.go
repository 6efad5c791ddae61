// Package driver implements the volume, snapshot, target, and NAS/share
// lifecycle operations on top of pkg/jdssapi, pkg/snapgraph, and
// pkg/nameid. It holds no state beyond its configuration snapshot: every
// operation re-reads the appliance before acting, so concurrent
// invocations converge rather than corrupt each other.
package driver

import (
	"github.com/jdss/jdssctl/pkg/jdssapi"
	"github.com/jdss/jdssctl/pkg/jdssconfig"
	"github.com/jdss/jdssctl/pkg/snapgraph"
)

// Driver groups the typed REST facade, the snapshot/clone graph engine,
// and the resolved configuration into the object lifecycle operations
// hang off of.
type Driver struct {
	api   *jdssapi.API
	graph *snapgraph.Engine
	cfg   jdssconfig.Config
}

// New builds a Driver over api using cfg for target/CHAP/provisioning
// defaults.
func New(api *jdssapi.API, cfg jdssconfig.Config) *Driver {
	return &Driver{api: api, graph: snapgraph.New(api), cfg: cfg}
}
