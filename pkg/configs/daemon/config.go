package daemon

import (
	"time"
)

// Configuration of the publishing daemon.
//
// to get `DaemonConfig` instance, use `DaemonConfigMarshall` and `TrySeal` .
type DaemonConfig struct {
	database   string
	publisher  *PublisherConfig
	domination *DominationConfig
}

// Connection string for database.
func (d *DaemonConfig) Database() string {
	return d.database
}

// Configuration for the publisher task.
func (d *DaemonConfig) Publisher() *PublisherConfig {
	return d.publisher
}

// Configuration for the domination task.
func (d *DaemonConfig) Domination() *DominationConfig {
	return d.domination
}

type PublisherConfig struct {
	poolRoot  string
	storeRoot string
}

// Root directory of the on-disk package pool.
func (p *PublisherConfig) PoolRoot() string {
	return p.poolRoot
}

// Root directory of the upload content store.
func (p *PublisherConfig) StoreRoot() string {
	return p.storeRoot
}

type DominationConfig struct {
	stayOfExecution time.Duration
}

// Grace period a superseded publication lingers before its deletion
// is scheduled. default = 24h
func (d *DominationConfig) StayOfExecution() time.Duration {
	return d.stayOfExecution
}
