package daemon

import (
	"fmt"
	"time"
)

type Marshalled[S any] interface {
	trySeal(string) S
}

// seal marshalled object.
//
// this function CAN CAUSE PANIC if misconfiguration is found.
//
// All types named `pkg/configs/daemon.XxxMarshall` are `Marshalled[*Xxx]` .
func TrySeal[S any](conf Marshalled[S]) S {
	return conf.trySeal("(root)")
}

type DaemonConfigMarshall struct {
	Database   string                    `yaml:"database"`
	Publisher  *PublisherConfigMarshall  `yaml:"publisher"`
	Domination *DominationConfigMarshall `yaml:"domination,omitempty"`
}

var _ Marshalled[*DaemonConfig] = &DaemonConfigMarshall{}

func (d *DaemonConfigMarshall) trySeal(path string) *DaemonConfig {
	domination := d.Domination
	if domination == nil {
		domination = &DominationConfigMarshall{}
	}
	return &DaemonConfig{
		database:   required(d.Database, path+".database"),
		publisher:  nonnil(d.Publisher, path+".publisher").trySeal(path + ".publisher"),
		domination: domination.trySeal(path + ".domination"),
	}
}

type PublisherConfigMarshall struct {
	PoolRoot  string `yaml:"poolRoot"`
	StoreRoot string `yaml:"storeRoot"`
}

func (pm *PublisherConfigMarshall) trySeal(path string) *PublisherConfig {
	return &PublisherConfig{
		poolRoot:  required(pm.PoolRoot, path+".poolRoot"),
		storeRoot: required(pm.StoreRoot, path+".storeRoot"),
	}
}

type DominationConfigMarshall struct {
	StayOfExecution string `yaml:"stayOfExecution,omitempty"`
}

func (dm *DominationConfigMarshall) trySeal(path string) *DominationConfig {
	stay := 24 * time.Hour
	if dm.StayOfExecution != "" {
		s, err := time.ParseDuration(dm.StayOfExecution)
		if err != nil {
			panic(fmt.Errorf("%s.stayOfExecution can not be parsed: %w", path, err))
		}
		stay = s
	}
	return &DominationConfig{
		stayOfExecution: stay,
	}
}

func nonnil[T any](v *T, path string) *T {
	if v == nil {
		panic(path + " is required")
	}
	return v
}

func required[T comparable](v T, path string) T {
	if v == *new(T) {
		panic(path + " is required")
	}
	return v
}
