package registry

import (
	"github.com/granary-project/granary/pkg/domain/registry/db"
)

type Interface interface {
	Database() db.Interface
}

type Registry struct {
	db db.Interface
}

func New(dbr db.Interface) Interface {
	return &Registry{db: dbr}
}

func (r *Registry) Database() db.Interface {
	return r.db
}
