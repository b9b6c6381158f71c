package publishing

import (
	"github.com/granary-project/granary/pkg/domain/publishing/db"
)

type Interface interface {
	Database() db.Interface
}

type Publishing struct {
	db db.Interface
}

func New(dbp db.Interface) Interface {
	return &Publishing{db: dbp}
}

func (p *Publishing) Database() db.Interface {
	return p.db
}
