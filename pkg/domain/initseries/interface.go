package initseries

import (
	"github.com/granary-project/granary/pkg/domain/initseries/db"
)

type Interface interface {
	Database() db.Interface
}

type InitSeriesConcern struct {
	db db.Interface
}

func NewConcern(dbi db.Interface) Interface {
	return &InitSeriesConcern{db: dbi}
}

func (i *InitSeriesConcern) Database() db.Interface {
	return i.db
}
