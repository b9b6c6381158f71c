package copyjob

import (
	"github.com/granary-project/granary/pkg/domain/copyjob/db"
)

type Interface interface {
	Database() db.Interface
}

type CopyJobConcern struct {
	db db.Interface
}

func NewConcern(dbc db.Interface) Interface {
	return &CopyJobConcern{db: dbc}
}

func (c *CopyJobConcern) Database() db.Interface {
	return c.db
}
