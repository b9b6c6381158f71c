package queue

import (
	"github.com/granary-project/granary/pkg/domain/queue/db"
)

type Interface interface {
	Database() db.Interface
}

type QueueConcern struct {
	db db.Interface
}

func NewConcern(dbq db.Interface) Interface {
	return &QueueConcern{db: dbq}
}

func (q *QueueConcern) Database() db.Interface {
	return q.db
}
