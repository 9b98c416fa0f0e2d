package inmemdb

import (
	"sync"

	"github.com/passify/backend/core/request"
	"github.com/passify/backend/core/user"
)

type (
	DB struct {
		user    *userTable
		request *requestTable
	}

	userTable struct {
		mutex sync.RWMutex
		table map[string]*user.User
	}

	requestTable struct {
		mutex sync.RWMutex
		table map[string]*request.Request
		seq   map[string]int // insertion order; breaks SubmittedAt ties
		next  int
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:    &userTable{table: make(map[string]*user.User)},
		request: &requestTable{table: make(map[string]*request.Request), seq: make(map[string]int)},
	}
	return db, nil
}
