package dummydb

import (
	"sync"

	"github.com/trezcool/matokeo/core/mark"
	"github.com/trezcool/matokeo/core/result"
	"github.com/trezcool/matokeo/core/student"
	"github.com/trezcool/matokeo/core/subject"
	"github.com/trezcool/matokeo/core/user"
)

type (
	DB struct {
		user    *userTable
		student *studentTable
		subject *subjectTable
		mark    *markTable
		result  *resultTable
	}

	userTable struct {
		sync.RWMutex
		table map[string]*user.User
	}

	studentTable struct {
		sync.RWMutex
		table map[string]*student.Student
	}

	subjectTable struct {
		sync.RWMutex
		table map[string]*subject.Subject
	}

	markTable struct {
		sync.RWMutex
		table map[string]*mark.Mark
	}

	resultTable struct {
		sync.RWMutex
		table map[string]*result.Result
	}
)

func Open() (*DB, error) {
	db := &DB{
		user:    &userTable{table: make(map[string]*user.User)},
		student: &studentTable{table: make(map[string]*student.Student)},
		subject: &subjectTable{table: make(map[string]*subject.Subject)},
		mark:    &markTable{table: make(map[string]*mark.Mark)},
		result:  &resultTable{table: make(map[string]*result.Result)},
	}
	return db, nil
}
