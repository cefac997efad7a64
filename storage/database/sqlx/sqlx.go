// Package sqlxrepos provides the PostgreSQL implementations of the core
// repositories, backed by jmoiron/sqlx with hand-written queries.
package sqlxrepos

import (
	"fmt"
	"strings"

	"github.com/trezcool/matokeo/core"
)

// whereClause joins conditions with AND; empty input yields an empty clause.
func whereClause(conds []string) string {
	if len(conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(conds, " AND ")
}

// orderByClause renders an ORDER BY clause, falling back to the given
// default ordering when none is provided.
func orderByClause(ordering []core.DBOrdering, deflt string) string {
	if len(ordering) == 0 {
		return " ORDER BY " + deflt
	}
	parts := make([]string, 0, len(ordering))
	for _, ord := range ordering {
		parts = append(parts, ord.String())
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}

func joinSets(sets []string) string {
	return strings.Join(sets, ", ")
}

type argList struct {
	args []interface{}
}

// add appends an arg and returns its positional placeholder ($1, $2, ...).
func (l *argList) add(arg interface{}) string {
	l.args = append(l.args, arg)
	return fmt.Sprintf("$%d", len(l.args))
}
