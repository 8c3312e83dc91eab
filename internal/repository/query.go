package repository

import (
	"strconv"
	"strings"
)

type scanner interface {
	Scan(dest ...any) error
}

// whereClause accumulates AND-ed conditions with positional arguments.
// Every "?" in a condition refers to that condition's single argument.
type whereClause struct {
	conds []string
	args  []any
}

func (w *whereClause) add(cond string, arg any) {
	w.args = append(w.args, arg)
	w.conds = append(w.conds, strings.ReplaceAll(cond, "?", "$"+strconv.Itoa(len(w.args))))
}

func (w *whereClause) sql() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// placeholder returns the next free positional parameter and records arg.
func (w *whereClause) placeholder(arg any) string {
	w.args = append(w.args, arg)
	return "$" + strconv.Itoa(len(w.args))
}

// setClause builds the SET list of a partial UPDATE.
type setClause struct {
	cols []string
	args []any
}

func (s *setClause) set(col string, arg any) {
	s.args = append(s.args, arg)
	s.cols = append(s.cols, col+" = $"+strconv.Itoa(len(s.args)))
}

func (s *setClause) empty() bool {
	return len(s.cols) == 0
}

// update renders "UPDATE table SET ..., updated_at = NOW() WHERE id = $n".
func (s *setClause) update(table string, id any) (string, []any) {
	args := append(s.args, id)
	q := "UPDATE " + table + " SET " + strings.Join(s.cols, ", ") +
		", updated_at = NOW() WHERE id = $" + strconv.Itoa(len(args))
	return q, args
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}

func pageOffset(page, perPage, defaultPerPage int) (limit, offset int) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = defaultPerPage
	}
	return perPage, (page - 1) * perPage
}
