package repositories

import (
	"fmt"
	"strings"

	"loan-backend/internal/models"
	"loan-backend/internal/timeutil"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// whereBuilder collects AND-ed conditions with numbered placeholders
type whereBuilder struct {
	conditions []string
	args       []interface{}
}

func (w *whereBuilder) add(format string, arg interface{}) {
	w.args = append(w.args, arg)
	w.conditions = append(w.conditions, fmt.Sprintf(format, len(w.args)))
}

// addRepeated binds one argument referenced several times in the same condition
func (w *whereBuilder) addRepeated(format string, arg interface{}, times int) {
	w.args = append(w.args, arg)
	n := make([]interface{}, times)
	for i := range n {
		n[i] = len(w.args)
	}
	w.conditions = append(w.conditions, fmt.Sprintf(format, n...))
}

func (w *whereBuilder) clause() string {
	if len(w.conditions) == 0 {
		return ""
	}
	return "WHERE " + strings.Join(w.conditions, " AND ")
}

// next is the placeholder number of the next argument
func (w *whereBuilder) next() int {
	return len(w.args) + 1
}

func clampLimit(limit int) int {
	if limit <= 0 {
		return defaultPageSize
	}
	if limit > maxPageSize {
		return maxPageSize
	}
	return limit
}

// borrowerWhere builds the WHERE clause of a borrower listing
func borrowerWhere(f models.BorrowerFilter) *whereBuilder {
	w := &whereBuilder{}
	if f.Search != "" {
		w.addRepeated("(b.name ILIKE $%d OR b.phone ILIKE $%d OR b.pan_id ILIKE $%d)", "%"+f.Search+"%", 3)
	}
	if f.AgentID != nil {
		w.add("b.agent_id = $%d", *f.AgentID)
	}
	return w
}

// transactionWhere builds the WHERE clause of a ledger listing. Dates are IST calendar days, inclusive.
func transactionWhere(f models.TransactionFilter) *whereBuilder {
	w := &whereBuilder{}
	if f.Search != "" {
		w.addRepeated("(t.notes ILIKE $%d OR COALESCE(b.name, '') ILIKE $%d)", "%"+f.Search+"%", 2)
	}
	if f.Type != "" {
		w.add("t.type = $%d", string(f.Type))
	}
	if f.Category != "" {
		w.add("t.category = $%d", string(f.Category))
	}
	if f.From != nil {
		w.add("t.created_at >= $%d", timeutil.StartOfDay(*f.From))
	}
	if f.To != nil {
		w.add("t.created_at <= $%d", timeutil.EndOfDay(*f.To))
	}
	if f.CreatedBy != nil {
		w.add("t.created_by = $%d", *f.CreatedBy)
	}
	return w
}

// pageOffset converts a 1-based page into LIMIT/OFFSET values
func pageOffset(page, limit int) (int, int, int) {
	limit = clampLimit(limit)
	if page <= 0 {
		page = 1
	}
	return page, limit, (page - 1) * limit
}
