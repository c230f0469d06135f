package repositories

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"loan-backend/internal/models"
	"loan-backend/internal/timeutil"
)

func TestBorrowerWhere(t *testing.T) {
	assert.Equal(t, "", borrowerWhere(models.BorrowerFilter{}).clause())

	agent := 5
	w := borrowerWhere(models.BorrowerFilter{Search: "ram", AgentID: &agent})
	assert.Equal(t, "WHERE (b.name ILIKE $1 OR b.phone ILIKE $1 OR b.pan_id ILIKE $1) AND b.agent_id = $2", w.clause())
	assert.Equal(t, []interface{}{"%ram%", 5}, w.args)
	assert.Equal(t, 3, w.next())
}

func TestTransactionWhere(t *testing.T) {
	from := time.Date(2024, time.March, 1, 15, 0, 0, 0, timeutil.IST)
	to := time.Date(2024, time.March, 31, 0, 0, 0, 0, timeutil.IST)
	creator := 2

	w := transactionWhere(models.TransactionFilter{
		Search:    "rent",
		Type:      models.TransactionExpense,
		Category:  models.CategoryRent,
		From:      &from,
		To:        &to,
		CreatedBy: &creator,
	})

	assert.Equal(t,
		"WHERE (t.notes ILIKE $1 OR COALESCE(b.name, '') ILIKE $1) AND t.type = $2 AND t.category = $3 AND t.created_at >= $4 AND t.created_at <= $5 AND t.created_by = $6",
		w.clause())
	assert.Len(t, w.args, 6)
	assert.Equal(t, timeutil.StartOfDay(from), w.args[3])
	assert.Equal(t, timeutil.EndOfDay(to), w.args[4])
}

func TestPageOffset(t *testing.T) {
	page, limit, offset := pageOffset(0, 0)
	assert.Equal(t, []int{1, defaultPageSize, 0}, []int{page, limit, offset})

	page, limit, offset = pageOffset(3, 20)
	assert.Equal(t, []int{3, 20, 40}, []int{page, limit, offset})

	_, limit, _ = pageOffset(1, 10000)
	assert.Equal(t, maxPageSize, limit)
}
