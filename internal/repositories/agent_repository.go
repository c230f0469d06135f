package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"loan-backend/internal/apperrors"
	"loan-backend/internal/models"
)

type AgentRepository struct {
	DB *pgxpool.Pool
}

func NewAgentRepository(db *pgxpool.Pool) *AgentRepository {
	return &AgentRepository{DB: db}
}

const agentSelect = `
	SELECT a.id, a.user_id, u.name, u.email, u.phone, a.area, u.is_active,
	       (SELECT COUNT(*) FROM borrowers b WHERE b.agent_id = a.id),
	       a.created_at, a.updated_at
	FROM agents a
	JOIN users u ON u.id = a.user_id`

func scanAgent(row pgx.Row) (*models.Agent, error) {
	var a models.Agent
	err := row.Scan(&a.ID, &a.UserID, &a.Name, &a.Email, &a.Phone, &a.Area, &a.IsActive,
		&a.BorrowerCount, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, mapError(err, "agent")
	}
	return &a, nil
}

func (r *AgentRepository) List(ctx context.Context) ([]models.Agent, error) {
	rows, err := r.DB.Query(ctx, agentSelect+` ORDER BY u.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	agents := []models.Agent{}
	for rows.Next() {
		a, err := scanAgent(rows)
		if err != nil {
			return nil, err
		}
		agents = append(agents, *a)
	}
	return agents, rows.Err()
}

func (r *AgentRepository) Get(ctx context.Context, id int) (*models.Agent, error) {
	return scanAgent(r.DB.QueryRow(ctx, agentSelect+` WHERE a.id=$1`, id))
}

// Create inserts the login user and its agent row in one transaction
func (r *AgentRepository) Create(ctx context.Context, user *models.User, area string) (*models.Agent, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx,
		`INSERT INTO users(name, email, phone, password_hash, role, is_active)
         VALUES($1, $2, $3, $4, $5, true)
         RETURNING id`,
		user.Name, user.Email, user.Phone, user.PasswordHash, models.RoleAgent,
	).Scan(&user.ID)
	if err != nil {
		return nil, mapError(err, "agent email")
	}

	var agentID int
	if err := tx.QueryRow(ctx,
		`INSERT INTO agents(user_id, area) VALUES($1, $2) RETURNING id`,
		user.ID, area,
	).Scan(&agentID); err != nil {
		return nil, mapError(err, "agent")
	}

	agent, err := scanAgent(tx.QueryRow(ctx, agentSelect+` WHERE a.id=$1`, agentID))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return agent, nil
}

// Update writes the user and agent columns of a; a non-empty passwordHash replaces the password
func (r *AgentRepository) Update(ctx context.Context, a *models.Agent, passwordHash string) (*models.Agent, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	if passwordHash != "" {
		_, err = tx.Exec(ctx,
			`UPDATE users SET name=$1, email=$2, phone=$3, is_active=$4, password_hash=$5, updated_at=CURRENT_TIMESTAMP
             WHERE id=$6`,
			a.Name, a.Email, a.Phone, a.IsActive, passwordHash, a.UserID)
	} else {
		_, err = tx.Exec(ctx,
			`UPDATE users SET name=$1, email=$2, phone=$3, is_active=$4, updated_at=CURRENT_TIMESTAMP
             WHERE id=$5`,
			a.Name, a.Email, a.Phone, a.IsActive, a.UserID)
	}
	if err != nil {
		return nil, mapError(err, "agent email")
	}

	tag, err := tx.Exec(ctx,
		`UPDATE agents SET area=$1, updated_at=CURRENT_TIMESTAMP WHERE id=$2`,
		a.Area, a.ID)
	if err != nil {
		return nil, mapError(err, "agent")
	}
	if tag.RowsAffected() == 0 {
		return nil, apperrors.NotFound("agent")
	}

	updated, err := scanAgent(tx.QueryRow(ctx, agentSelect+` WHERE a.id=$1`, a.ID))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes the agent and its user. It is refused while the agent owns borrowers.
func (r *AgentRepository) Delete(ctx context.Context, id int) error {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	var userID int
	if err := tx.QueryRow(ctx, `SELECT user_id FROM agents WHERE id=$1 FOR UPDATE`, id).Scan(&userID); err != nil {
		return mapError(err, "agent")
	}

	var borrowers int
	if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM borrowers WHERE agent_id=$1`, id).Scan(&borrowers); err != nil {
		return err
	}
	if borrowers > 0 {
		return apperrors.Conflict("agent still has %d borrower(s)", borrowers)
	}

	// agents row goes with the user (ON DELETE CASCADE)
	if _, err := tx.Exec(ctx, `DELETE FROM users WHERE id=$1`, userID); err != nil {
		return mapError(err, "agent")
	}
	return tx.Commit(ctx)
}

// AssignBorrowers moves every listed borrower under the agent, all or nothing
func (r *AgentRepository) AssignBorrowers(ctx context.Context, agentID int, borrowerIDs []int) (int, error) {
	tx, err := r.DB.Begin(ctx)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback(ctx)

	var exists bool
	if err := tx.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM agents WHERE id=$1)`, agentID).Scan(&exists); err != nil {
		return 0, err
	}
	if !exists {
		return 0, apperrors.NotFound("agent")
	}

	tag, err := tx.Exec(ctx,
		`UPDATE borrowers SET agent_id=$1, updated_at=CURRENT_TIMESTAMP WHERE id = ANY($2)`,
		agentID, borrowerIDs)
	if err != nil {
		return 0, mapError(err, "borrower")
	}
	if int(tag.RowsAffected()) != len(borrowerIDs) {
		return 0, apperrors.NotFound("borrower")
	}

	if err := tx.Commit(ctx); err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
