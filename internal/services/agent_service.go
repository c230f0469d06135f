package services

import (
	"context"
	"strings"

	"loan-backend/internal/apperrors"
	"loan-backend/internal/auth"
	"loan-backend/internal/cache"
	"loan-backend/internal/models"
)

type AgentService struct {
	Agents    AgentStore
	Borrowers BorrowerStore
}

func NewAgentService(agents AgentStore, borrowers BorrowerStore) *AgentService {
	return &AgentService{Agents: agents, Borrowers: borrowers}
}

func (s *AgentService) List(ctx context.Context) ([]models.Agent, error) {
	return s.Agents.List(ctx)
}

func (s *AgentService) Get(ctx context.Context, id int) (*models.Agent, error) {
	return s.Agents.Get(ctx, id)
}

// Create creates the AGENT login user and the agent row together
func (s *AgentService) Create(ctx context.Context, req *models.CreateAgentRequest) (*models.Agent, error) {
	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Name:         strings.TrimSpace(req.Name),
		Email:        strings.ToLower(strings.TrimSpace(req.Email)),
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: hashed,
		Role:         models.RoleAgent,
		IsActive:     true,
	}
	agent, err := s.Agents.Create(ctx, user, strings.TrimSpace(req.Area))
	if err != nil {
		return nil, err
	}
	cache.InvalidateKeys(ctx, cache.AdminStatsKey)
	return agent, nil
}

// Update applies the non-nil fields of req
func (s *AgentService) Update(ctx context.Context, id int, req *models.UpdateAgentRequest) (*models.Agent, error) {
	agent, err := s.Agents.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Name != nil {
		agent.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil {
		agent.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Phone != nil {
		agent.Phone = strings.TrimSpace(*req.Phone)
	}
	if req.Area != nil {
		agent.Area = strings.TrimSpace(*req.Area)
	}
	if req.IsActive != nil {
		agent.IsActive = *req.IsActive
	}

	var passwordHash string
	if req.Password != nil {
		passwordHash, err = auth.HashPassword(*req.Password)
		if err != nil {
			return nil, err
		}
	}
	return s.Agents.Update(ctx, agent, passwordHash)
}

// Delete removes the agent and its login. Agents that still own borrowers cannot be deleted.
func (s *AgentService) Delete(ctx context.Context, id int) error {
	if err := s.Agents.Delete(ctx, id); err != nil {
		return err
	}
	cache.InvalidateKeys(ctx, cache.AdminStatsKey, cache.AgentStatsKey(id))
	return nil
}

func (s *AgentService) ListBorrowers(ctx context.Context, id int) ([]models.Borrower, error) {
	if _, err := s.Agents.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.Borrowers.List(ctx, models.BorrowerFilter{AgentID: &id, Limit: maxPageSize})
}

// AssignBorrowers moves the listed borrowers under the agent. Duplicate ids are ignored.
func (s *AgentService) AssignBorrowers(ctx context.Context, id int, req *models.AssignBorrowersRequest) (int, error) {
	seen := make(map[int]bool, len(req.BorrowerIDs))
	ids := make([]int, 0, len(req.BorrowerIDs))
	for _, bid := range req.BorrowerIDs {
		if bid <= 0 {
			return 0, apperrors.Invalid("borrower id %d is not valid", bid)
		}
		if !seen[bid] {
			seen[bid] = true
			ids = append(ids, bid)
		}
	}
	if len(ids) == 0 {
		return 0, apperrors.Invalid("borrower_ids is required")
	}

	n, err := s.Agents.AssignBorrowers(ctx, id, ids)
	if err != nil {
		return 0, err
	}
	// counts move between agents
	cache.InvalidateStatsCaches(ctx)
	return n, nil
}

const maxPageSize = 500
