package services

import (
	"context"
	"encoding/json"

	"loan-backend/internal/cache"
	"loan-backend/internal/loancalc"
	"loan-backend/internal/models"
	"loan-backend/internal/timeutil"
)

type StatsService struct {
	Stats StatsStore
	Now   timeutil.Clock
}

func NewStatsService(stats StatsStore) *StatsService {
	return &StatsService{Stats: stats, Now: timeutil.Now}
}

// todayScope covers the IST calendar day of now
func todayScope(now timeutil.Clock, agentID *int) models.StatsScope {
	t := now()
	return models.StatsScope{
		AgentID: agentID,
		From:    timeutil.StartOfDay(t),
		To:      timeutil.EndOfDay(t),
	}
}

// AdminStats is the whole-book dashboard, cached for a minute
func (s *StatsService) AdminStats(ctx context.Context) (*models.AdminStats, error) {
	var cached models.AdminStats
	if data, ok := cache.GetCached(ctx, cache.AdminStatsKey); ok && json.Unmarshal(data, &cached) == nil {
		return &cached, nil
	}

	scope := todayScope(s.Now, nil)
	agents, borrowers, active, err := s.Stats.Counts(ctx, scope)
	if err != nil {
		return nil, err
	}
	collected, err := s.Stats.CollectionTotals(ctx, scope)
	if err != nil {
		return nil, err
	}
	installments, err := s.Stats.InstallmentTotals(ctx, scope)
	if err != nil {
		return nil, err
	}
	ledger, err := s.Stats.LedgerTotals(ctx)
	if err != nil {
		return nil, err
	}

	stats := &models.AdminStats{
		Agents:         agents,
		Borrowers:      borrowers,
		ActiveLoans:    active,
		CollectedToday: *collected,
		Installments:   *installments,
		Profit:         loancalc.ComputeProfit(ledger),
		GeneratedAt:    s.Now(),
	}
	if data, err := json.Marshal(stats); err == nil {
		cache.SetCached(ctx, cache.AdminStatsKey, data, cache.DefaultStatsTTL)
	}
	return stats, nil
}

// WarmAdminStats fills the admin dashboard cache in the background
func (s *StatsService) WarmAdminStats() {
	cache.PreWarmKey(cache.AdminStatsKey, func(ctx context.Context) ([]byte, error) {
		stats, err := s.AdminStats(ctx)
		if err != nil {
			return nil, err
		}
		return json.Marshal(stats)
	}, cache.DefaultStatsTTL)
}

// AgentStats covers the borrowers assigned to one agent
func (s *StatsService) AgentStats(ctx context.Context, agentID int) (*models.AgentStats, error) {
	key := cache.AgentStatsKey(agentID)
	var cached models.AgentStats
	if data, ok := cache.GetCached(ctx, key); ok && json.Unmarshal(data, &cached) == nil {
		return &cached, nil
	}

	scope := todayScope(s.Now, &agentID)
	_, borrowers, active, err := s.Stats.Counts(ctx, scope)
	if err != nil {
		return nil, err
	}
	collected, err := s.Stats.CollectionTotals(ctx, scope)
	if err != nil {
		return nil, err
	}
	installments, err := s.Stats.InstallmentTotals(ctx, scope)
	if err != nil {
		return nil, err
	}

	stats := &models.AgentStats{
		AgentID:        agentID,
		Borrowers:      borrowers,
		ActiveLoans:    active,
		CollectedToday: *collected,
		Installments:   *installments,
		GeneratedAt:    s.Now(),
	}
	if data, err := json.Marshal(stats); err == nil {
		cache.SetCached(ctx, key, data, cache.DefaultStatsTTL)
	}
	return stats, nil
}
