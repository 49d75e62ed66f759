package service

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"inmuebles_backend/internal/model"
)

// DashboardStats summarizes the tenant's portfolio.
type DashboardStats struct {
	TotalListings   int64           `json:"total_listings"`
	PublicListings  int64           `json:"public_listings"`
	LocatedListings int64           `json:"located_listings"`
	NewLeads        int64           `json:"new_leads"`
	ByOperation     []OperationStat `json:"by_operation"`
	ByCategory      []CategoryStat  `json:"by_category"`
}

type OperationStat struct {
	Operation string `json:"operation"`
	Label     string `json:"label"`
	Count     int64  `json:"count"`
}

type CategoryStat struct {
	CategoryID *uint  `json:"category_id"`
	Name       string `json:"name"`
	Count      int64  `json:"count"`
}

type StatsService struct {
	db *gorm.DB
}

func NewStatsService(db *gorm.DB) *StatsService {
	return &StatsService{db: db}
}

func (s *StatsService) Dashboard(ctx context.Context, tenantID uint) (*DashboardStats, error) {
	db := s.db.WithContext(ctx)
	props := func() *gorm.DB { return db.Model(&model.Property{}).Where("properties.company_id = ?", tenantID) }

	stats := &DashboardStats{}
	if err := props().Count(&stats.TotalListings).Error; err != nil {
		return nil, fmt.Errorf("counting properties: %w", err)
	}
	if err := props().Where("properties.is_public = ?", true).Count(&stats.PublicListings).Error; err != nil {
		return nil, fmt.Errorf("counting public properties: %w", err)
	}
	err := props().
		Joins("JOIN property_locations ON property_locations.property_id = properties.id").
		Where("property_locations.is_active = ?", true).
		Count(&stats.LocatedListings).Error
	if err != nil {
		return nil, fmt.Errorf("counting located properties: %w", err)
	}
	err = db.Model(&model.Lead{}).
		Where("company_id = ? AND status = ?", tenantID, model.LeadStatusNew).
		Count(&stats.NewLeads).Error
	if err != nil {
		return nil, fmt.Errorf("counting new leads: %w", err)
	}

	var byOperation []struct {
		Operation string
		Total     int64
	}
	if err := props().Select("operation, COUNT(*) AS total").Group("operation").Scan(&byOperation).Error; err != nil {
		return nil, fmt.Errorf("grouping by operation: %w", err)
	}
	counts := make(map[string]int64, len(byOperation))
	for _, row := range byOperation {
		counts[row.Operation] = row.Total
	}
	for _, op := range model.Operations {
		stats.ByOperation = append(stats.ByOperation, OperationStat{
			Operation: string(op),
			Label:     op.Label(),
			Count:     counts[string(op)],
		})
	}

	stats.ByCategory = []CategoryStat{}
	err = props().
		Select("properties.category_id AS category_id, COALESCE(categories.name, '') AS name, COUNT(*) AS count").
		Joins("LEFT JOIN categories ON categories.id = properties.category_id").
		Group("properties.category_id, categories.name").
		Order("count DESC, name ASC").
		Scan(&stats.ByCategory).Error
	if err != nil {
		return nil, fmt.Errorf("grouping by category: %w", err)
	}
	return stats, nil
}
