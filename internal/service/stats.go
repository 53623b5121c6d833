package service

import (
	"time"

	"github.com/RoyceAzure/lab/assia/internal/domain/model"
	"github.com/shopspring/decimal"
)

// Stats 後台儀表板統計
// 營收只計算 Completed 訂單的 Total (含運費)
type Stats struct {
	RevenueToday    decimal.Decimal `json:"revenue_today"`
	RevenueWeek     decimal.Decimal `json:"revenue_week"`
	RevenueMonth    decimal.Decimal `json:"revenue_month"`
	RevenueYear     decimal.Decimal `json:"revenue_year"`
	OrderCount      int             `json:"order_count"`
	CompletedCount  int             `json:"completed_count"`
	ProcessingCount int             `json:"processing_count"`
	CancelledCount  int             `json:"cancelled_count"`
}

/*
ComputeStats
  - Today: 建立時間 >= now 所在時區的當日零點
  - Week: 建立時間 >= now - 7*24h
  - Month: 與 now 同年同月
  - Year: 與 now 同年
*/
func ComputeStats(orders []model.Order, now time.Time) Stats {
	loc := now.Location()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
	weekAgo := now.Add(-7 * 24 * time.Hour)

	stats := Stats{
		RevenueToday: decimal.Zero,
		RevenueWeek:  decimal.Zero,
		RevenueMonth: decimal.Zero,
		RevenueYear:  decimal.Zero,
		OrderCount:   len(orders),
	}

	for _, order := range orders {
		switch order.Status {
		case model.OrderStatusCompleted:
			stats.CompletedCount++
		case model.OrderStatusProcessing:
			stats.ProcessingCount++
		case model.OrderStatusCancelled:
			stats.CancelledCount++
		}

		if order.Status != model.OrderStatusCompleted {
			continue
		}

		created := order.CreatedAt.In(loc)
		if !created.Before(midnight) {
			stats.RevenueToday = stats.RevenueToday.Add(order.Total)
		}
		if !created.Before(weekAgo) {
			stats.RevenueWeek = stats.RevenueWeek.Add(order.Total)
		}
		if created.Year() == now.Year() && created.Month() == now.Month() {
			stats.RevenueMonth = stats.RevenueMonth.Add(order.Total)
		}
		if created.Year() == now.Year() {
			stats.RevenueYear = stats.RevenueYear.Add(order.Total)
		}
	}
	return stats
}
