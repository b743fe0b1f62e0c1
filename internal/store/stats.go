package store

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/fairyhunter13/inventory-admin-simulator/internal/model"
)

// ChangeStats summarizes the change log for the dashboard: totals, counts
// by entity and operation kind, and the busiest local hour of day.
type ChangeStats struct {
	TotalChanges    int `json:"totalChanges"`
	TodayChanges    int `json:"todayChanges"`
	ProductChanges  int `json:"productChanges"`
	CategoryChanges int `json:"categoryChanges"`
	Creates         int `json:"creates"`
	Updates         int `json:"updates"`
	Deletes         int `json:"deletes"`
	// BusiestHour is -1 while the log is empty. Ties resolve to the
	// lowest hour; implementation-defined, not a contract.
	BusiestHour int `json:"busiestHour"`
}

// ComputeChangeStats derives ChangeStats from a history snapshot.
func ComputeChangeStats(entries []model.ChangeEntry, now time.Time) ChangeStats {
	st := ChangeStats{TotalChanges: len(entries), BusiestHour: -1}
	var hours [24]int
	y, m, d := now.Date()
	for _, e := range entries {
		at := e.At.Local()
		if ey, em, ed := at.Date(); ey == y && em == m && ed == d {
			st.TodayChanges++
		}
		switch e.Entity {
		case model.EntityProduct:
			st.ProductChanges++
		case model.EntityCategory:
			st.CategoryChanges++
		}
		switch e.Op {
		case model.OpCreate:
			st.Creates++
		case model.OpUpdate:
			st.Updates++
		case model.OpDelete:
			st.Deletes++
		}
		hours[at.Hour()]++
	}
	if len(entries) > 0 {
		best := 0
		for h, n := range hours {
			if n > hours[best] {
				best = h
			}
		}
		st.BusiestHour = best
	}
	return st
}

// ProductPoint is one charting sample of the inventory summary.
type ProductPoint struct {
	Name  string          `json:"name"`
	Stock int             `json:"stock"`
	Price decimal.Decimal `json:"price"`
}

// InventorySummary aggregates the product collection for the dashboard.
type InventorySummary struct {
	TotalProducts int            `json:"totalProducts"`
	TotalStock    int            `json:"totalStock"`
	Series        []ProductPoint `json:"series"`
}

// Summarize derives an InventorySummary from a products snapshot.
func Summarize(products []model.Product) InventorySummary {
	sum := InventorySummary{
		TotalProducts: len(products),
		Series:        make([]ProductPoint, 0, len(products)),
	}
	for _, p := range products {
		sum.TotalStock += p.Stock
		sum.Series = append(sum.Series, ProductPoint{Name: p.Name, Stock: p.Stock, Price: p.Price})
	}
	return sum
}

// ChangeStats computes statistics over the current change log.
func (s *Store) ChangeStats() ChangeStats {
	return ComputeChangeStats(s.History(), time.Now())
}

// Summary aggregates the current product collection.
func (s *Store) Summary() InventorySummary {
	return Summarize(s.Products())
}
