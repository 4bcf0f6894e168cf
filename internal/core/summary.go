package core

import (
	"sort"
)

// ChartPoint is one bar of the category chart.
type ChartPoint struct {
	Label       string
	Description string
	Amount      Money
}

// SumTransactions returns the sum of the transaction amounts.
func SumTransactions(txs []Transaction) Money {
	var total Money
	for _, t := range txs {
		total = total.Add(t.Amount)
	}
	return total
}

// SumCategories returns the sum of the category totals.
func SumCategories(cats []Category) Money {
	var total Money
	for _, c := range cats {
		total = total.Add(c.TotalAmount)
	}
	return total
}

// ChartSeries orders transactions from oldest to newest and keeps the last
// limit of them, labelled DD/MM/YYYY.
func ChartSeries(txs []Transaction, limit int) []ChartPoint {
	sorted := make([]Transaction, len(txs))
	copy(sorted, txs)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Date.Before(sorted[j].Date.Time)
	})
	if limit > 0 && len(sorted) > limit {
		sorted = sorted[len(sorted)-limit:]
	}
	points := make([]ChartPoint, 0, len(sorted))
	for _, t := range sorted {
		points = append(points, ChartPoint{
			Label:       FormatDateIt(t.Date.Time),
			Description: t.Description,
			Amount:      t.Amount,
		})
	}
	return points
}
