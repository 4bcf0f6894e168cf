package core

import (
	"encoding/json"
	"strings"
	"testing"
	"time"
)

func TestValidateName(t *testing.T) {
	if err := ValidateName("Spese Mensili"); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if err := ValidateName("   "); err != ErrEmptyName {
		t.Fatalf("expected ErrEmptyName, got %v", err)
	}
	if err := ValidateName(strings.Repeat("a", 101)); err != ErrNameTooLong {
		t.Fatalf("expected ErrNameTooLong, got %v", err)
	}
}

func TestTransactionValidate(t *testing.T) {
	good := Transaction{
		Date:        NewDate(2024, 1, 5),
		Description: "Spesa settimanale",
		Amount:      Money{Cents: -4550},
		CategoryID:  1,
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Transaction{
		{Date: Date{Time: time.Time{}}, Description: "a", Amount: Money{Cents: 1}, CategoryID: 1},
		{Date: NewDate(2024, 1, 1), Description: " ", Amount: Money{Cents: 1}, CategoryID: 1},
		{Date: NewDate(2024, 1, 1), Description: "a", Amount: Money{Cents: 0}, CategoryID: 1},
		{Date: NewDate(2024, 1, 1), Description: "a", Amount: Money{Cents: 1}, CategoryID: 0},
		{Date: NewDate(2024, 1, 1), Description: strings.Repeat("x", 201), Amount: Money{Cents: 1}, CategoryID: 1},
	}
	for i, tx := range bads {
		if err := tx.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}

func TestTransactionJSONShape(t *testing.T) {
	raw := `{"id":3,"date":"2024-01-05T00:00:00.000Z","description":"Spesa settimanale","amount":-45.5,"categoryId":2}`
	var tx Transaction
	if err := json.Unmarshal([]byte(raw), &tx); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if tx.ID != 3 || tx.CategoryID != 2 || tx.Amount.Cents != -4550 {
		t.Fatalf("unexpected transaction: %+v", tx)
	}
	if !tx.Date.Equal(NewDate(2024, 1, 5).Time) {
		t.Fatalf("unexpected date: %v", tx.Date)
	}

	out, err := json.Marshal(tx)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if !strings.Contains(string(out), `"date":"2024-01-05T00:00:00.000Z"`) || !strings.Contains(string(out), `"amount":-45.50`) {
		t.Fatalf("unexpected json: %s", out)
	}
}

func TestSums(t *testing.T) {
	txs := []Transaction{{Amount: Money{Cents: 5000}}, {Amount: Money{Cents: -1234}}}
	if got := SumTransactions(txs); got.Cents != 3766 {
		t.Fatalf("category total: got %d", got.Cents)
	}
	cats := []Category{{TotalAmount: Money{Cents: 3766}}, {TotalAmount: Money{Cents: -500}}}
	if got := SumCategories(cats); got.Cents != 3266 {
		t.Fatalf("binder total: got %d", got.Cents)
	}
}

func TestChartSeries(t *testing.T) {
	var txs []Transaction
	for day := 12; day >= 1; day-- {
		txs = append(txs, Transaction{Date: NewDate(2024, 3, day), Description: "t", Amount: Money{Cents: int64(day)}})
	}
	points := ChartSeries(txs, 10)
	if len(points) != 10 {
		t.Fatalf("expected 10 points, got %d", len(points))
	}
	if points[0].Label != "03/03/2024" || points[9].Label != "12/03/2024" {
		t.Fatalf("unexpected labels: first=%s last=%s", points[0].Label, points[9].Label)
	}
	if len(ChartSeries(nil, 10)) != 0 {
		t.Fatalf("expected empty series")
	}
}
