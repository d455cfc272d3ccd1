package contracts

import (
	"encoding/json"
	"testing"
)

func TestAllocation_TotalWeight(t *testing.T) {
	alloc := &Allocation{
		Positions: []Position{
			{Code: "005930", Weight: 0.30},
			{Code: "000660", Weight: 0.25},
			{Code: "035420", Weight: 0.20},
		},
		CashWeight: 0.25,
	}

	expected := 0.30 + 0.25 + 0.20
	if total := alloc.TotalWeight(); total != expected {
		t.Errorf("TotalWeight() = %v, want %v", total, expected)
	}
	if count := alloc.Count(); count != 3 {
		t.Errorf("Count() = %d, want 3", count)
	}
}

func TestAllocation_GetPosition(t *testing.T) {
	alloc := &Allocation{
		Positions: []Position{
			{Code: "005930", Name: "삼성전자", Weight: 0.5},
		},
		CashWeight: 0.5,
	}

	pos, exists := alloc.GetPosition("005930")
	if !exists {
		t.Fatal("Expected to find position for 005930")
	}
	if pos.Name != "삼성전자" {
		t.Errorf("Got name %s, want 삼성전자", pos.Name)
	}

	if _, exists := alloc.GetPosition("999999"); exists {
		t.Error("Expected not to find position for 999999")
	}
}

func TestAllocation_Validate(t *testing.T) {
	tests := []struct {
		name    string
		alloc   Allocation
		max     int
		wantErr bool
	}{
		{
			name: "valid with cash",
			alloc: Allocation{
				Positions:  []Position{{Code: "A", Weight: 0.4}, {Code: "B", Weight: 0.4}},
				CashWeight: 0.2,
			},
			max: 5,
		},
		{
			name:  "empty all cash",
			alloc: Allocation{CashWeight: 1},
			max:   5,
		},
		{
			name: "too many positions",
			alloc: Allocation{
				Positions: []Position{{Code: "A", Weight: 0.5}, {Code: "B", Weight: 0.5}},
			},
			max:     1,
			wantErr: true,
		},
		{
			name: "negative weight",
			alloc: Allocation{
				Positions:  []Position{{Code: "A", Weight: -0.1}},
				CashWeight: 1,
			},
			max:     5,
			wantErr: true,
		},
		{
			name: "sum above one",
			alloc: Allocation{
				Positions: []Position{{Code: "A", Weight: 0.7}, {Code: "B", Weight: 0.7}},
			},
			max:     5,
			wantErr: true,
		},
		{
			name: "cash inconsistent",
			alloc: Allocation{
				Positions:  []Position{{Code: "A", Weight: 0.5}},
				CashWeight: 0.2,
			},
			max:     5,
			wantErr: true,
		},
		{
			name: "duplicate code",
			alloc: Allocation{
				Positions: []Position{{Code: "A", Weight: 0.5}, {Code: "A", Weight: 0.5}},
			},
			max:     5,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.alloc.Validate(tt.max)
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAllocation_JSONSerialization(t *testing.T) {
	alloc := Allocation{
		Positions:  []Position{{Code: "005930", Name: "삼성전자", Weight: 0.5, BuyPrice: 71000}},
		CashWeight: 0.5,
		Source:     SourceHeuristic,
	}

	data, err := json.Marshal(alloc)
	if err != nil {
		t.Fatalf("Failed to marshal: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Failed to unmarshal: %v", err)
	}
	if decoded["cash_weight"] != 0.5 {
		t.Errorf("cash_weight = %v, want 0.5", decoded["cash_weight"])
	}
	if decoded["source"] != "heuristic" {
		t.Errorf("source = %v, want heuristic", decoded["source"])
	}
}
