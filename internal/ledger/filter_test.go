package ledger

import (
	"reflect"
	"testing"

	"github.com/lgndcraft2/ledger/internal/money"
)

func sample() []Transaction {
	return []Transaction{
		{ID: 1, Type: Sale, Party: "Tola", Item: "Rice", Date: "2025-03-01 10:00:00", Amount: money.FromInt(5000), Balance: money.FromInt(0)},
		{ID: 2, Type: Purchase, Party: "Alhaji", Item: "Beans", Date: "2025-03-01 11:00:00", Amount: money.FromInt(8000), Balance: money.FromInt(2000)},
		{ID: 3, Type: Sale, Party: "Mama T", Item: "Yam", Date: "2025-03-02 09:30:00", Amount: money.FromInt(1200), Balance: money.FromInt(300)},
		{ID: 4, Type: Sale, Party: "Tola", Item: "Garri", Date: "2025-03-02 12:00:00", Amount: money.FromInt(700), Balance: money.FromInt(700)},
		{ID: 5, Type: Purchase, Party: "Alhaji", Item: "Oil", Date: "2025-03-03", Amount: money.FromInt(3000), Balance: money.FromInt(0)},
	}
}

func ids(txns []Transaction) []int64 {
	out := make([]int64, 0, len(txns))
	for _, t := range txns {
		out = append(out, t.ID)
	}
	return out
}

func TestFilter(t *testing.T) {
	tests := []struct {
		name string
		tab  Tab
		ft   FilterType
		want []int64
	}{
		{"debts ignores type filter", TabDebts, FilterSale, []int64{2, 3, 4}},
		{"debts with all", TabDebts, FilterAll, []int64{2, 3, 4}},
		{"history all", TabTransactions, FilterAll, []int64{1, 2, 3, 4, 5}},
		{"history sales", TabTransactions, FilterSale, []int64{1, 3, 4}},
		{"history purchases", TabTransactions, FilterPurchase, []int64{2, 5}},
		{"home behaves like history", TabHome, FilterPurchase, []int64{2, 5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ids(Filter(sample(), tt.tab, tt.ft))
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Filter() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFilterProperties(t *testing.T) {
	in := sample()
	before := sample()

	for _, tab := range []Tab{TabHome, TabTransactions, TabDebts} {
		for _, ft := range []FilterType{FilterAll, FilterSale, FilterPurchase} {
			once := Filter(in, tab, ft)
			twice := Filter(once, tab, ft)
			if !reflect.DeepEqual(ids(once), ids(twice)) {
				t.Errorf("%s/%s not idempotent: %v vs %v", tab, ft, ids(once), ids(twice))
			}

			pos := map[int64]int{}
			for i, tx := range in {
				pos[tx.ID] = i
			}
			last := -1
			for _, tx := range once {
				p, ok := pos[tx.ID]
				if !ok {
					t.Fatalf("%s/%s returned id %d not in input", tab, ft, tx.ID)
				}
				if p <= last {
					t.Fatalf("%s/%s reordered results", tab, ft)
				}
				last = p

				if tab == TabDebts && !tx.Balance.IsPositive() {
					t.Errorf("debts tab kept settled id %d", tx.ID)
				}
				if tab != TabDebts && ft != FilterAll && FilterType(tx.Type) != ft {
					t.Errorf("%s/%s kept id %d of type %s", tab, ft, tx.ID, tx.Type)
				}
			}
		}
	}

	if !reflect.DeepEqual(in, before) {
		t.Fatal("Filter mutated its input")
	}
}

func TestFilterDebtsScenario(t *testing.T) {
	txns := []Transaction{
		{ID: 10, Type: Sale, Amount: money.FromInt(1000), Balance: money.FromInt(0)},
		{ID: 11, Type: Sale, Amount: money.FromInt(1000), Balance: money.FromInt(300)},
		{ID: 12, Type: Purchase, Amount: money.FromInt(400), Balance: money.FromInt(0)},
	}
	got := Filter(txns, TabDebts, FilterAll)
	if len(got) != 1 || got[0].ID != 11 {
		t.Fatalf("debts tab = %v, want [11]", ids(got))
	}
}

func TestFilterEmpty(t *testing.T) {
	got := Filter(nil, TabDebts, FilterAll)
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", got)
	}
}

func TestPartyBalances(t *testing.T) {
	customers := PartyBalances(sample(), Sale)
	want := []PartyBalance{
		{Party: "Tola", Type: Sale, Balance: money.FromInt(700)},
		{Party: "Mama T", Type: Sale, Balance: money.FromInt(300)},
	}
	if len(customers) != len(want) {
		t.Fatalf("got %d customers, want %d", len(customers), len(want))
	}
	for i := range want {
		if customers[i].Party != want[i].Party || !customers[i].Balance.Eq(want[i].Balance) {
			t.Errorf("customers[%d] = %+v, want %+v", i, customers[i], want[i])
		}
	}

	suppliers := PartyBalances(sample(), Purchase)
	if len(suppliers) != 1 || suppliers[0].Party != "Alhaji" || !suppliers[0].Balance.Eq(money.FromInt(2000)) {
		t.Fatalf("suppliers = %+v", suppliers)
	}
}
