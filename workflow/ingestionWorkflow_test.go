package workflow

import (
	"strings"
	"testing"
)

func TestParseTransactionRows(t *testing.T) {
	rows := [][]string{
		{"A-100", "SHIP-1", "100", "10.50", "usd", "2026-03-01"},
		{"", "", "", "", "", ""}, // blank row: skipped
		{"B-200", "", "50", "25", "", "2026-03-02"},
	}
	records, err := parseTransactionRows("org-1", rows)
	if err != nil {
		t.Fatalf("parseTransactionRows: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}

	first := records[0]
	if first.Sku != "A-100" || first.Currency != "USD" {
		t.Fatalf("unexpected first record: %+v", first)
	}
	if first.ShipmentRef == nil || *first.ShipmentRef != "SHIP-1" {
		t.Fatalf("expected shipment ref SHIP-1, got %v", first.ShipmentRef)
	}
	if first.Quantity.String() != "100" || first.UnitCost.String() != "10.5" {
		t.Fatalf("unexpected amounts: qty=%s cost=%s", first.Quantity, first.UnitCost)
	}

	second := records[1]
	if second.ShipmentRef != nil {
		t.Fatalf("empty shipment ref must stay nil, got %v", second.ShipmentRef)
	}
	if second.Currency != "USD" {
		t.Fatalf("missing currency must default to USD, got %s", second.Currency)
	}
}

func TestParseTransactionRowsErrors(t *testing.T) {
	cases := []struct {
		name string
		rows [][]string
		want string
	}{
		{
			"short row",
			[][]string{{"A-100", "SHIP-1", "100"}},
			"expected 6",
		},
		{
			"missing sku",
			[][]string{{"", "SHIP-1", "100", "10", "USD", "2026-03-01"}},
			"missing a SKU",
		},
		{
			"bad quantity",
			[][]string{{"A-100", "", "lots", "10", "USD", "2026-03-01"}},
			"quantity in row 2",
		},
		{
			"bad date",
			[][]string{{"A-100", "", "100", "10", "USD", "03/01/2026"}},
			"transaction date in row 2",
		},
		{
			"only blank rows",
			[][]string{{"", "", "", "", "", ""}},
			"no data rows",
		},
	}
	for _, tc := range cases {
		_, err := parseTransactionRows("org-1", tc.rows)
		if err == nil {
			t.Fatalf("%s: expected error", tc.name)
		}
		if !strings.Contains(err.Error(), tc.want) {
			t.Fatalf("%s: expected error containing %q, got %q", tc.name, tc.want, err.Error())
		}
	}
}
