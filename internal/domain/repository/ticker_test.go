package repository

import (
	"reflect"
	"testing"
)

func TestIsValidTicker(t *testing.T) {
	cases := map[string]bool{
		"7203":   true,
		"9984":   true,
		"AAPL":   true,
		"T":      true,
		"GOOGL":  true,
		"ABCDEF": false,
		"aapl":   false,
		"720":    false,
		"72030":  false,
		"72A3":   false,
		"":       false,
	}
	for code, want := range cases {
		if got := IsValidTicker(code); got != want {
			t.Errorf("IsValidTicker(%q) = %v, want %v", code, got, want)
		}
	}
}

func TestParseTickerList(t *testing.T) {
	got := ParseTickerList("7203, 9984、AAPL\nbad 12345\tMSFT,,")
	want := []string{"7203", "9984", "AAPL", "MSFT"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("unexpected codes %v", got)
	}
}

func TestParseTickerListEmpty(t *testing.T) {
	if got := ParseTickerList("  , 、 "); len(got) != 0 {
		t.Fatalf("expected no codes, got %v", got)
	}
}
