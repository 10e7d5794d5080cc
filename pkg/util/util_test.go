package util

import (
	"reflect"
	"testing"
	"time"
)

func TestSplitAny(t *testing.T) {
	got := SplitAny("7203, 9984、6758\n\nAAPL\tT　8306", " ,、\n\t\r　")
	want := []string{"7203", "9984", "6758", "AAPL", "T", "8306"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	if got := SplitAny("", ","); len(got) != 0 {
		t.Fatalf("expected no fields, got %v", got)
	}
}

func TestSplitList(t *testing.T) {
	got := SplitList(" kafka-1:9092 , ,kafka-2:9092,")
	want := []string{"kafka-1:9092", "kafka-2:9092"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("got %v, want %v", got, want)
	}
}

func TestFromUnixAuto(t *testing.T) {
	want := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	if got := FromUnixAuto(want.Unix()); !got.Equal(want) {
		t.Fatalf("seconds: got %v", got)
	}
	if got := FromUnixAuto(want.UnixMilli()); !got.Equal(want) {
		t.Fatalf("millis: got %v", got)
	}
}
