package kafka

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
)

func TestMaxAgeHook(t *testing.T) {
	now := time.Date(2024, 1, 4, 9, 0, 0, 0, time.UTC)
	hook := MaxAgeHook(30*time.Second, func() time.Time { return now })

	cases := []struct {
		name string
		at   time.Time
		skip bool
	}{
		{"fresh", now.Add(-10 * time.Second), false},
		{"stale", now.Add(-time.Minute), true},
		{"no timestamp", time.Time{}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := hook.BeforeHandle(context.Background(), "quotes", kafka.Message{Time: tc.at}, nil)
			if got := errors.Is(err, ErrSkip); got != tc.skip {
				t.Fatalf("skip = %v, want %v (err %v)", got, tc.skip, err)
			}
		})
	}
}

func TestHookChainOrder(t *testing.T) {
	var order []string
	mk := func(name string) ConsumerHook {
		return HookFuncs{
			Before: func(ctx context.Context, _ string, _ kafka.Message, data []byte) (context.Context, []byte, error) {
				order = append(order, "before:"+name)
				return ctx, append(data, name...), nil
			},
			After: func(context.Context, string, kafka.Message, error) {
				order = append(order, "after:"+name)
			},
		}
	}
	chain := NewHookChain(mk("a"), nil, mk("b"))

	_, data, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, []byte(">"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	chain.AfterHandle(context.Background(), "t", kafka.Message{}, nil)

	if string(data) != ">ab" {
		t.Fatalf("payload not threaded through hooks: %q", data)
	}
	want := []string{"before:a", "before:b", "after:b", "after:a"}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestHookChainRecoversPanic(t *testing.T) {
	chain := NewHookChain(HookFuncs{
		Before: func(context.Context, string, kafka.Message, []byte) (context.Context, []byte, error) {
			panic("bad hook")
		},
	})
	if _, _, err := chain.BeforeHandle(context.Background(), "t", kafka.Message{}, nil); err == nil {
		t.Fatalf("expected panic reported as error")
	}
}

func TestBackoffWithJitter(t *testing.T) {
	for attempt := 1; attempt < 10; attempt++ {
		d := backoffWithJitter(50*time.Millisecond, time.Second, attempt)
		if d <= 0 || d > time.Second {
			t.Fatalf("attempt %d: backoff %v out of range", attempt, d)
		}
	}
}

func TestEncodeValue(t *testing.T) {
	cases := []struct {
		in   interface{}
		want string
	}{
		{[]byte("raw"), "raw"},
		{"text", "text"},
		{map[string]int{"a": 1}, `{"a":1}`},
	}
	for _, tc := range cases {
		got, err := encodeValue(tc.in)
		if err != nil || string(got) != tc.want {
			t.Fatalf("encodeValue(%v) = %q, %v", tc.in, got, err)
		}
	}
}
