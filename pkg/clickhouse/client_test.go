package clickhouse

import (
	"net/url"
	"testing"
	"time"
)

func TestBuildDSN(t *testing.T) {
	tests := []struct {
		name   string
		opts   []ClientOption
		scheme string
		query  map[string]string
	}{
		{
			name:   "native with defaults",
			opts:   []ClientOption{WithAddress("ch", 0), WithDatabase("tradeinfo")},
			scheme: "clickhouse",
			query:  map[string]string{"dial_timeout": "5s", "read_timeout": "10s"},
		},
		{
			name: "http with async insert",
			opts: []ClientOption{
				WithAddress("ch", 8123),
				WithHTTP(true),
				WithAsyncInsert(true, false),
				WithMaxExecutionTime(30 * time.Second),
			},
			scheme: "http",
			query: map[string]string{
				"async_insert":          "1",
				"wait_for_async_insert": "0",
				"max_execution_time":    "30",
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultClientConfig()
			for _, opt := range tt.opts {
				opt(cfg)
			}
			u, err := url.Parse(buildDSN(cfg))
			if err != nil {
				t.Fatalf("parse dsn: %v", err)
			}
			if u.Scheme != tt.scheme {
				t.Fatalf("expected scheme %q, got %q", tt.scheme, u.Scheme)
			}
			if u.User.Username() != "default" {
				t.Fatalf("expected default user, got %q", u.User.Username())
			}
			q := u.Query()
			for k, want := range tt.query {
				if got := q.Get(k); got != want {
					t.Fatalf("%s: expected %q, got %q", k, want, got)
				}
			}
		})
	}
}

func TestTableQualification(t *testing.T) {
	c := &Client{database: "tradeinfo"}
	if got := c.Table("watchlist_changes"); got != "tradeinfo.watchlist_changes" {
		t.Fatalf("unexpected table %q", got)
	}
	c = &Client{}
	if got := c.Table("watchlist_changes"); got != "watchlist_changes" {
		t.Fatalf("unexpected table %q", got)
	}
}
