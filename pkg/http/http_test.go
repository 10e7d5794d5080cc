package http

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
)

type sampleRequest struct {
	Code  string   `json:"code" validate:"required,upper4"`
	Name  string   `json:"name" default:"untitled" validate:"max=8"`
	Codes []string `json:"codes" validate:"omitempty,max=2"`
}

func init() {
	if err := RegisterStringValidation("upper4", func(s string) bool { return len(s) == 4 && strings.ToUpper(s) == s }); err != nil {
		panic(err)
	}
}

func bindJSON(body string) (echo.Context, *httptest.ResponseRecorder) {
	e := echo.New()
	req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

func TestReadAndValidateRequest(t *testing.T) {
	c, _ := bindJSON(`{"code":"ABCD"}`)
	var req sampleRequest
	if errs := ReadAndValidateRequest(c, &req); errs != nil {
		t.Fatalf("unexpected errors: %+v", errs)
	}
	if req.Name != "untitled" {
		t.Fatalf("default not applied: %q", req.Name)
	}
}

func TestReadAndValidateRequestErrors(t *testing.T) {
	cases := []struct {
		name  string
		body  string
		code  string
		field string
	}{
		{"missing", `{}`, "ERR_REQUIRED", "code"},
		{"custom tag", `{"code":"abcd"}`, "ERR_UPPER4", "code"},
		{"too long", `{"code":"ABCD","name":"far too long"}`, "ERR_MAX", "name"},
		{"too many", `{"code":"ABCD","codes":["A","B","C"]}`, "ERR_MAX", "codes"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c, _ := bindJSON(tc.body)
			var req sampleRequest
			errs, ok := ReadAndValidateRequest(c, &req).([]ValidationError)
			if !ok || len(errs) != 1 {
				t.Fatalf("expected one validation error, got %+v", errs)
			}
			if errs[0].Code != tc.code || errs[0].Field != tc.field {
				t.Fatalf("got %s/%s, want %s/%s", errs[0].Code, errs[0].Field, tc.code, tc.field)
			}
		})
	}
}

func TestReadAndValidateRequestMalformed(t *testing.T) {
	c, _ := bindJSON(`{"code":`)
	var req sampleRequest
	errs, ok := ReadAndValidateRequest(c, &req).([]ValidationError)
	if !ok || len(errs) != 1 || errs[0].Code != "ERR_UNKNOWN" {
		t.Fatalf("unexpected result %+v", errs)
	}
}

func TestClientBaseURLAndStatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/ok":
			_, _ = w.Write([]byte(`{"value":"` + r.URL.Query().Get("q") + `"}`))
		default:
			http.Error(w, "nope", http.StatusTeapot)
		}
	}))
	defer srv.Close()

	c := NewClient(WithBaseURL(srv.URL+"/v1/"), WithTimeout(time.Second))

	var out struct {
		Value string `json:"value"`
	}
	err := c.SendAndParse(context.Background(), &RequestOptions{
		Method:      MethodGet,
		URL:         "/ok",
		QueryParams: map[string][]string{"q": {"x"}},
	}, &out)
	if err != nil || out.Value != "x" {
		t.Fatalf("unexpected result %+v, %v", out, err)
	}

	err = c.SendAndParse(context.Background(), &RequestOptions{Method: MethodGet, URL: "missing"}, nil)
	var se *StatusError
	if !errors.As(err, &se) || se.StatusCode != http.StatusTeapot || se.Body != "nope" {
		t.Fatalf("expected StatusError, got %v", err)
	}
}

func TestHealthEndpoint(t *testing.T) {
	healthy := true
	srv := NewServer(nil, nil, func(context.Context) (map[string]interface{}, error) {
		if !healthy {
			return map[string]interface{}{"storage": "redis"}, errors.New("redis unreachable")
		}
		return map[string]interface{}{"storage": "redis"}, nil
	}, WithMetrics(false))

	rec := httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), `"status":"ok"`) {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}

	healthy = false
	rec = httptest.NewRecorder()
	srv.Echo().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusServiceUnavailable || !strings.Contains(rec.Body.String(), "redis unreachable") {
		t.Fatalf("unexpected health response %d %s", rec.Code, rec.Body.String())
	}
}

func TestAppErrorResponse(t *testing.T) {
	c, rec := bindJSON(``)
	if err := AppErrorResponse(c, NotFoundErrorf("id", "category %s not found", "cat-9")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec.Code != http.StatusNotFound || !strings.Contains(rec.Body.String(), "category cat-9 not found") {
		t.Fatalf("unexpected response %d %s", rec.Code, rec.Body.String())
	}
}
