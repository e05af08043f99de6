package linkedin

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/jonypilatti/linkedinbot/internal/session"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	c := New(srv.URL, "id", "secret", "http://localhost/callback")
	c.UseToken("test-token")
	return c
}

func TestExchangeCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/oauth/v2/accessToken" {
			http.NotFound(w, r)
			return
		}
		if err := r.ParseForm(); err != nil {
			t.Fatalf("parse form: %v", err)
		}
		if got := r.PostForm.Get("code"); got != "auth-code" {
			t.Errorf("code = %q", got)
		}
		if got := r.PostForm.Get("grant_type"); got != "authorization_code" {
			t.Errorf("grant_type = %q", got)
		}
		w.Write([]byte(`{"access_token":"tok-123","expires_in":3600}`))
	})

	tok, err := c.ExchangeCode(context.Background(), "auth-code")
	if err != nil {
		t.Fatalf("ExchangeCode: %v", err)
	}
	if tok.AccessToken != "tok-123" {
		t.Errorf("token = %q", tok.AccessToken)
	}
	if tok.ExpiresAt.IsZero() {
		t.Error("ExpiresAt not set")
	}
}

func TestExchangeCode_Rejected(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
	})

	_, err := c.ExchangeCode(context.Background(), "bad-code")
	if !errors.Is(err, session.ErrAuthenticationFailed) {
		t.Errorf("got %v, want ErrAuthenticationFailed", err)
	}
}

func TestConnections_SendsBearerToken(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-token" {
			t.Errorf("Authorization = %q", got)
		}
		w.Write([]byte(`{"elements":[
			{"id":"c1","name":"Ann Lee","title":"Technical Recruiter","company":"Acme"},
			{"id":"c2","name":"Bob Ray","title":"Engineer","company":"Initech"}
		]}`))
	})

	contacts, err := c.Connections(context.Background())
	if err != nil {
		t.Fatalf("Connections: %v", err)
	}
	if len(contacts) != 2 {
		t.Fatalf("got %d contacts, want 2", len(contacts))
	}
	if contacts[0].Title != "Technical Recruiter" {
		t.Errorf("title = %q", contacts[0].Title)
	}
}

func TestRateLimitSignal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	if err := c.SendMessage(context.Background(), "c1", "hi"); !errors.Is(err, session.ErrRateLimited) {
		t.Errorf("got %v, want ErrRateLimited", err)
	}
}

func TestChallengeSignal_BeatsStatusCode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		// A checkpoint can hide behind a 429; the challenge wins.
		w.Header().Set("X-LI-Challenge", "checkpoint")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	err := c.ApplyToJob(context.Background(), "j1", "r1", "")
	if !errors.Is(err, session.ErrChallenge) {
		t.Errorf("got %v, want ErrChallenge", err)
	}
}

func TestUnauthorizedSignal(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := c.CurrentProfile(context.Background())
	if !errors.Is(err, session.ErrNotAuthenticated) {
		t.Errorf("got %v, want ErrNotAuthenticated", err)
	}
}

func TestJobDescription_StripsMarkup(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v2/jobs/j42" {
			http.NotFound(w, r)
			return
		}
		w.Write([]byte(`{"description":"<p>We need <b>Go</b> engineers.</p><script>nope()</script>"}`))
	})

	desc, err := c.JobDescription(context.Background(), "j42")
	if err != nil {
		t.Fatalf("JobDescription: %v", err)
	}
	if want := "We need Go engineers."; desc != want {
		t.Errorf("description = %q, want %q", desc, want)
	}
}

func TestStripMarkup(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"plain text", "hello world", "hello world"},
		{"nested tags", "<div><ul><li>one</li><li>two</li></ul></div>", "one two"},
		{"collapses whitespace", "<p>a\n\n   b</p>", "a b"},
		{"drops style", "<style>p{color:red}</style>visible", "visible"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := stripMarkup(tt.in); got != tt.want {
				t.Errorf("stripMarkup(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}
