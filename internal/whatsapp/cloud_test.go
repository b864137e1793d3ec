package whatsapp

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendTemplatePayload(t *testing.T) {
	var received cloudMessage
	var gotAuth, gotPath string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.Path
		if err := json.NewDecoder(r.Body).Decode(&received); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"messaging_product":"whatsapp","messages":[{"id":"wamid.123"}]}`))
	}))
	defer server.Close()

	client := NewCloudClient("tok", "12345", WithBaseURL(server.URL), WithHTTPClient(server.Client()))

	res, err := client.SendTemplate(context.Background(), TemplateMessage{
		To:       "+919800000001",
		Template: InviteTemplate,
		Language: InviteLanguage,
		Params:   []string{"Ann", "Sam & Alex", "https://example.com/app"},
	})
	if err != nil {
		t.Fatalf("send template: %v", err)
	}

	if res.MessageID != "wamid.123" {
		t.Errorf("message id = %q, want %q", res.MessageID, "wamid.123")
	}
	if gotAuth != "Bearer tok" {
		t.Errorf("authorization = %q, want %q", gotAuth, "Bearer tok")
	}
	if gotPath != "/v20.0/12345/messages" {
		t.Errorf("path = %q, want %q", gotPath, "/v20.0/12345/messages")
	}
	if received.MessagingProduct != "whatsapp" || received.Type != "template" {
		t.Errorf("product/type = %q/%q", received.MessagingProduct, received.Type)
	}
	if received.To != "+919800000001" {
		t.Errorf("to = %q", received.To)
	}
	if received.Template.Name != "wedding_invite_v1" || received.Template.Language.Code != "en" {
		t.Errorf("template = %+v", received.Template)
	}
	if len(received.Template.Components) != 1 || received.Template.Components[0].Type != "body" {
		t.Fatalf("components = %+v", received.Template.Components)
	}
	params := received.Template.Components[0].Parameters
	want := []string{"Ann", "Sam & Alex", "https://example.com/app"}
	if len(params) != len(want) {
		t.Fatalf("params len = %d, want %d", len(params), len(want))
	}
	for i, p := range params {
		if p.Type != "text" || p.Text != want[i] {
			t.Errorf("param %d = %+v, want text %q", i, p, want[i])
		}
	}
}

func TestSendTemplateAPIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"message":"Template name does not exist"}}`))
	}))
	defer server.Close()

	client := NewCloudClient("tok", "12345")
	client.httpClient = &http.Client{Transport: &rewriteTransport{base: http.DefaultTransport, target: server.URL}}

	_, err := client.SendTemplate(context.Background(), TemplateMessage{To: "+1555", Template: InviteTemplate})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected *APIError, got %v", err)
	}
	if apiErr.Status != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", apiErr.Status)
	}
}

func TestSendTemplateNotConfigured(t *testing.T) {
	client := NewCloudClient("", "12345")

	if client.Configured() {
		t.Fatal("expected unconfigured client")
	}
	if got := client.Missing(); len(got) != 1 || got[0] != "access token" {
		t.Errorf("missing = %v, want [access token]", got)
	}
	if _, err := client.SendTemplate(context.Background(), TemplateMessage{To: "+1555"}); err == nil {
		t.Fatal("expected error for unconfigured client")
	}
}

// rewriteTransport redirects all requests to a test server.
type rewriteTransport struct {
	base   http.RoundTripper
	target string
}

func (t *rewriteTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	req.URL.Scheme = "http"
	req.URL.Host = t.target[len("http://"):]
	return t.base.RoundTrip(req)
}
