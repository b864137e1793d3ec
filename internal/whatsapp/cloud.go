package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	DefaultBaseURL = "https://graph.facebook.com"
	APIVersion     = "v20.0"

	maxErrorBody = 4096
)

// CloudClient sends template messages through the WhatsApp Cloud API.
type CloudClient struct {
	accessToken   string
	phoneNumberID string
	baseURL       string
	httpClient    *http.Client
}

type Option func(*CloudClient)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *CloudClient) {
		cl.httpClient = c
	}
}

// WithBaseURL overrides the Graph API host.
func WithBaseURL(u string) Option {
	return func(cl *CloudClient) {
		if u != "" {
			cl.baseURL = strings.TrimRight(u, "/")
		}
	}
}

func NewCloudClient(accessToken, phoneNumberID string, opts ...Option) *CloudClient {
	c := &CloudClient{
		accessToken:   accessToken,
		phoneNumberID: phoneNumberID,
		baseURL:       DefaultBaseURL,
		httpClient:    http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured returns true if both the access token and phone number id are set.
func (c *CloudClient) Configured() bool {
	return c.accessToken != "" && c.phoneNumberID != ""
}

// Missing names the credentials that are not set.
func (c *CloudClient) Missing() []string {
	var missing []string
	if c.accessToken == "" {
		missing = append(missing, "access token")
	}
	if c.phoneNumberID == "" {
		missing = append(missing, "phone number id")
	}
	return missing
}

type cloudParameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type cloudComponent struct {
	Type       string           `json:"type"`
	Parameters []cloudParameter `json:"parameters"`
}

type cloudLanguage struct {
	Code string `json:"code"`
}

type cloudTemplate struct {
	Name       string           `json:"name"`
	Language   cloudLanguage    `json:"language"`
	Components []cloudComponent `json:"components"`
}

type cloudMessage struct {
	MessagingProduct string        `json:"messaging_product"`
	To               string        `json:"to"`
	Type             string        `json:"type"`
	Template         cloudTemplate `json:"template"`
}

type cloudResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
}

func (c *CloudClient) SendTemplate(ctx context.Context, msg TemplateMessage) (SendResult, error) {
	if !c.Configured() {
		return SendResult{}, fmt.Errorf("whatsapp client not configured: missing %s", strings.Join(c.Missing(), ", "))
	}

	params := make([]cloudParameter, len(msg.Params))
	for i, p := range msg.Params {
		params[i] = cloudParameter{Type: "text", Text: p}
	}
	payload := cloudMessage{
		MessagingProduct: "whatsapp",
		To:               msg.To,
		Type:             "template",
		Template: cloudTemplate{
			Name:       msg.Template,
			Language:   cloudLanguage{Code: msg.Language},
			Components: []cloudComponent{{Type: "body", Parameters: params}},
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return SendResult{}, fmt.Errorf("marshal message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s/messages", c.baseURL, APIVersion, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return SendResult{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.accessToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return SendResult{}, fmt.Errorf("send message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return SendResult{}, &APIError{Status: resp.StatusCode, Body: string(b)}
	}

	var out cloudResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return SendResult{}, fmt.Errorf("decode response: %w", err)
	}
	var result SendResult
	if len(out.Messages) > 0 {
		result.MessageID = out.Messages[0].ID
	}
	return result, nil
}
