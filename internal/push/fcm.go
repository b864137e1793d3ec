package push

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"

	"golang.org/x/oauth2/google"
	"golang.org/x/sync/errgroup"
	fcm "google.golang.org/api/fcm/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

// MessagingScope is the OAuth scope for the FCM HTTP v1 API.
const MessagingScope = "https://www.googleapis.com/auth/firebase.messaging"

// LoadCredentials reads a service account key file.
func LoadCredentials(ctx context.Context, path string) (*google.Credentials, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read credentials: %w", err)
	}
	creds, err := google.CredentialsFromJSON(ctx, data, MessagingScope)
	if err != nil {
		return nil, fmt.Errorf("parse credentials: %w", err)
	}
	return creds, nil
}

// FCMClient sends notifications through Firebase Cloud Messaging. The v1 API
// takes one token per request, so a multicast fans out into concurrent sends.
type FCMClient struct {
	messages    *fcm.ProjectsMessagesService
	parent      string
	concurrency int
	logger      *slog.Logger
}

func NewFCMClient(ctx context.Context, projectID string, concurrency int, logger *slog.Logger, opts ...option.ClientOption) (*FCMClient, error) {
	if projectID == "" {
		return nil, errors.New("fcm: project id is required")
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}

	svc, err := fcm.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create fcm service: %w", err)
	}

	return &FCMClient{
		messages:    svc.Projects.Messages,
		parent:      "projects/" + projectID,
		concurrency: concurrency,
		logger:      logger,
	}, nil
}

func (c *FCMClient) SendMulticast(ctx context.Context, msg Message, tokens []string) (*BatchResponse, error) {
	if len(tokens) > MaxMulticastTokens {
		return nil, fmt.Errorf("fcm: %d tokens exceeds multicast limit of %d", len(tokens), MaxMulticastTokens)
	}

	responses := make([]SendResponse, len(tokens))
	var g errgroup.Group
	g.SetLimit(c.concurrency)

	for i, token := range tokens {
		g.Go(func() error {
			responses[i] = c.send(ctx, msg, token)
			return nil
		})
	}
	g.Wait()

	br := &BatchResponse{Responses: responses}
	for _, r := range responses {
		if r.Success() {
			br.SuccessCount++
		} else {
			br.FailureCount++
		}
	}
	return br, nil
}

func (c *FCMClient) send(ctx context.Context, msg Message, token string) SendResponse {
	req := &fcm.SendMessageRequest{
		Message: &fcm.Message{
			Token: token,
			Notification: &fcm.Notification{
				Title: msg.Title,
				Body:  msg.Body,
			},
			Data: msg.Data,
		},
	}

	out, err := c.messages.Send(c.parent, req).Context(ctx).Do()
	if err != nil {
		var gerr *googleapi.Error
		if errors.As(err, &gerr) && gerr.Code == http.StatusNotFound {
			err = fmt.Errorf("%w: %v", ErrUnregistered, err)
		}
		c.logger.Debug("fcm send failed", "error", err)
		return SendResponse{Token: token, Error: err}
	}
	return SendResponse{Token: token, MessageID: out.Name}
}
