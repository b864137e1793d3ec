package whatsapp

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"
	"github.com/skip2/go-qrcode"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/store/sqlstore"
)

// LinkedClient sends messages from a WhatsApp account paired as a linked
// device. Templates are rendered to plain text before sending.
type LinkedClient struct {
	client      *whatsmeow.Client
	countryCode string
	logger      *slog.Logger
}

// NewLinkedClient opens the device session stored under dataDir. The client
// is not connected until Connect is called.
func NewLinkedClient(ctx context.Context, dataDir, countryCode string, logger *slog.Logger) (*LinkedClient, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("create session dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", filepath.Join(dataDir, "whatsmeow.db"))
	container, err := sqlstore.New(ctx, "sqlite3", dsn, nil)
	if err != nil {
		return nil, fmt.Errorf("open session store: %w", err)
	}

	device, err := container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("get device: %w", err)
	}

	return &LinkedClient{
		client:      whatsmeow.NewClient(device, nil),
		countryCode: countryCode,
		logger:      logger,
	}, nil
}

// Connect connects the session. An unpaired device prints pairing QR codes to
// out and blocks until pairing finishes or times out.
func (c *LinkedClient) Connect(ctx context.Context, out io.Writer) error {
	if c.client.Store.ID != nil {
		if err := c.client.Connect(); err != nil {
			return fmt.Errorf("connect: %w", err)
		}
		return nil
	}

	qrChan, err := c.client.GetQRChannel(ctx)
	if err != nil {
		return fmt.Errorf("get qr channel: %w", err)
	}
	if err := c.client.Connect(); err != nil {
		return fmt.Errorf("connect: %w", err)
	}

	for evt := range qrChan {
		if evt.Event != "code" {
			c.logger.Info("pairing event", "event", evt.Event)
			continue
		}
		q, err := qrcode.New(evt.Code, qrcode.Medium)
		if err != nil {
			fmt.Fprintf(out, "QR code: %s\n", evt.Code)
			continue
		}
		fmt.Fprintln(out, q.ToSmallString(false))
		fmt.Fprintln(out, "Scan with WhatsApp: Settings > Linked Devices > Link a Device")
	}

	if c.client.Store.ID == nil {
		return fmt.Errorf("pairing did not complete")
	}
	return nil
}

func (c *LinkedClient) Disconnect() {
	c.client.Disconnect()
}

// Paired returns true if the session store holds a paired device.
func (c *LinkedClient) Paired() bool {
	return c.client.Store.ID != nil
}

// Configured returns true once the device is paired and connected.
func (c *LinkedClient) Configured() bool {
	return c.client.Store.ID != nil && c.client.IsConnected()
}

func (c *LinkedClient) SendTemplate(ctx context.Context, msg TemplateMessage) (SendResult, error) {
	if !c.Configured() {
		return SendResult{}, fmt.Errorf("whatsapp session not paired or not connected")
	}

	phone := "+" + NormalizePhone(msg.To, c.countryCode)
	resp, err := c.client.IsOnWhatsApp(ctx, []string{phone})
	if err != nil {
		return SendResult{}, fmt.Errorf("check number: %w", err)
	}
	if len(resp) == 0 || !resp[0].IsIn {
		return SendResult{}, fmt.Errorf("number %s is not on WhatsApp", phone)
	}

	text := RenderTemplate(msg)
	sent, err := c.client.SendMessage(ctx, resp[0].JID, &waE2E.Message{Conversation: &text})
	if err != nil {
		return SendResult{}, fmt.Errorf("send message: %w", err)
	}

	c.logger.Debug("linked message sent", "jid", resp[0].JID.String(), "id", sent.ID)
	return SendResult{MessageID: sent.ID}, nil
}

// RenderTemplate renders a template message as plain text for channels
// without template support.
func RenderTemplate(msg TemplateMessage) string {
	param := func(i int) string {
		if i < len(msg.Params) {
			return msg.Params[i]
		}
		return ""
	}

	switch msg.Template {
	case InviteTemplate:
		return fmt.Sprintf(
			"Hi %s!\n\nYou're invited to celebrate %s.\n\nGet the app to see the events and RSVP: %s",
			param(0), param(1), param(2),
		)
	default:
		return strings.Join(msg.Params, "\n")
	}
}
