package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"time"
)

const resendURL = "https://api.resend.com/emails"

type EmailService struct {
	apiKey    string
	from      string
	endpoint  string
	client    *http.Client
	templates *template.Template
}

type EmailData struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	Html    string `json:"html"`
}

// Template data structures
type QuoteReceivedData struct {
	SessionID   uint
	Vehicle     string
	DealerName  string
	OTDPrice    float64
	AddOns      []string
	Notes       string
	ReceivedVia string
	BestPrice   float64
	IsBest      bool
}

type FollowupItem struct {
	CallID     uint
	DealerName string
	Phone      string
}

type FollowupsQueuedData struct {
	Count int
	Items []FollowupItem
	RunAt time.Time
}

func NewEmailService(apiKey, from string) (*EmailService, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("resend API key is required")
	}
	if from == "" {
		from = "CarQuote <noreply@carquote.app>"
	}

	templates, err := loadTemplates()
	if err != nil {
		return nil, fmt.Errorf("error loading email templates: %w", err)
	}

	return &EmailService{
		apiKey:    apiKey,
		from:      from,
		endpoint:  resendURL,
		client:    &http.Client{Timeout: 15 * time.Second},
		templates: templates,
	}, nil
}

// WithEndpoint points the service at another Resend-compatible URL.
func (s *EmailService) WithEndpoint(url string) *EmailService {
	s.endpoint = url
	return s
}

func (s *EmailService) sendTemplateEmail(ctx context.Context, to, subject, templateName string, data interface{}) error {
	var body bytes.Buffer
	if err := s.templates.ExecuteTemplate(&body, templateName, data); err != nil {
		return fmt.Errorf("template execution error: %w", err)
	}

	jsonData, err := json.Marshal(EmailData{
		From:    s.from,
		To:      to,
		Subject: subject,
		Html:    body.String(),
	})
	if err != nil {
		return fmt.Errorf("error marshaling email data: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(jsonData))
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("error sending email: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("error reading response body: %w", err)
	}

	slog.Debug("resend API response", "to", to, "template", templateName, "status", resp.StatusCode)

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return fmt.Errorf("resend API error: %s", string(respBody))
	}
	return nil
}

// Email sending methods
func (s *EmailService) SendQuoteReceived(ctx context.Context, to string, data QuoteReceivedData) error {
	subject := fmt.Sprintf("New quote from %s: $%.0f", data.DealerName, data.OTDPrice)
	if data.IsBest {
		subject = fmt.Sprintf("New best quote from %s: $%.0f", data.DealerName, data.OTDPrice)
	}
	return s.sendTemplateEmail(ctx, to, subject, "quote_received.html", data)
}

func (s *EmailService) SendFollowupsQueued(ctx context.Context, to string, data FollowupsQueuedData) error {
	data.Count = len(data.Items)
	subject := fmt.Sprintf("%d follow-up call(s) queued", data.Count)
	return s.sendTemplateEmail(ctx, to, subject, "followups_queued.html", data)
}
