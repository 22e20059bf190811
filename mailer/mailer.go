// Package mailer sends callback notification and confirmation email through
// the Resend API.
package mailer

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/paragondesignz/spachat/chatlog"
)

// DefaultBaseURL is the Resend API endpoint.
const DefaultBaseURL = "https://api.resend.com"

// transcriptTail bounds how much chat history a notification includes.
const transcriptTail = 5

// Mailer sends transactional email.
type Mailer struct {
	http *resty.Client
	from string
	to   string
}

// New creates a mailer. baseURL falls back to DefaultBaseURL when empty;
// from is the verified sender address and to the staff notification inbox.
func New(baseURL, apiKey, from, to string) *Mailer {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Mailer{
		http: resty.New().
			SetBaseURL(baseURL).
			SetAuthToken(apiKey).
			SetTimeout(15 * time.Second),
		from: from,
		to:   to,
	}
}

type sendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

type sendResponse struct {
	ID string `json:"id"`
}

// SendCallbackNotification emails staff that a chat visitor asked to be
// called back, including contact details and the tail of the conversation.
func (m *Mailer) SendCallbackNotification(ctx context.Context, log *chatlog.Log) (string, error) {
	name := log.UserName
	if name == "" {
		name = "A website visitor"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Callback requested</h2>")
	fmt.Fprintf(&b, "<p><strong>%s</strong> asked to be contacted.</p>", html.EscapeString(name))
	b.WriteString("<ul>")
	if log.ContactEmail != "" {
		fmt.Fprintf(&b, "<li>Email: %s</li>", html.EscapeString(log.ContactEmail))
	}
	if log.ContactPhone != "" {
		fmt.Fprintf(&b, "<li>Phone: %s</li>", html.EscapeString(log.ContactPhone))
	}
	if log.CallbackNotes != "" {
		fmt.Fprintf(&b, "<li>Notes: %s</li>", html.EscapeString(log.CallbackNotes))
	}
	b.WriteString("</ul>")

	if tail := lastMessages(log.Messages, transcriptTail); len(tail) > 0 {
		b.WriteString("<h3>Recent conversation</h3>")
		for _, msg := range tail {
			fmt.Fprintf(&b, "<p><strong>%s:</strong> %s</p>",
				html.EscapeString(string(msg.Role)),
				html.EscapeString(msg.Content))
		}
	}

	req := sendRequest{
		From:    m.from,
		To:      []string{m.to},
		Subject: fmt.Sprintf("Callback request from %s", name),
		HTML:    b.String(),
	}

	var res sendResponse
	resp, err := m.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&res).
		Post("/emails")
	if err != nil {
		return "", fmt.Errorf("sending callback notification: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("sending callback notification: status %d", resp.StatusCode())
	}
	return res.ID, nil
}

// SendCustomerConfirmation emails the visitor that their callback request
// was received.
func (m *Mailer) SendCustomerConfirmation(ctx context.Context, email, userName string) (string, error) {
	name := userName
	if name == "" || name == chatlog.AnonymousUser {
		name = "there"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "<h2>Callback request received</h2>")
	fmt.Fprintf(&b, "<p>Hi %s,</p>", html.EscapeString(name))
	b.WriteString("<p>Thank you for requesting a callback. We've received your message and one of our team members will be in touch soon.</p>")
	b.WriteString("<p>If you have any urgent questions in the meantime, feel free to continue chatting with our assistant.</p>")

	req := sendRequest{
		From:    m.from,
		To:      []string{email},
		Subject: "We received your callback request",
		HTML:    b.String(),
	}

	var res sendResponse
	resp, err := m.http.R().
		SetContext(ctx).
		SetBody(req).
		SetResult(&res).
		Post("/emails")
	if err != nil {
		return "", fmt.Errorf("sending customer confirmation: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("sending customer confirmation: status %d", resp.StatusCode())
	}
	return res.ID, nil
}

func lastMessages(messages []chatlog.Message, n int) []chatlog.Message {
	if len(messages) <= n {
		return messages
	}
	return messages[len(messages)-n:]
}
