// Package notify tells the club about new contact-form inquiries by email.
package notify

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"html/template"

	"github.com/yuin/goldmark"
	gmhtml "github.com/yuin/goldmark/renderer/html"

	"github.com/vbonduro/canary/internal/domain"
)

// Message is one outgoing email.
type Message struct {
	To      []string
	From    string
	Subject string
	HTML    string
	ReplyTo string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// NoopSender drops every message.
type NoopSender struct{}

func (NoopSender) Send(context.Context, Message) error { return nil }

var markdown = goldmark.New(goldmark.WithRendererOptions(gmhtml.WithHardWraps()))

// RenderMessage renders inquiry text as HTML. Raw HTML in the input is
// not passed through.
func RenderMessage(text string) (template.HTML, error) {
	var buf bytes.Buffer
	if err := markdown.Convert([]byte(text), &buf); err != nil {
		return "", fmt.Errorf("failed to render message: %w", err)
	}
	return template.HTML(buf.String()), nil
}

// InquiryNotifier builds and sends the notification for one inquiry.
type InquiryNotifier struct {
	sender Sender
	to     []string
	from   string
}

func NewInquiryNotifier(sender Sender, to []string, from string) *InquiryNotifier {
	return &InquiryNotifier{sender: sender, to: to, from: from}
}

func (n *InquiryNotifier) Notify(ctx context.Context, inq domain.Inquiry) error {
	if len(n.to) == 0 {
		return nil
	}
	body, err := RenderMessage(inq.Message)
	if err != nil {
		return err
	}
	page := fmt.Sprintf(
		"<p><strong>%s</strong> &lt;%s&gt; (%s)</p>\n%s",
		html.EscapeString(inq.Name), html.EscapeString(inq.Email), html.EscapeString(inq.SubmittedAt), body,
	)
	return n.sender.Send(ctx, Message{
		To:      n.to,
		From:    n.from,
		Subject: "New inquiry from " + inq.Name,
		HTML:    page,
		ReplyTo: inq.Email,
	})
}
