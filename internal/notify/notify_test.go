package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vbonduro/canary/internal/domain"
)

type recordingSender struct {
	sent []Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg Message) error {
	r.sent = append(r.sent, msg)
	return r.err
}

type fakeSES struct {
	input *sesv2.SendEmailInput
	err   error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.input = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("msg-1")}, nil
}

var sampleInquiry = domain.Inquiry{
	ID:          1760000000000,
	Name:        "Taro",
	Email:       "taro@example.com",
	Message:     "Can I join?\nI play **catcher**.",
	SubmittedAt: "2026-10-18 09:30",
}

func TestRenderMessage(t *testing.T) {
	out, err := RenderMessage("hello **world**\nnext line")
	require.NoError(t, err)
	assert.Contains(t, string(out), "<strong>world</strong>")
	assert.Contains(t, string(out), "<br")
}

func TestRenderMessageDropsRawHTML(t *testing.T) {
	out, err := RenderMessage("<script>alert(1)</script>")
	require.NoError(t, err)
	assert.NotContains(t, string(out), "<script>")
}

func TestInquiryNotifierSends(t *testing.T) {
	sender := &recordingSender{}
	n := NewInquiryNotifier(sender, []string{"club@example.com"}, "site@example.com")

	require.NoError(t, n.Notify(context.Background(), sampleInquiry))

	require.Len(t, sender.sent, 1)
	msg := sender.sent[0]
	assert.Equal(t, []string{"club@example.com"}, msg.To)
	assert.Equal(t, "site@example.com", msg.From)
	assert.Equal(t, "taro@example.com", msg.ReplyTo)
	assert.Contains(t, msg.Subject, "Taro")
	assert.Contains(t, msg.HTML, "<strong>catcher</strong>")
	assert.Contains(t, msg.HTML, "2026-10-18 09:30")
}

func TestInquiryNotifierEscapesHeader(t *testing.T) {
	sender := &recordingSender{}
	n := NewInquiryNotifier(sender, []string{"club@example.com"}, "")
	inq := sampleInquiry
	inq.Name = "<b>x</b>"

	require.NoError(t, n.Notify(context.Background(), inq))
	assert.Contains(t, sender.sent[0].HTML, "&lt;b&gt;x&lt;/b&gt;")
}

func TestInquiryNotifierWithoutRecipientsIsSilent(t *testing.T) {
	sender := &recordingSender{}
	n := NewInquiryNotifier(sender, nil, "site@example.com")

	require.NoError(t, n.Notify(context.Background(), sampleInquiry))
	assert.Empty(t, sender.sent)
}

func TestInquiryNotifierPropagatesSendError(t *testing.T) {
	boom := errors.New("smtp down")
	n := NewInquiryNotifier(&recordingSender{err: boom}, []string{"club@example.com"}, "")

	assert.ErrorIs(t, n.Notify(context.Background(), sampleInquiry), boom)
}

func TestSESSenderBuildsInput(t *testing.T) {
	fake := &fakeSES{}
	s := &SESSender{client: fake, from: "site@example.com"}

	err := s.Send(context.Background(), Message{
		To:      []string{"club@example.com"},
		Subject: "hi",
		HTML:    "<p>body</p>",
		ReplyTo: "taro@example.com",
	})
	require.NoError(t, err)

	require.NotNil(t, fake.input)
	assert.Equal(t, "site@example.com", aws.ToString(fake.input.FromEmailAddress))
	assert.Equal(t, []string{"club@example.com"}, fake.input.Destination.ToAddresses)
	assert.Equal(t, []string{"taro@example.com"}, fake.input.ReplyToAddresses)
	assert.Equal(t, "hi", aws.ToString(fake.input.Content.Simple.Subject.Data))
	assert.Equal(t, "<p>body</p>", aws.ToString(fake.input.Content.Simple.Body.Html.Data))
}

func TestSESSenderError(t *testing.T) {
	boom := errors.New("throttled")
	s := &SESSender{client: &fakeSES{err: boom}, from: "site@example.com"}

	assert.ErrorIs(t, s.Send(context.Background(), Message{To: []string{"a@b"}}), boom)
}

func TestNoopSender(t *testing.T) {
	assert.NoError(t, NoopSender{}.Send(context.Background(), Message{}))
}
