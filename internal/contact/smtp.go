package contact

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

// SMTPConfig configures the SMTP mailer.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       string
	Timeout  time.Duration
}

var bodyTemplate = template.Must(template.New("contact").Parse(`<h2>New Contact Form Submission</h2>
<p><strong>Name:</strong> {{.Name}}</p>
<p><strong>Email:</strong> {{.Email}}</p>
<p><strong>Phone:</strong> {{.Phone}}</p>
<p><strong>Service:</strong> {{.Service}}</p>
<p><strong>Message:</strong></p>
<p>{{.Message}}</p>
`))

// SMTPMailer sends enquiries through an SMTP relay.
type SMTPMailer struct {
	client *mail.Client
	from   string
	to     string
}

// NewSMTPMailer creates a mailer. Submission uses STARTTLS with PLAIN auth
// when a username is set.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPortPolicy(mail.TLSMandatory),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}
	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating smtp client: %w", err)
	}

	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	return &SMTPMailer{client: client, from: from, to: cfg.To}, nil
}

// Send mails m to the configured recipient with the sender as reply-to.
func (s *SMTPMailer) Send(ctx context.Context, m Message) error {
	msg, err := buildMessage(s.from, s.to, m)
	if err != nil {
		return err
	}
	if err := s.client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("sending mail: %w", err)
	}
	return nil
}

func buildMessage(from, to string, m Message) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("invalid sender %q: %w", from, err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", to, err)
	}
	// Reply-To is a convenience; a malformed visitor address is dropped.
	_ = msg.ReplyTo(m.Email)
	msg.Subject("New contact message from " + oneLine(m.Name))

	body, err := renderBody(m)
	if err != nil {
		return nil, err
	}
	msg.SetBodyString(mail.TypeTextHTML, body)
	return msg, nil
}

func renderBody(m Message) (string, error) {
	var buf bytes.Buffer
	if err := bodyTemplate.Execute(&buf, m); err != nil {
		return "", fmt.Errorf("rendering mail body: %w", err)
	}
	return buf.String(), nil
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
