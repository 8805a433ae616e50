package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	htmlTemplate "html/template"
	"path/filepath"
	textTemplate "text/template"
	"time"

	"github.com/WaqasAhmad313/next-auth-app/config"
	"github.com/WaqasAhmad313/next-auth-app/services/logging"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

const (
	TemplateVerifyEmail   = "verify_email"
	TemplatePasswordReset = "password_reset"
)

//go:embed templates
var embeddedTemplates embed.FS

// Client delivers built messages. *mail.Client satisfies it.
type Client interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

type Service struct {
	config        config.MailConfig
	client        Client
	htmlTemplates *htmlTemplate.Template
	textTemplates *textTemplate.Template
	logger        *logging.Service
}

// NewService builds the dispatcher for the configured driver: "smtp" delivers
// through go-mail, "log" only records that a message would have been sent.
func NewService(cfg config.MailConfig, logger *logging.Service) (*Service, error) {
	switch cfg.Driver {
	case "smtp":
		client, err := newSMTPClient(cfg)
		if err != nil {
			logger.Error("failed to create mail client", zap.Error(err), zap.String("host", cfg.Host), zap.Int("port", cfg.Port))
			return nil, err
		}
		return NewServiceWithClient(cfg, logger, client)
	case "log", "":
		return NewServiceWithClient(cfg, logger, &logClient{logger: logger})
	default:
		return nil, fmt.Errorf("unsupported mail driver: %s (supported: smtp, log)", cfg.Driver)
	}
}

func NewServiceWithClient(cfg config.MailConfig, logger *logging.Service, client Client) (*Service, error) {
	if cfg.FromAddress == "" {
		return nil, fmt.Errorf("MAIL_FROM_ADDRESS is required")
	}

	service := &Service{
		config: cfg,
		client: client,
		logger: logger,
	}
	if err := service.loadTemplates(); err != nil {
		return nil, fmt.Errorf("failed to load mail templates: %w", err)
	}

	logger.Info("mail service initialized", zap.String("driver", cfg.Driver), zap.String("from_address", cfg.FromAddress))
	return service, nil
}

func newSMTPClient(cfg config.MailConfig) (*mail.Client, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}

	switch cfg.Encryption {
	case "ssl":
		opts = append(opts, mail.WithSSL())
	case "none":
		opts = append(opts, mail.WithTLSPortPolicy(mail.NoTLS))
	default:
		opts = append(opts, mail.WithTLSPortPolicy(mail.TLSMandatory))
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
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}
	return client, nil
}

// loadTemplates parses the embedded templates, then lets files in
// TemplatesDir with the same names replace them.
func (s *Service) loadTemplates() error {
	var err error
	s.htmlTemplates, err = htmlTemplate.ParseFS(embeddedTemplates, "templates/*.html")
	if err != nil {
		return fmt.Errorf("failed to parse HTML templates: %w", err)
	}
	s.textTemplates, err = textTemplate.ParseFS(embeddedTemplates, "templates/*.txt")
	if err != nil {
		return fmt.Errorf("failed to parse text templates: %w", err)
	}

	if s.config.TemplatesDir == "" {
		return nil
	}

	s.logger.Info("loading mail template overrides", zap.String("templates_dir", s.config.TemplatesDir))

	if matches, _ := filepath.Glob(filepath.Join(s.config.TemplatesDir, "*.html")); len(matches) > 0 {
		if s.htmlTemplates, err = s.htmlTemplates.ParseFiles(matches...); err != nil {
			return fmt.Errorf("failed to parse HTML templates: %w", err)
		}
	}
	if matches, _ := filepath.Glob(filepath.Join(s.config.TemplatesDir, "*.txt")); len(matches) > 0 {
		if s.textTemplates, err = s.textTemplates.ParseFiles(matches...); err != nil {
			return fmt.Errorf("failed to parse text templates: %w", err)
		}
	}
	return nil
}

func (s *Service) newMessage(to []string, subject string) (*mail.Msg, error) {
	message := mail.NewMsg()

	if s.config.FromName != "" {
		if err := message.FromFormat(s.config.FromName, s.config.FromAddress); err != nil {
			return nil, fmt.Errorf("failed to set FROM address: %w", err)
		}
	} else if err := message.From(s.config.FromAddress); err != nil {
		return nil, fmt.Errorf("failed to set FROM address: %w", err)
	}

	if err := message.To(to...); err != nil {
		return nil, fmt.Errorf("failed to set TO addresses: %w", err)
	}
	message.Subject(subject)
	return message, nil
}

func (s *Service) send(ctx context.Context, message *mail.Msg, to []string, subject string) error {
	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	if err := s.client.DialAndSendWithContext(ctx, message); err != nil {
		s.logger.Error("failed to send email",
			zap.Error(err),
			zap.Strings("recipients", to),
			zap.Duration("attempt_duration", time.Since(start)))
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent",
		zap.Strings("recipients", to),
		zap.String("subject", subject),
		zap.Duration("send_duration", time.Since(start)))
	return nil
}

// SendTemplate renders the named template pair and delivers it. Data is never
// logged since it carries one-time codes.
func (s *Service) SendTemplate(ctx context.Context, templateName string, to []string, subject string, data map[string]any) error {
	message, err := s.newMessage(to, subject)
	if err != nil {
		return err
	}

	if data == nil {
		data = map[string]any{}
	}
	if _, ok := data["AppName"]; !ok {
		data["AppName"] = s.config.FromName
	}

	if err := s.render(templateName, data, message); err != nil {
		s.logger.Error("failed to render template", zap.Error(err), zap.String("template", templateName))
		return fmt.Errorf("failed to render template: %w", err)
	}

	return s.send(ctx, message, to, subject)
}

func (s *Service) render(templateName string, data map[string]any, message *mail.Msg) error {
	html := s.htmlTemplates.Lookup(templateName + ".html")
	text := s.textTemplates.Lookup(templateName + ".txt")
	if html == nil && text == nil {
		return fmt.Errorf("template '%s' not found", templateName)
	}

	if html != nil {
		var buf bytes.Buffer
		if err := html.Execute(&buf, data); err != nil {
			return fmt.Errorf("failed to execute HTML template: %w", err)
		}
		message.SetBodyString(mail.TypeTextHTML, buf.String())
	}

	if text != nil {
		var buf bytes.Buffer
		if err := text.Execute(&buf, data); err != nil {
			return fmt.Errorf("failed to execute text template: %w", err)
		}
		if html != nil {
			message.AddAlternativeString(mail.TypeTextPlain, buf.String())
		} else {
			message.SetBodyString(mail.TypeTextPlain, buf.String())
		}
	}
	return nil
}

func (s *Service) SendHTML(ctx context.Context, to []string, subject, htmlBody string) error {
	message, err := s.newMessage(to, subject)
	if err != nil {
		return err
	}
	message.SetBodyString(mail.TypeTextHTML, htmlBody)
	return s.send(ctx, message, to, subject)
}

// logClient stands in for SMTP in development. It records recipients and
// subject only.
type logClient struct {
	logger *logging.Service
}

func (c *logClient) DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	for _, message := range messages {
		recipients, err := message.GetRecipients()
		if err != nil {
			return err
		}
		c.logger.Info("mail delivery skipped by log driver",
			zap.Strings("recipients", recipients),
			zap.Strings("subject", message.GetGenHeader(mail.HeaderSubject)))
	}
	return nil
}
