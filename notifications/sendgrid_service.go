package notifications

import (
	"context"
	"net/http"

	config "github.com/anjiri1684/tutor_marketplace/configs"
	"github.com/pkg/errors"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const (
	sendgridHost     = "https://api.sendgrid.com"
	sendgridEndpoint = "/v3/mail/send"
)

type SendGridService struct {
	key        string
	from       *sgmail.Email
	subjPrefix string
}

func NewSendGridService() *SendGridService {
	appName := config.Config("APP_NAME")
	return &SendGridService{
		key:        config.Config("SENDGRID_API_KEY"),
		from:       sgmail.NewEmail(config.Config("EMAIL_SENDER_NAME"), config.Config("EMAIL_SENDER")),
		subjPrefix: "[" + appName + "] ",
	}
}

func (s *SendGridService) configured() bool {
	return s.key != "" && s.from.Address != ""
}

func (s *SendGridService) message(to Recipient, subject, html string) *sgmail.SGMailV3 {
	p := sgmail.NewPersonalization()
	p.Subject = s.subjPrefix + subject
	p.AddTos(sgmail.NewEmail(to.displayName(), to.Email))

	m := sgmail.NewV3Mail()
	m.SetFrom(s.from)
	m.AddPersonalizations(p)
	m.AddContent(sgmail.NewContent("text/html", html))
	return m
}

func (s *SendGridService) Send(ctx context.Context, to Recipient, subject, html string) error {
	req := sendgrid.GetRequest(s.key, sendgridEndpoint, sendgridHost)
	req.Method = http.MethodPost
	req.Body = sgmail.GetRequestBody(s.message(to, subject, html))

	res, err := sendgrid.MakeRequestWithContext(ctx, req)
	if err != nil {
		return errors.Wrap(err, "send sendgrid request")
	}
	if res.StatusCode >= http.StatusBadRequest {
		return errors.Errorf("sendgrid returned %d: %s", res.StatusCode, res.Body)
	}
	return nil
}
