package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	config "github.com/anjiri1684/tutor_marketplace/configs"
	"github.com/pkg/errors"
)

const brevoEndpoint = "https://api.brevo.com/v3/smtp/email"

// BrevoService sends transactional email through Brevo's HTTP API.
type BrevoService struct {
	APIKey      string
	SenderEmail string
	SenderName  string
	Endpoint    string
	Client      *http.Client
}

type brevoPayload struct {
	Sender      map[string]string   `json:"sender"`
	To          []map[string]string `json:"to"`
	Subject     string              `json:"subject"`
	HTMLContent string              `json:"htmlContent"`
}

func NewBrevoService() *BrevoService {
	return &BrevoService{
		APIKey:      config.Config("BREVO_API_KEY"),
		SenderEmail: config.Config("EMAIL_SENDER"),
		SenderName:  config.Config("EMAIL_SENDER_NAME"),
		Endpoint:    brevoEndpoint,
		Client:      &http.Client{Timeout: 10 * time.Second},
	}
}

func (s *BrevoService) configured() bool {
	return s.APIKey != "" && s.SenderEmail != ""
}

func (s *BrevoService) Send(ctx context.Context, to Recipient, subject, html string) error {
	if to.Email == "" || !strings.Contains(to.Email, "@") {
		return fmt.Errorf("invalid recipient email: %s", to.Email)
	}

	payload := brevoPayload{
		Sender:      map[string]string{"name": s.SenderName, "email": s.SenderEmail},
		To:          []map[string]string{{"email": to.Email, "name": to.displayName()}},
		Subject:     subject,
		HTMLContent: html,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return errors.Wrap(err, "marshal brevo payload")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.Endpoint, bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "build brevo request")
	}
	req.Header.Set("accept", "application/json")
	req.Header.Set("api-key", s.APIKey)
	req.Header.Set("content-type", "application/json")

	resp, err := s.Client.Do(req)
	if err != nil {
		return errors.Wrap(err, "send brevo request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		respBody, _ := io.ReadAll(resp.Body)
		return errors.Errorf("brevo returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}
