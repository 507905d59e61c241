package resend

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kit/log/level"
	"github.com/go-resty/resty/v2"
	"github.com/kasmail/kasmail-server/email"
	"github.com/kasmail/kasmail-server/global"
	"github.com/kasmail/kasmail-server/types"
)

const DefaultApiUrl = "https://api.resend.com"

// ResendHandler relays mail through the Resend HTTP API (POST /emails)
type ResendHandler struct {
	client *resty.Client
}

type sendEmailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

type sendEmailResponse struct {
	ID string `json:"id"`
}

type resendError struct {
	StatusCode int    `json:"statusCode"`
	Name       string `json:"name"`
	Message    string `json:"message"`
}

func NewResendHandler(apiKey, apiUrl string) *ResendHandler {
	if apiUrl == "" {
		apiUrl = DefaultApiUrl
	}
	client := resty.New().
		SetBaseURL(apiUrl).
		SetTimeout(15*time.Second).
		SetAuthToken(apiKey).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")
	return &ResendHandler{client: client}
}

// GetClient exposes the resty client (tests hook httpmock into it)
func (h *ResendHandler) GetClient() *resty.Client {
	return h.client
}

var _ email.RelayHandler = (*ResendHandler)(nil)

func (h *ResendHandler) Send(ctx context.Context, mail *types.RelayMail) (string, error) {
	var result sendEmailResponse
	var apiErr resendError
	response, err := h.client.R().
		SetContext(ctx).
		ForceContentType("application/json").
		SetBody(sendEmailRequest{From: mail.From, To: []string{mail.To}, Subject: mail.Subject, Text: mail.Body}).
		SetResult(&result).
		SetError(&apiErr).
		Post("/emails")
	if err != nil {
		level.Error(global.Logger).Log("msg", "failed to reach resend", "to", mail.To, "err", err)
		return "", err
	}
	if response.IsError() {
		level.Error(global.Logger).Log("msg", "resend rejected message", "to", mail.To, "status", response.StatusCode(), "name", apiErr.Name, "message", apiErr.Message)
		if apiErr.Message != "" {
			return "", fmt.Errorf("resend: %s (%d)", apiErr.Message, response.StatusCode())
		}
		return "", fmt.Errorf("resend: unexpected status %s", response.Status())
	}
	if result.ID == "" {
		return "", fmt.Errorf("resend: response without message id")
	}
	return result.ID, nil
}
