package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
)

const defaultSendTimeout = 10 * time.Second

type sendMessageRequest struct {
	To   string `json:"to"`
	Type string `json:"type"`
	Text struct {
		Body string `json:"body"`
	} `json:"text"`
}

type sendMessageResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	MessageID string `json:"messageId"`
}

// WhatsAppGateway submits messages to a WhatsApp cloud-API compatible endpoint.
type WhatsAppGateway struct {
	client   *resty.Client
	endpoint string
}

func NewWhatsAppGateway(endpoint, token string) (*WhatsAppGateway, error) {
	client := resty.New()
	client.SetTimeout(defaultSendTimeout)
	client.SetRetryCount(0)
	client.SetAuthToken(strings.TrimSpace(token))

	return NewWhatsAppGatewayWithClient(endpoint, token, client)
}

func NewWhatsAppGatewayWithClient(endpoint, token string, client *resty.Client) (*WhatsAppGateway, error) {
	trimmedEndpoint := strings.TrimSpace(endpoint)
	if trimmedEndpoint == "" {
		return nil, fmt.Errorf("whatsapp endpoint is required")
	}
	if _, err := url.ParseRequestURI(trimmedEndpoint); err != nil {
		return nil, fmt.Errorf("invalid whatsapp endpoint: %w", err)
	}
	if strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("whatsapp api token is required")
	}
	if client == nil {
		return nil, fmt.Errorf("resty client is required")
	}

	if client.GetClient().Timeout == 0 {
		client.SetTimeout(defaultSendTimeout)
	}
	client.SetRetryCount(0)

	return &WhatsAppGateway{
		client:   client,
		endpoint: trimmedEndpoint,
	}, nil
}

func (g *WhatsAppGateway) Send(ctx context.Context, to string, body string) (*SendResult, error) {
	if g == nil || g.client == nil {
		return nil, fmt.Errorf("gateway is not initialized")
	}
	if strings.TrimSpace(to) == "" {
		return nil, fmt.Errorf("destination address is required")
	}
	if strings.TrimSpace(body) == "" {
		return nil, fmt.Errorf("message body is required")
	}

	reqBody := sendMessageRequest{
		To:   strings.TrimSpace(to),
		Type: "text",
	}
	reqBody.Text.Body = body

	response, err := g.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(reqBody).
		Post(g.endpoint)
	if err != nil {
		return nil, &ProviderError{
			Message: "provider request failed",
			Cause:   err,
		}
	}
	if response == nil {
		return nil, &ProviderError{
			Message: "provider returned empty response",
		}
	}

	statusCode := response.StatusCode()
	responseBody := strings.TrimSpace(response.String())

	if statusCode >= http.StatusOK && statusCode < http.StatusMultipleChoices {
		messageID := extractMessageID(response)
		if messageID == "" {
			return nil, &ProviderError{
				StatusCode: statusCode,
				Message:    "provider accepted the message without a message id",
			}
		}
		return &SendResult{
			StatusCode: statusCode,
			Body:       responseBody,
			MessageID:  messageID,
		}, nil
	}

	return nil, &ProviderError{
		StatusCode: statusCode,
		Message:    providerErrorMessage(statusCode, responseBody),
	}
}

// IsTimeout reports whether a send failed on the per-call deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, context.DeadlineExceeded)
}

func providerErrorMessage(statusCode int, body string) string {
	base := fmt.Sprintf("provider returned status %d", statusCode)
	if body == "" {
		return base
	}
	return Truncate(fmt.Sprintf("%s: %s", base, body))
}

func extractMessageID(response *resty.Response) string {
	if response == nil {
		return ""
	}

	var parsed sendMessageResponse
	if err := json.Unmarshal(response.Body(), &parsed); err == nil {
		if len(parsed.Messages) > 0 && strings.TrimSpace(parsed.Messages[0].ID) != "" {
			return strings.TrimSpace(parsed.Messages[0].ID)
		}
		if strings.TrimSpace(parsed.MessageID) != "" {
			return strings.TrimSpace(parsed.MessageID)
		}
	}

	for _, key := range []string{"X-Message-ID", "X-Message-Id", "X-Request-ID", "X-Request-Id"} {
		if value := strings.TrimSpace(response.Header().Get(key)); value != "" {
			return value
		}
	}

	return ""
}
