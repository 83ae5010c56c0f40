package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/fenilmodi00/ipo-alert-bot/shared"
	"github.com/sirupsen/logrus"
)

// maxTelegramResponseBytes bounds how much of a Bot API response is read
const maxTelegramResponseBytes = 1 << 20

// telegramResponse is the envelope every Bot API method returns
type telegramResponse struct {
	OK          bool            `json:"ok"`
	Description string          `json:"description"`
	ErrorCode   int             `json:"error_code"`
	Result      json.RawMessage `json:"result"`
}

// TelegramNotifier delivers notifications to a single chat through the Telegram Bot API.
// The bot token is part of every request URL and is never logged or put in an error message.
type TelegramNotifier struct {
	apiURL string
	token  string
	chatID string
	client *http.Client
}

// NewTelegramNotifier creates a notifier for chatID
func NewTelegramNotifier(apiURL, token, chatID string, clientFactory *shared.HTTPClientFactory, timeout time.Duration) *TelegramNotifier {
	if clientFactory == nil {
		clientFactory = shared.NewHTTPClientFactory(timeout)
	}
	return &TelegramNotifier{
		apiURL: strings.TrimRight(apiURL, "/"),
		token:  token,
		chatID: chatID,
		client: clientFactory.CreateHTTPClient(timeout),
	}
}

// Deliver implements Notifier with a single sendMessage attempt
func (n *TelegramNotifier) Deliver(ctx context.Context, text string) shared.DeliveryResult {
	logger := logrus.WithFields(logrus.Fields{
		"component": "TelegramNotifier",
		"method":    "Deliver",
	})

	form := url.Values{}
	form.Set("chat_id", n.chatID)
	form.Set("text", text)
	form.Set("disable_web_page_preview", "true")

	if _, err := n.call(ctx, "sendMessage", form); err != nil {
		serviceErr := shared.WrapError(err, shared.ErrorCategoryNetwork, shared.CodeDeliveryFailed, "TelegramNotifier", "Deliver", true)
		return shared.DeliveryFailure(serviceErr)
	}

	logger.Debug("Notification delivered")
	return shared.DeliveryResult{Delivered: true}
}

// GetMe checks the bot credentials and returns the bot's username
func (n *TelegramNotifier) GetMe(ctx context.Context) (string, error) {
	result, err := n.call(ctx, "getMe", nil)
	if err != nil {
		return "", err
	}

	var bot struct {
		Username string `json:"username"`
	}
	if err := json.Unmarshal(result, &bot); err != nil {
		return "", shared.NewServiceError(shared.ErrorCategoryValidation, shared.CodeDecodeFailed,
			"getMe returned an unexpected result", "TelegramNotifier", "GetMe", false, err)
	}
	return bot.Username, nil
}

func (n *TelegramNotifier) call(ctx context.Context, method string, form url.Values) (json.RawMessage, error) {
	endpoint := fmt.Sprintf("%s/bot%s/%s", n.apiURL, n.token, method)

	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, body)
	if err != nil {
		return nil, shared.NewServiceError(shared.ErrorCategoryValidation, shared.CodeRequestFailed,
			fmt.Sprintf("failed to build %s request", method), "TelegramNotifier", method, false, nil)
	}
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return nil, shared.NewServiceError(shared.ErrorCategoryNetwork, shared.CodeRequestFailed,
			fmt.Sprintf("%s request failed", method), "TelegramNotifier", method, true, withoutURL(err))
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxTelegramResponseBytes))
	if err != nil {
		return nil, shared.NewServiceError(shared.ErrorCategoryNetwork, shared.CodeRequestFailed,
			fmt.Sprintf("failed to read %s response", method), "TelegramNotifier", method, true, err)
	}

	var envelope telegramResponse
	decodeErr := json.Unmarshal(payload, &envelope)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		message := fmt.Sprintf("%s returned HTTP %d", method, resp.StatusCode)
		if decodeErr == nil && envelope.Description != "" {
			message = fmt.Sprintf("%s: %s", message, envelope.Description)
		}
		retryable := resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		return nil, shared.NewServiceError(shared.ErrorCategoryNetwork, shared.CodeHTTPStatus, message, "TelegramNotifier", method, retryable, nil)
	}
	if decodeErr != nil {
		return nil, shared.NewServiceError(shared.ErrorCategoryValidation, shared.CodeDecodeFailed,
			fmt.Sprintf("%s returned malformed JSON", method), "TelegramNotifier", method, false, decodeErr)
	}
	if !envelope.OK {
		return nil, shared.NewServiceError(shared.ErrorCategoryNetwork, shared.CodeDeliveryFailed,
			fmt.Sprintf("%s rejected: %s", method, envelope.Description), "TelegramNotifier", method, false, nil)
	}

	return envelope.Result, nil
}

// withoutURL strips the request URL, which embeds the bot token, from transport errors
func withoutURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return urlErr.Err
	}
	return err
}
