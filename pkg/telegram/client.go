// Package telegram is a thin Bot API client: the update payload and the two
// methods the bot replies with.
package telegram

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"time"

	"resty.dev/v3"
)

const DefaultAPIURL = "https://api.telegram.org"

type Update struct {
	UpdateID int64    `json:"update_id"`
	Message  *Message `json:"message,omitempty"`
}

type Message struct {
	MessageID int64  `json:"message_id"`
	From      *User  `json:"from,omitempty"`
	Chat      Chat   `json:"chat"`
	Text      string `json:"text"`
}

type User struct {
	ID       int64  `json:"id"`
	Username string `json:"username,omitempty"`
}

type Chat struct {
	ID int64 `json:"id"`
}

type apiResponse struct {
	OK          bool   `json:"ok"`
	ErrorCode   int    `json:"error_code,omitempty"`
	Description string `json:"description,omitempty"`
}

type Client struct {
	client *resty.Client
}

func NewClient(apiURL, token string, timeout time.Duration) *Client {
	if apiURL == "" {
		apiURL = DefaultAPIURL
	}
	return &Client{
		client: resty.New().
			SetBaseURL(apiURL + "/bot" + token).
			SetTimeout(timeout),
	}
}

func (c *Client) Close() error {
	return c.client.Close()
}

func (c *Client) SendMessage(ctx context.Context, chatID int64, text string) error {
	var out apiResponse
	res, err := c.client.R().
		WithContext(ctx).
		SetBody(map[string]interface{}{
			"chat_id": chatID,
			"text":    text,
		}).
		SetResult(&out).
		SetError(&out).
		Post("/sendMessage")
	return check("sendMessage", res, err, out)
}

// SendDocument uploads data as a file attachment named filename.
func (c *Client) SendDocument(ctx context.Context, chatID int64, filename, contentType string, data []byte) error {
	var out apiResponse
	res, err := c.client.R().
		WithContext(ctx).
		SetMultipartFormData(map[string]string{
			"chat_id": strconv.FormatInt(chatID, 10),
		}).
		SetMultipartField("document", filename, contentType, bytes.NewReader(data)).
		SetResult(&out).
		SetError(&out).
		Post("/sendDocument")
	return check("sendDocument", res, err, out)
}

func check(method string, res *resty.Response, err error, out apiResponse) error {
	if err != nil {
		return fmt.Errorf("telegram: %s failed: %w", method, err)
	}
	if res.IsError() || !out.OK {
		return fmt.Errorf("telegram: %s rejected: status %d: %s", method, res.StatusCode(), out.Description)
	}
	return nil
}
