/**
 * @description
 * This package provides a client for the OpenAI-compatible completion API that
 * powers answer evaluation and topic explanations. It encapsulates the logic for
 * making authenticated HTTP requests, building chat-completion payloads (text
 * and vision), and parsing responses.
 *
 * The credit-service never debits for a failed evaluation: callers invoke this
 * client first and only consume a credit after it returns successfully.
 *
 * @dependencies
 * - bytes, context, encoding/json, fmt, net/http, time: Standard Go libraries.
 */
package evaluator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// examinerPrompt mirrors the strict-examiner instruction used for scoring.
	examinerPrompt = "You are a strict UPSC Examiner. Check Intro, Body, Conclusion. Score out of 10."

	explainPromptFormat = "Explain '%s' to a UPSC aspirant in simple English with an Indian example."
)

// Client is a client for the completion API.
type Client struct {
	BaseURL     string
	APIKey      string
	TextModel   string
	VisionModel string
	HTTPClient  *http.Client
}

// NewClient creates a new completion API client.
func NewClient(baseURL, apiKey, textModel, visionModel string) *Client {
	return &Client{
		BaseURL:     baseURL,
		APIKey:      apiKey,
		TextModel:   textModel,
		VisionModel: visionModel,
		HTTPClient: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

// message is one chat turn. Content is either a plain string or a slice of
// contentPart for multimodal requests.
type message struct {
	Role    string      `json:"role"`
	Content interface{} `json:"content"`
}

type contentPart struct {
	Type     string    `json:"type"`
	Text     string    `json:"text,omitempty"`
	ImageURL *imageURL `json:"image_url,omitempty"`
}

type imageURL struct {
	URL string `json:"url"`
}

type completionRequest struct {
	Model    string    `json:"model"`
	Messages []message `json:"messages"`
}

type completionResponse struct {
	Choices []struct {
		Message struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// ErrorResponse represents an error from the completion API.
type ErrorResponse struct {
	ErrorInfo struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

func (e *ErrorResponse) Error() string {
	if e.ErrorInfo.Message != "" {
		return fmt.Sprintf("completion api error: %s", e.ErrorInfo.Message)
	}
	return "unknown completion api error"
}

// ScoreAnswer submits a base64-encoded answer photo to the vision model and
// returns the examiner feedback text.
func (c *Client) ScoreAnswer(ctx context.Context, imageBase64 string) (string, error) {
	req := completionRequest{
		Model: c.VisionModel,
		Messages: []message{
			{
				Role: "user",
				Content: []contentPart{
					{Type: "text", Text: examinerPrompt},
					{Type: "image_url", ImageURL: &imageURL{URL: "data:image/jpeg;base64," + imageBase64}},
				},
			},
		},
	}
	return c.complete(ctx, req)
}

// ExplainTopic asks the text model for a plain-language explanation of a topic.
func (c *Client) ExplainTopic(ctx context.Context, topic string) (string, error) {
	req := completionRequest{
		Model: c.TextModel,
		Messages: []message{
			{Role: "user", Content: fmt.Sprintf(explainPromptFormat, topic)},
		},
	}
	return c.complete(ctx, req)
}

func (c *Client) complete(ctx context.Context, payload completionRequest) (string, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("failed to marshal completion request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("completion request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr ErrorResponse
		if unmarshalErr := json.Unmarshal(respBody, &apiErr); unmarshalErr == nil && apiErr.ErrorInfo.Message != "" {
			return "", &apiErr
		}
		return "", fmt.Errorf("completion api returned status %d", resp.StatusCode)
	}

	var completion completionResponse
	if err := json.Unmarshal(respBody, &completion); err != nil {
		return "", fmt.Errorf("failed to parse completion response: %w", err)
	}
	if len(completion.Choices) == 0 {
		return "", fmt.Errorf("completion response contained no choices")
	}
	return completion.Choices[0].Message.Content, nil
}
