package openai

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/caselode/filings-extractor/internal/llm"
)

// chatResponse is the subset of the chat/completions reply we consume.
type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
	} `json:"usage"`
}

// ReadDocument implements llm.DocumentReader: the raw document travels as a
// base64 data-URL file part alongside the instructions.
func (c *Client) ReadDocument(ctx context.Context, req llm.DocumentRequest) (llm.Response, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("openai.document.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"document_bytes", len(req.DocumentBytes),
		"max_output_tokens", req.MaxOutputTokens,
	)

	filename := req.FileName
	if filename == "" {
		filename = "document.pdf"
	}
	dataURL := "data:application/pdf;base64," + base64.StdEncoding.EncodeToString(req.DocumentBytes)

	body := map[string]any{
		"model":                 c.cfg.Model,
		"temperature":           c.cfg.Temperature,
		"max_completion_tokens": req.MaxOutputTokens,
		"messages": []map[string]any{
			{"role": "system", "content": req.Instructions},
			{
				"role": "user",
				"content": []map[string]any{
					{"type": "file", "file": map[string]any{"filename": filename, "file_data": dataURL}},
					{"type": "text", "text": "Process the attached document per the instructions."},
				},
			},
		},
	}

	resp, err := c.send(ctx, rid, body)
	if err != nil {
		return llm.Response{}, err
	}
	c.log.Info("openai.document.ok",
		"req_id", rid,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}

// CompleteText implements llm.TextCompleter for already-acquired plain text.
func (c *Client) CompleteText(ctx context.Context, req llm.TextRequest) (llm.Response, error) {
	rid := uuid.New().String()
	start := time.Now()

	c.log.Info("openai.text.start",
		"req_id", rid,
		"model", c.cfg.Model,
		"text_bytes", len(req.Text),
		"max_output_tokens", req.MaxOutputTokens,
	)

	body := map[string]any{
		"model":                 c.cfg.Model,
		"temperature":           c.cfg.Temperature,
		"max_completion_tokens": req.MaxOutputTokens,
		"messages": []map[string]any{
			{"role": "system", "content": req.Instructions},
			{"role": "user", "content": req.Text},
		},
	}

	resp, err := c.send(ctx, rid, body)
	if err != nil {
		return llm.Response{}, err
	}
	c.log.Info("openai.text.ok",
		"req_id", rid,
		"input_tokens", resp.Usage.InputTokens,
		"output_tokens", resp.Usage.OutputTokens,
		"elapsed_ms", time.Since(start).Milliseconds(),
	)
	return resp, nil
}

func (c *Client) send(ctx context.Context, rid string, body map[string]any) (llm.Response, error) {
	raw, status, err := c.postJSON(ctx, rid, body)
	if err != nil {
		c.log.Error("openai.http_error", "req_id", rid, "status", status, "error", err)
		return llm.Response{}, fmt.Errorf("openai call: %w", err)
	}

	var cc chatResponse
	if err := json.Unmarshal(raw, &cc); err != nil {
		c.log.Error("openai.decode_error", "req_id", rid, "error", err, "raw_bytes", len(raw))
		return llm.Response{}, fmt.Errorf("decode openai response: %w", err)
	}
	if len(cc.Choices) == 0 {
		c.log.Error("openai.no_choices", "req_id", rid, "raw", string(raw))
		return llm.Response{}, fmt.Errorf("no choices in openai response")
	}

	return llm.Response{
		ContentText: strings.TrimSpace(cc.Choices[0].Message.Content),
		Usage: llm.Usage{
			InputTokens:  cc.Usage.PromptTokens,
			OutputTokens: cc.Usage.CompletionTokens,
		},
	}, nil
}

// postJSON posts body to the chat/completions endpoint and returns the raw
// reply. The body is read in full even on error responses so the status code
// and any provider diagnostics reach the caller's log.
func (c *Client) postJSON(ctx context.Context, rid string, body map[string]any) ([]byte, int, error) {
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + "/chat/completions"

	payload, err := json.Marshal(body)
	if err != nil {
		return nil, 0, fmt.Errorf("marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response body: %w", err)
	}

	c.log.Debug("openai.http.response",
		"req_id", rid,
		"status", resp.StatusCode,
		"bytes", len(raw),
		"elapsed_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return raw, resp.StatusCode, fmt.Errorf("non-2xx status: %d", resp.StatusCode)
	}
	return raw, resp.StatusCode, nil
}
