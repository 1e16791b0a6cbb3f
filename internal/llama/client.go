// Package llama talks to a local llama.cpp-style server exposing the
// OpenAI-compatible /v1/completions endpoint, and turns free-text customer
// messages into structured order data for the conversation engine.
package llama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/lucianoherrera1000/vendobot/internal/conversation"
)

const defaultTimeout = 20 * time.Second

// Client is the extraction client. It implements conversation.Extractor.
type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

type completionRequest struct {
	Model       string   `json:"model"`
	Prompt      string   `json:"prompt"`
	Temperature float64  `json:"temperature"`
	MaxTokens   int      `json:"max_tokens"`
	Stop        []string `json:"stop,omitempty"`
}

type completionResponse struct {
	Choices []struct {
		Text string `json:"text"`
	} `json:"choices"`
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// New creates a client for the given base URL and model name.
func New(baseURL, model string) *Client {
	if model == "" {
		model = "model.gguf"
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

const promptTemplate = `Sos un extractor de información para un bot de pedidos de comida.
Devolvé SOLO JSON válido, sin texto extra, sin markdown.
Formato exacto:
{"ok":true,"items":[{"name":"...","qty":1}],"delivery_method":null,"address":null,"payment_method":null,"name":null}
Reglas:
- items: lista de productos pedidos. qty entero; si no hay cantidad asumí 1.
- delivery_method: "envio" | "retiro" | null
- payment_method: "efectivo" | "transferencia" | null
- No inventes datos: si algo no está, devolvé null.
- NO escribas explicaciones ni ejemplos.
MENU:
%s
Usuario: %s
JSON:
`

// Extract submits the raw message (with the menu for context) and parses the
// first JSON object out of the completion. A result is only returned when the
// model reported ok=true; anything else is an error for the engine to swallow.
func (c *Client) Extract(ctx context.Context, text, menuText string) (*conversation.ExtractResult, error) {
	reqBody := completionRequest{
		Model:       c.model,
		Prompt:      fmt.Sprintf(promptTemplate, menuText, text),
		Temperature: 0,
		MaxTokens:   160,
		Stop:        []string{"\n\nUsuario:", "\nUsuario:", "\nJSON:"},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshal completion request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/completions", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build completion request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("call completions endpoint: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("completions endpoint returned %d: %s", resp.StatusCode, string(body))
	}

	var cr completionResponse
	if err := json.Unmarshal(body, &cr); err != nil {
		return nil, fmt.Errorf("parse completion response: %w", err)
	}
	if cr.Error.Message != "" {
		return nil, fmt.Errorf("model error: %s (type %s)", cr.Error.Message, cr.Error.Type)
	}
	if len(cr.Choices) == 0 {
		return nil, fmt.Errorf("no choices in completion response")
	}

	result := firstJSON(cr.Choices[0].Text)
	if result == nil {
		return nil, fmt.Errorf("no JSON object in completion text")
	}
	if !result.OK {
		return nil, fmt.Errorf("extractor reported not ok")
	}
	return result, nil
}

var jsonObjectRe = regexp.MustCompile(`(?s)\{.*\}`)

// firstJSON pulls the first {...} object out of the completion text. Models
// sometimes wrap it in backticks or prose; we only care about the object.
func firstJSON(s string) *conversation.ExtractResult {
	m := jsonObjectRe.FindString(s)
	if m == "" {
		return nil
	}
	var res conversation.ExtractResult
	if err := json.Unmarshal([]byte(strings.TrimSpace(m)), &res); err != nil {
		return nil
	}
	return &res
}
