package comfyui

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// Client talks to one ComfyUI instance. Each Client carries its own
// client_id, used both on prompt submission and on the completion
// WebSocket so ComfyUI can correlate the two.
type Client struct {
	baseURL  string
	clientID string
	http     *http.Client
}

// New creates a Client against baseURL (e.g. "http://127.0.0.1:8188").
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		clientID: uuid.NewString(),
		http:     &http.Client{Timeout: timeout},
	}
}

// ClientID returns the client_id this Client identifies itself with.
func (c *Client) ClientID() string {
	return c.clientID
}

type queuePromptRequest struct {
	Prompt   map[string]any `json:"prompt"`
	ClientID string         `json:"client_id"`
}

type queuePromptResponse struct {
	PromptID string `json:"prompt_id"`
}

// QueuePrompt submits prompt for execution and returns its prompt_id,
// grounded on ComfyUIClient.queue_prompt.
func (c *Client) QueuePrompt(ctx context.Context, prompt map[string]any) (string, error) {
	body, err := json.Marshal(queuePromptRequest{Prompt: prompt, ClientID: c.clientID})
	if err != nil {
		return "", fmt.Errorf("comfyui: encode prompt: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/prompt", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("comfyui: queue prompt: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", fmt.Errorf("comfyui: queue prompt: status %d", resp.StatusCode)
	}

	var out queuePromptResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("comfyui: decode queue response: %w", err)
	}
	if out.PromptID == "" {
		return "", fmt.Errorf("comfyui: response missing prompt_id")
	}
	return out.PromptID, nil
}

// wsURL rewrites the HTTP base URL to its ws:// equivalent with the
// client_id query parameter, matching ComfyUIClient.wait_for_completion.
func (c *Client) wsURL() string {
	url := c.baseURL
	url = strings.Replace(url, "https://", "wss://", 1)
	url = strings.Replace(url, "http://", "ws://", 1)
	return fmt.Sprintf("%s/ws?clientId=%s", url, c.clientID)
}

type executingMessage struct {
	Type string `json:"type"`
	Data struct {
		PromptID string `json:"prompt_id"`
		Node     *string `json:"node"`
	} `json:"data"`
}

// Completion is the result of a successfully awaited prompt.
type Completion struct {
	PromptID string
	Outputs  [][]byte
}

// AwaitCompletion opens a WebSocket and blocks until the server reports
// promptID finished executing (an "executing" event naming promptID with
// a nil node), or ctx is done. Binary frames received meanwhile are
// collected as outputs, grounded on ComfyUIClient.wait_for_completion.
func (c *Client) AwaitCompletion(ctx context.Context, promptID string) (*Completion, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, c.wsURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("comfyui: connect websocket: %w", err)
	}
	defer conn.Close()

	go func() {
		<-ctx.Done()
		_ = conn.Close()
	}()

	result := &Completion{PromptID: promptID}
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			return nil, fmt.Errorf("comfyui: websocket read: %w", err)
		}

		switch msgType {
		case websocket.BinaryMessage:
			result.Outputs = append(result.Outputs, data)
		case websocket.TextMessage:
			var m executingMessage
			if err := json.Unmarshal(data, &m); err != nil {
				continue
			}
			if m.Type == "executing" && m.Data.PromptID == promptID && m.Data.Node == nil {
				return result, nil
			}
		}
	}
}
