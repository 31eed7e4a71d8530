package live

import (
	"encoding/base64"
	"encoding/json"

	"github.com/teslashibe/go-visionguide/internal/log"
)

// readLoop pumps inbound messages until the session closes.
func (c *Client) readLoop() {
	for {
		c.mu.RLock()
		ws := c.ws
		closed := c.closed
		c.mu.RUnlock()
		if closed || ws == nil {
			return
		}

		_, message, err := ws.ReadMessage()
		if err != nil {
			c.mu.RLock()
			closed := c.closed
			c.mu.RUnlock()
			if !closed {
				if c.onError != nil {
					c.onError(err)
				}
				if c.onClose != nil {
					c.onClose()
				}
			}
			return
		}

		var msg map[string]any
		if err := json.Unmarshal(message, &msg); err != nil {
			log.Debug("live: unparseable message", "error", err)
			continue
		}
		c.handleMessage(msg)
	}
}

// handleMessage routes a single inbound message by its top-level key.
func (c *Client) handleMessage(msg map[string]any) {
	if _, ok := msg["setupComplete"]; ok {
		log.Debug("live session ready")
		if c.onSetupComplete != nil {
			c.onSetupComplete()
		}
		return
	}

	if serverContent, ok := msg["serverContent"].(map[string]any); ok {
		c.handleServerContent(serverContent)
		return
	}

	if toolCall, ok := msg["toolCall"].(map[string]any); ok {
		c.handleToolCall(toolCall)
		return
	}

	if _, ok := msg["toolCallCancellation"]; ok {
		log.Debug("live: tool call cancelled by server")
		return
	}

	log.Debug("live: unhandled message", "message", msg)
}

// handleServerContent processes speech, text, transcripts, and the barge-in
// signal. The fields are coexisting optionals: one message may carry the
// interrupted flag alongside a transcription or model turn, so every field
// is handled, none short-circuits the rest.
func (c *Client) handleServerContent(content map[string]any) {
	if interrupted, ok := content["interrupted"].(bool); ok && interrupted {
		if c.onInterrupted != nil {
			c.onInterrupted()
		}
	}

	if turnComplete, ok := content["turnComplete"].(bool); ok && turnComplete {
		if c.onTurnComplete != nil {
			c.onTurnComplete()
		}
	}

	if modelTurn, ok := content["modelTurn"].(map[string]any); ok {
		if parts, ok := modelTurn["parts"].([]any); ok {
			for _, part := range parts {
				partMap, ok := part.(map[string]any)
				if !ok {
					continue
				}
				c.handlePart(partMap)
			}
		}
	}

	if transcript, ok := content["inputTranscription"].(map[string]any); ok {
		if text, ok := transcript["text"].(string); ok && text != "" {
			if c.onTranscript != nil {
				c.onTranscript(text)
			}
		}
	}
}

// handlePart processes one part of a model turn: inline speech or text.
func (c *Client) handlePart(part map[string]any) {
	if inlineData, ok := part["inlineData"].(map[string]any); ok {
		mimeType, _ := inlineData["mimeType"].(string)
		if mimeType == "audio/pcm" || mimeType == "audio/pcm;rate=24000" {
			if data, ok := inlineData["data"].(string); ok {
				pcm, err := base64.StdEncoding.DecodeString(data)
				if err != nil || len(pcm) == 0 {
					// Malformed speech chunks are skipped, never fatal.
					return
				}
				if c.onAudio != nil {
					c.onAudio(pcm)
				}
			}
		}
	}

	if text, ok := part["text"].(string); ok && text != "" {
		if c.onText != nil {
			c.onText(text)
		}
	}
}

// handleToolCall collects the function calls of one batch, preserving wire
// order, and delivers them as a unit so the dispatcher can answer with a
// single correlated response.
func (c *Client) handleToolCall(toolCall map[string]any) {
	rawCalls, ok := toolCall["functionCalls"].([]any)
	if !ok {
		return
	}

	calls := make([]FunctionCall, 0, len(rawCalls))
	for _, raw := range rawCalls {
		callMap, ok := raw.(map[string]any)
		if !ok {
			continue
		}
		id, _ := callMap["id"].(string)
		name, _ := callMap["name"].(string)
		args, _ := callMap["args"].(map[string]any)
		calls = append(calls, FunctionCall{ID: id, Name: name, Args: args})
	}

	if len(calls) > 0 && c.onToolCall != nil {
		c.onToolCall(calls)
	}
}
