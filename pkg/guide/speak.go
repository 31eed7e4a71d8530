package guide

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/teslashibe/go-visionguide/internal/httpc"
	"github.com/teslashibe/go-visionguide/pkg/audio"
)

// ttsModel synthesizes local notices (approach, cancellation, arrival) in
// the same voice as the live session, so system speech is indistinguishable
// from agent speech.
const ttsModel = "gemini-2.5-flash-preview-tts"

// speak synthesizes a short notice and queues it on the playback timeline.
// Failures are logged and swallowed: a missing notice must never affect the
// session.
func (a *App) speak(text string) {
	a.mu.Lock()
	playback := a.playback
	a.mu.Unlock()
	if playback == nil {
		return
	}

	pcm, err := a.synthesize(text)
	if err != nil {
		a.logger().Warn("failed to speak notice", "text", text, "error", err)
		return
	}
	playback.Enqueue(pcm)
}

// synthesize calls the TTS endpoint and returns raw PCM16 speech.
func (a *App) synthesize(text string) ([]byte, error) {
	payload := map[string]any{
		"contents": []map[string]any{
			{"parts": []map[string]any{{"text": text}}},
		},
		"generationConfig": map[string]any{
			"responseModalities": []string{"AUDIO"},
			"speechConfig": map[string]any{
				"voiceConfig": map[string]any{
					"prebuiltVoiceConfig": map[string]any{
						"voiceName": a.config.Voice,
					},
				},
			},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("guide: failed to encode tts request: %w", err)
	}

	url := fmt.Sprintf("https://generativelanguage.googleapis.com/v1beta/models/%s:generateContent?key=%s",
		ttsModel, a.config.GeminiAPIKey)
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("guide: failed to build tts request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("guide: tts request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("guide: failed to read tts response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("guide: tts returned status %d", resp.StatusCode)
	}

	var parsed ttsResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("guide: failed to decode tts response: %w", err)
	}
	if len(parsed.Candidates) == 0 || len(parsed.Candidates[0].Content.Parts) == 0 {
		return nil, fmt.Errorf("guide: tts returned no audio")
	}

	return audio.DecodePCM16(parsed.Candidates[0].Content.Parts[0].InlineData.Data)
}

type ttsResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				InlineData struct {
					Data string `json:"data"`
				} `json:"inlineData"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}
