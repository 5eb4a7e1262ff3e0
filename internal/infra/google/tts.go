package google

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"voice-qa/internal/application"
)

// TTSClient calls the Cloud Text-to-Speech REST API.
type TTSClient struct {
	apiKey     string
	httpClient *http.Client
	baseURL    string
}

func NewTTSClient(apiKey string) *TTSClient {
	return NewTTSClientWithURL(apiKey, "https://texttospeech.googleapis.com/v1")
}

func NewTTSClientWithURL(apiKey, baseURL string) *TTSClient {
	return &TTSClient{
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
	}
}

type synthesisInput struct {
	Text string `json:"text"`
}

type voiceSelection struct {
	LanguageCode string `json:"languageCode"`
	Name         string `json:"name,omitempty"`
}

type audioConfig struct {
	AudioEncoding string  `json:"audioEncoding"`
	Pitch         float64 `json:"pitch,omitempty"`
}

type request struct {
	Input       synthesisInput `json:"input"`
	Voice       voiceSelection `json:"voice"`
	AudioConfig audioConfig    `json:"audioConfig"`
}

type response struct {
	AudioContent string `json:"audioContent"`
	Error        *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error,omitempty"`
}

func (c *TTSClient) Synthesize(ctx context.Context, req application.SynthesisRequest) ([]byte, error) {
	encoding := req.Voice.Encoding
	if encoding == "" {
		encoding = "MP3"
	}

	reqBody := request{
		Input: synthesisInput{Text: req.Text},
		Voice: voiceSelection{
			LanguageCode: req.Voice.LanguageCode,
			Name:         req.Voice.VoiceName,
		},
		AudioConfig: audioConfig{
			AudioEncoding: encoding,
			Pitch:         req.Voice.Pitch,
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := fmt.Sprintf("%s/text:synthesize?key=%s", c.baseURL, c.apiKey)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var result response
	if resp.StatusCode != http.StatusOK {
		if json.Unmarshal(respBody, &result) == nil && result.Error != nil {
			return nil, fmt.Errorf("text-to-speech error %d: %s", resp.StatusCode, result.Error.Message)
		}
		return nil, fmt.Errorf("text-to-speech error %d: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}

	if result.AudioContent == "" {
		return nil, fmt.Errorf("empty audio from text-to-speech")
	}

	audio, err := base64.StdEncoding.DecodeString(result.AudioContent)
	if err != nil {
		return nil, fmt.Errorf("decoding audio content: %w", err)
	}

	return audio, nil
}
