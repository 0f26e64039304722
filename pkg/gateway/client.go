// Package gateway is the JSON-over-HTTP client for the assistant backend.
//
// The backend answers prompts, analyzes camera frames, transcribes audio,
// registers faces and serves trivia questions. This package only speaks the
// wire contract; all interpretation of responses happens in the dispatcher.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"strings"

	"github.com/oni-labs/go-buddy/internal/httpc"
)

// Client talks to the assistant backend.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

// WithLogger sets the client logger.
func WithLogger(l *slog.Logger) Option {
	return func(cl *Client) { cl.logger = l }
}

// NewClient creates a backend client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		http:    httpc.Client,
		logger:  slog.Default().With("component", "gateway"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ask submits a prompt and returns the structured command response.
// A 401 response maps to ErrSessionExpired.
func (c *Client) Ask(ctx context.Context, prompt string) (*Command, error) {
	body, err := c.postJSON(ctx, "/ask", map[string]string{"prompt": prompt})
	if err != nil {
		if IsSessionExpired(err) {
			return nil, ErrSessionExpired
		}
		return nil, err
	}
	return ParseCommand(body)
}

// AnalyzeEnvironment submits a camera frame (as a data URL) for analysis.
func (c *Client) AnalyzeEnvironment(ctx context.Context, imageData string) (*AnalysisResult, error) {
	body, err := c.postJSON(ctx, "/analyze-environment", map[string]string{"image_data": imageData})
	if err != nil {
		return nil, err
	}
	var result AnalysisResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &APIError{Endpoint: "/analyze-environment", Message: err.Error()}
	}
	return &result, nil
}

// CheckPulse polls for a proactively available message.
func (c *Client) CheckPulse(ctx context.Context) (*PulseResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/check_pulse", nil)
	if err != nil {
		return nil, err
	}
	body, err := c.do(req, "/check_pulse")
	if err != nil {
		return nil, err
	}
	var result PulseResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &APIError{Endpoint: "/check_pulse", Message: err.Error()}
	}
	return &result, nil
}

// EnrollVoice uploads an enrollment audio clip as multipart form data.
func (c *Client) EnrollVoice(ctx context.Context, audio []byte) error {
	_, err := c.postAudio(ctx, "/voice/enroll", audio, "enrollment.wav")
	return err
}

// Listen uploads a query audio clip and returns the transcription.
// An unrecognized clip returns ErrUnrecognizedAudio, not an APIError.
func (c *Client) Listen(ctx context.Context, audio []byte) (*TranscriptResult, error) {
	body, err := c.postAudio(ctx, "/voice/listen", audio, "query.webm")
	if err != nil {
		var apiErr *APIError
		// The backend answers 500 with status "error" for inaudible clips;
		// surface that as a distinct condition the caller can apologize for.
		if errors.As(err, &apiErr) && apiErr.IsServerError() {
			return nil, ErrUnrecognizedAudio
		}
		return nil, err
	}
	var result TranscriptResult
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, &APIError{Endpoint: "/voice/listen", Message: err.Error()}
	}
	if !result.Recognized() {
		return nil, ErrUnrecognizedAudio
	}
	return &result, nil
}

// RegisterFriend uploads a friend's name and face image for registration.
func (c *Client) RegisterFriend(ctx context.Context, name, imageData string) error {
	_, err := c.postJSON(ctx, "/face/register-friend", map[string]string{
		"friend_name": name,
		"image_data":  imageData,
	})
	return err
}

// DescribeObject submits a photo (as a data URL) and returns a description.
func (c *Client) DescribeObject(ctx context.Context, imageData string) (*Description, error) {
	body, err := c.postJSON(ctx, "/describe-object", map[string]string{"image_data": imageData})
	if err != nil {
		return nil, err
	}
	var desc Description
	if err := json.Unmarshal(body, &desc); err != nil {
		return nil, &APIError{Endpoint: "/describe-object", Message: err.Error()}
	}
	return &desc, nil
}

// TriviaQuestion fetches a trivia question for the given topic.
func (c *Client) TriviaQuestion(ctx context.Context, topic string) (*TriviaQuestion, error) {
	body, err := c.postJSON(ctx, "/get_trivia_question", map[string]string{"topic": topic})
	if err != nil {
		return nil, err
	}
	var q TriviaQuestion
	if err := json.Unmarshal(body, &q); err != nil {
		return nil, &APIError{Endpoint: "/get_trivia_question", Message: err.Error()}
	}
	return &q, nil
}

// CreateUser registers a new account. A taken username maps to ErrUserExists.
func (c *Client) CreateUser(ctx context.Context, username, password string) (*SessionInfo, error) {
	body, err := c.postJSON(ctx, "/user/create", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusConflict {
			return nil, ErrUserExists
		}
		return nil, err
	}
	var info SessionInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, &APIError{Endpoint: "/user/create", Message: err.Error()}
	}
	return &info, nil
}

// Login opens a backend session with a username and password.
// A rejected pair maps to ErrInvalidCredentials.
func (c *Client) Login(ctx context.Context, username, password string) (*SessionInfo, error) {
	body, err := c.postJSON(ctx, "/user/login", map[string]string{
		"username": username,
		"password": password,
	})
	if err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.IsUnauthorized() {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}
	var info SessionInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, &APIError{Endpoint: "/user/login", Message: err.Error()}
	}
	return &info, nil
}

// RecognizeFace submits a camera frame (as a data URL) for identification.
// A frame with no enrolled match is not an error; check FaceMatch.Recognized.
func (c *Client) RecognizeFace(ctx context.Context, imageData string) (*FaceMatch, error) {
	body, err := c.postJSON(ctx, "/face/recognize", map[string]string{"image_data": imageData})
	if err != nil {
		return nil, err
	}
	var match FaceMatch
	if err := json.Unmarshal(body, &match); err != nil {
		return nil, &APIError{Endpoint: "/face/recognize", Message: err.Error()}
	}
	return &match, nil
}

// RegisterFace uploads one enrollment sample for the given user.
func (c *Client) RegisterFace(ctx context.Context, username, imageData string) (*FaceSample, error) {
	body, err := c.postJSON(ctx, "/face/register", map[string]string{
		"username":   username,
		"image_data": imageData,
	})
	if err != nil {
		return nil, err
	}
	var sample FaceSample
	if err := json.Unmarshal(body, &sample); err != nil {
		return nil, &APIError{Endpoint: "/face/register", Message: err.Error()}
	}
	return &sample, nil
}

// TrainFaces rebuilds the recognition model from the uploaded samples.
func (c *Client) TrainFaces(ctx context.Context) error {
	_, err := c.postJSON(ctx, "/face/train", nil)
	return err
}

// UserStatus fetches the current session state.
func (c *Client) UserStatus(ctx context.Context) (*UserStatus, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/user/status", nil)
	if err != nil {
		return nil, err
	}
	body, err := c.do(req, "/user/status")
	if err != nil {
		return nil, err
	}
	var status UserStatus
	if err := json.Unmarshal(body, &status); err != nil {
		return nil, &APIError{Endpoint: "/user/status", Message: err.Error()}
	}
	return &status, nil
}

// WelcomeMessage fetches the personalized welcome command for the user.
func (c *Client) WelcomeMessage(ctx context.Context) (*Command, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/user/welcome_message", nil)
	if err != nil {
		return nil, err
	}
	body, err := c.do(req, "/user/welcome_message")
	if err != nil {
		return nil, err
	}
	return ParseCommand(body)
}

// Logout ends the backend session.
func (c *Client) Logout(ctx context.Context) error {
	_, err := c.postJSON(ctx, "/user/logout", nil)
	return err
}

// postJSON sends a JSON POST and returns the response body.
func (c *Client) postJSON(ctx context.Context, path string, payload any) ([]byte, error) {
	var buf bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&buf).Encode(payload); err != nil {
			return nil, fmt.Errorf("gateway: encode %s payload: %w", path, err)
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, path)
}

// postAudio sends an audio clip as a multipart form upload.
func (c *Client) postAudio(ctx context.Context, path string, audio []byte, filename string) ([]byte, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile("audio_data", filename)
	if err != nil {
		return nil, fmt.Errorf("gateway: build %s upload: %w", path, err)
	}
	if _, err := part.Write(audio); err != nil {
		return nil, fmt.Errorf("gateway: build %s upload: %w", path, err)
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("gateway: build %s upload: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, &buf)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return c.do(req, path)
}

// do executes the request and normalizes failures into APIError.
func (c *Client) do(req *http.Request, endpoint string) ([]byte, error) {
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &APIError{Endpoint: endpoint, Message: err.Error()}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return nil, &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode, Message: err.Error()}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Endpoint: endpoint, StatusCode: resp.StatusCode}
		var payload struct {
			Error   string `json:"error"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &payload) == nil {
			if payload.Error != "" {
				apiErr.Message = payload.Error
			} else {
				apiErr.Message = payload.Message
			}
		}
		c.logger.Warn("backend request failed", "endpoint", endpoint, "status", resp.StatusCode)
		return nil, apiErr
	}

	return body, nil
}
