package web

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/oni-labs/go-buddy/pkg/avatar"
	"github.com/oni-labs/go-buddy/pkg/capture"
	"github.com/oni-labs/go-buddy/pkg/gateway"
	"github.com/oni-labs/go-buddy/pkg/hub"
)

// defaultBridgeTimeout bounds how long a request to the browser may
// take before the caller gets an error. Recording requests add the
// recording cap on top.
const defaultBridgeTimeout = 15 * time.Second

// Bridge drives the browser page over the stage websocket. The page
// owns the 3D avatar, the overlay DOM and the media devices; the
// bridge turns their Go-side contracts into stage events and
// request/reply round trips.
//
// One Bridge serves all of avatar.Renderer, overlay.Surface,
// buddy.Shell and capture.Provider.
type Bridge struct {
	hub     *hub.Hub
	timeout time.Duration

	mu        sync.Mutex
	pending   map[string]chan stageReply
	animation string

	// OnEvent receives page-initiated events (close buttons, camera
	// flip). Set before the server starts.
	OnEvent func(name string)
}

// stageEvent is an outbound message to the stage page. ID is set only
// on events that expect a reply.
type stageEvent struct {
	Event string `json:"event"`
	ID    string `json:"id,omitempty"`
	Data  any    `json:"data,omitempty"`
}

// stageReply is an inbound reply from the stage page.
type stageReply struct {
	ID     string          `json:"id"`
	Error  string          `json:"error,omitempty"`
	Result json.RawMessage `json:"result,omitempty"`
}

// NewBridge creates a Bridge broadcasting over the given hub.
func NewBridge(h *hub.Hub) *Bridge {
	return &Bridge{
		hub:       h,
		timeout:   defaultBridgeTimeout,
		pending:   make(map[string]chan stageReply),
		animation: avatar.AnimIdle,
	}
}

func (b *Bridge) broadcast(event string, data any) {
	b.hub.BroadcastJSON(stageEvent{Event: event, Data: data})
}

// request sends an event that expects a reply and waits for it.
func (b *Bridge) request(ctx context.Context, event string, data any, extra time.Duration) (json.RawMessage, error) {
	id := uuid.NewString()
	ch := make(chan stageReply, 1)

	b.mu.Lock()
	b.pending[id] = ch
	b.mu.Unlock()
	defer func() {
		b.mu.Lock()
		delete(b.pending, id)
		b.mu.Unlock()
	}()

	b.hub.BroadcastJSON(stageEvent{Event: event, ID: id, Data: data})

	timer := time.NewTimer(b.timeout + extra)
	defer timer.Stop()

	select {
	case reply := <-ch:
		if reply.Error != "" {
			return nil, fmt.Errorf("stage: %s", reply.Error)
		}
		return reply.Result, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, fmt.Errorf("stage: no reply to %s", event)
	}
}

// handleReply routes an inbound stage message: replies go to their
// waiting request, page-initiated events go to OnEvent. Messages with
// unknown IDs are dropped.
func (b *Bridge) handleReply(data []byte) {
	var msg struct {
		ID     string          `json:"id"`
		Error  string          `json:"error,omitempty"`
		Result json.RawMessage `json:"result,omitempty"`
		Event  string          `json:"event,omitempty"`
	}
	if err := json.Unmarshal(data, &msg); err != nil {
		return
	}

	if msg.ID == "" {
		if msg.Event != "" && b.OnEvent != nil {
			b.OnEvent(msg.Event)
		}
		return
	}

	b.mu.Lock()
	ch, ok := b.pending[msg.ID]
	b.mu.Unlock()
	if ok {
		select {
		case ch <- stageReply{ID: msg.ID, Error: msg.Error, Result: msg.Result}:
		default:
		}
	}
}

// --- avatar.Renderer ---

// PlayAnimation implements avatar.Renderer.
func (b *Bridge) PlayAnimation(name string) {
	b.mu.Lock()
	b.animation = name
	b.mu.Unlock()
	b.broadcast("play_animation", map[string]string{"name": name})
}

// CurrentAnimation implements avatar.Renderer.
func (b *Bridge) CurrentAnimation() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.animation
}

// ChangeSceneBackground implements avatar.Renderer. Blocks until the
// page reports the background applied.
func (b *Bridge) ChangeSceneBackground(url string) error {
	_, err := b.request(context.Background(), "change_background", map[string]string{"url": url}, 0)
	return err
}

// ResetSceneBackground implements avatar.Renderer.
func (b *Bridge) ResetSceneBackground() {
	b.broadcast("reset_background", nil)
}

// --- overlay.Surface ---

func (b *Bridge) ShowTimer(remaining, total int, paused bool) {
	b.broadcast("show_timer", map[string]any{
		"remaining": remaining,
		"total":     total,
		"paused":    paused,
	})
}

func (b *Bridge) HideTimer() { b.broadcast("hide_timer", nil) }

func (b *Bridge) PlayAlarm() { b.broadcast("play_alarm", nil) }

func (b *Bridge) ShowMathSequence(elements []string) {
	b.broadcast("show_math_sequence", map[string]any{"elements": elements})
}

func (b *Bridge) ShowHologram(imageURL string, keyInfo []gateway.KeyValue) {
	b.broadcast("show_hologram", map[string]any{
		"image_url": imageURL,
		"key_info":  keyInfo,
	})
}

func (b *Bridge) ShowHUD(data *gateway.ScreenData, expanded bool) {
	b.broadcast("show_hud", map[string]any{
		"screen_data": data,
		"expanded":    expanded,
	})
}

func (b *Bridge) HideHUD() { b.broadcast("hide_hud", nil) }

func (b *Bridge) ShowComparison(entities []gateway.Entity, leftURL, rightURL string) {
	b.broadcast("show_comparison", map[string]any{
		"entities":    entities,
		"image_url_1": leftURL,
		"image_url_2": rightURL,
	})
}

func (b *Bridge) ShowCapturedPhoto(imageData string) {
	b.broadcast("show_captured_photo", map[string]string{"image_data": imageData})
}

func (b *Bridge) ShowMovie(title, url string) {
	b.broadcast("show_movie", map[string]string{"title": title, "url": url})
}

func (b *Bridge) HideMovie() { b.broadcast("hide_movie", nil) }

func (b *Bridge) ShowTopText(text string) {
	b.broadcast("show_top_text", map[string]string{"text": text})
}

func (b *Bridge) ClearTopText() { b.broadcast("clear_top_text", nil) }

func (b *Bridge) ClearOverlays() { b.broadcast("clear_overlays", nil) }

// --- buddy.Shell ---

// SetChatInput implements buddy.Shell.
func (b *Bridge) SetChatInput(text string) {
	b.broadcast("set_chat_input", map[string]string{"text": text})
}

// PromptFilename implements buddy.Shell.
func (b *Bridge) PromptFilename(ctx context.Context) (string, bool) {
	return b.prompt(ctx, "prompt_filename")
}

// PromptFriendName implements buddy.Shell.
func (b *Bridge) PromptFriendName(ctx context.Context) (string, bool) {
	return b.prompt(ctx, "prompt_friend_name")
}

func (b *Bridge) prompt(ctx context.Context, event string) (string, bool) {
	result, err := b.request(ctx, event, nil, 0)
	if err != nil {
		return "", false
	}
	var answer struct {
		Name string `json:"name"`
		OK   bool   `json:"ok"`
	}
	if err := json.Unmarshal(result, &answer); err != nil {
		return "", false
	}
	return answer.Name, answer.OK
}

// --- capture.Provider ---

// Open implements capture.Provider. The page owns getUserMedia; a
// refusal there comes back as a permission error here.
func (b *Bridge) Open(ctx context.Context, kind capture.Kind, c capture.Constraints) (capture.Stream, error) {
	result, err := b.request(ctx, "capture_open", map[string]any{
		"kind":        string(kind),
		"device_id":   c.DeviceID,
		"facing_mode": c.FacingMode,
		"width":       c.Width,
		"height":      c.Height,
	}, 0)
	if err != nil {
		return nil, &capture.DeviceError{Kind: kind, Err: capture.ErrPermissionDenied}
	}

	var opened struct {
		StreamID string `json:"stream_id"`
	}
	if err := json.Unmarshal(result, &opened); err != nil || opened.StreamID == "" {
		return nil, &capture.DeviceError{Kind: kind, Err: capture.ErrDeviceUnavailable}
	}
	return &bridgeStream{bridge: b, id: opened.StreamID, kind: kind}, nil
}

// Enumerate implements capture.Provider.
func (b *Bridge) Enumerate(ctx context.Context) ([]capture.DeviceInfo, error) {
	result, err := b.request(ctx, "capture_enumerate", nil, 0)
	if err != nil {
		return nil, err
	}
	var devices []struct {
		ID    string `json:"id"`
		Kind  string `json:"kind"`
		Label string `json:"label"`
	}
	if err := json.Unmarshal(result, &devices); err != nil {
		return nil, err
	}
	infos := make([]capture.DeviceInfo, 0, len(devices))
	for _, d := range devices {
		infos = append(infos, capture.DeviceInfo{
			ID:    d.ID,
			Kind:  capture.Kind(d.Kind),
			Label: d.Label,
		})
	}
	return infos, nil
}

// bridgeStream is a capture stream living in the browser.
type bridgeStream struct {
	bridge *Bridge
	id     string
	kind   capture.Kind

	mu      sync.Mutex
	stopped bool
}

func (s *bridgeStream) ID() string         { return s.id }
func (s *bridgeStream) Kind() capture.Kind { return s.kind }

func (s *bridgeStream) Stop() {
	s.mu.Lock()
	if s.stopped {
		s.mu.Unlock()
		return
	}
	s.stopped = true
	s.mu.Unlock()
	s.bridge.broadcast("capture_stop", map[string]string{"stream_id": s.id})
}

func (s *bridgeStream) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}

// CaptureFrame implements capture.FrameSource.
func (s *bridgeStream) CaptureFrame(ctx context.Context) (string, error) {
	if s.Stopped() {
		return "", capture.ErrStreamStopped
	}
	result, err := s.bridge.request(ctx, "capture_frame", map[string]string{"stream_id": s.id}, 0)
	if err != nil {
		return "", err
	}
	var frame struct {
		ImageData string `json:"image_data"`
	}
	if err := json.Unmarshal(result, &frame); err != nil {
		return "", err
	}
	return frame.ImageData, nil
}

// Record implements capture.Recorder. The page buffers audio for up to
// max and replies with the clip base64-encoded.
func (s *bridgeStream) Record(ctx context.Context, max time.Duration) ([]byte, error) {
	if s.Stopped() {
		return nil, capture.ErrStreamStopped
	}
	result, err := s.bridge.request(ctx, "capture_record", map[string]any{
		"stream_id":   s.id,
		"max_seconds": max.Seconds(),
	}, max)
	if err != nil {
		if ctx.Err() != nil {
			return nil, capture.ErrRecordingCancelled
		}
		return nil, err
	}
	var clip struct {
		Audio string `json:"audio"`
	}
	if err := json.Unmarshal(result, &clip); err != nil {
		return nil, err
	}
	data, err := base64.StdEncoding.DecodeString(clip.Audio)
	if err != nil {
		return nil, fmt.Errorf("stage: bad audio payload: %w", err)
	}
	if len(data) == 0 {
		return nil, capture.ErrRecordingCancelled
	}
	return data, nil
}
