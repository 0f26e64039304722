package gateway

import (
	"encoding/json"
	"strings"
)

// CommandType discriminates the tagged backend response union.
// Each value drives exactly one rendering branch in the dispatcher;
// values not listed here are ignored as a defined no-op.
type CommandType string

const (
	TypeSimpleText       CommandType = "simple_text"
	TypeSetTimer         CommandType = "set_timer"
	TypeAnimation        CommandType = "animation_command"
	TypeMathSequence     CommandType = "math_sequence"
	TypeHologramTopic    CommandType = "hologram_topic"
	TypeComparisonTopic  CommandType = "comparison_topic"
	TypeChangeBackground CommandType = "change_background"
	TypePlayMovie        CommandType = "play_movie"
	TypePlayYoutube      CommandType = "play_youtube"
	TypeTogglePerception CommandType = "toggle_perception"
	TypeOpenCamera       CommandType = "open_camera"
	TypeDescribeObject   CommandType = "describe_object"
	TypeLookAtScreen     CommandType = "look_at_screen"
	TypeIntroduceFriend  CommandType = "introduce_friend"
	TypeStartTrivia      CommandType = "start_trivia_game"
)

// Command is the structured response returned by /ask.
// Only the fields relevant to the Type are populated; the rest stay zero.
type Command struct {
	Type       CommandType `json:"type"`
	SpokenText string      `json:"spoken_text,omitempty"`

	// set_timer
	Seconds int `json:"seconds,omitempty"`

	// animation_command
	AnimationName string `json:"animation_name,omitempty"`

	// math_sequence
	Elements []string `json:"elements,omitempty"`

	// hologram_topic
	ImageURL     string     `json:"image_url,omitempty"`
	DetailedInfo string     `json:"detailed_info,omitempty"`
	KeyInfo      []KeyValue `json:"key_info,omitempty"`

	// comparison_topic
	Entities  []Entity `json:"entities,omitempty"`
	ImageURL1 string   `json:"image_url_1,omitempty"`
	ImageURL2 string   `json:"image_url_2,omitempty"`

	// play_movie / play_youtube
	MovieTitle string `json:"movie_title,omitempty"`
	MovieURL   string `json:"movie_url,omitempty"`

	// look_at_screen
	ScreenData *ScreenData `json:"screen_data,omitempty"`
}

// KeyValue is a labeled fact shown on a hologram panel.
type KeyValue struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// Entity is one side of a comparison.
type Entity struct {
	SearchTerm string `json:"search_term"`
	Label      string `json:"label"`
}

// ScreenData is the screen-content analysis behind a HUD card.
type ScreenData struct {
	AppName          string `json:"app_name"`
	Status           string `json:"status"`
	ShortSummary     string `json:"short_summary"`
	DetailedAnalysis string `json:"detailed_analysis"`
}

// ParseCommand decodes a raw /ask response body.
func ParseCommand(data []byte) (*Command, error) {
	var cmd Command
	if err := json.Unmarshal(data, &cmd); err != nil {
		return nil, &APIError{Endpoint: "/ask", Message: "malformed response: " + err.Error()}
	}
	return &cmd, nil
}

// AnalysisResult is the response of /analyze-environment.
type AnalysisResult struct {
	Speak bool   `json:"speak"`
	Text  string `json:"text"`
}

// PulseResult is the response of /check_pulse.
type PulseResult struct {
	Found   bool   `json:"found"`
	Message string `json:"message"`
}

// TranscriptResult is the response of /voice/listen.
type TranscriptResult struct {
	Status string `json:"status"`
	Text   string `json:"text"`
}

// Recognized reports whether the capture was transcribed successfully.
func (t *TranscriptResult) Recognized() bool {
	return t.Status == "success" && t.Text != ""
}

// SessionInfo is the response of /user/login and /user/create.
type SessionInfo struct {
	Message   string `json:"message"`
	Username  string `json:"username"`
	IsNewUser bool   `json:"is_new_user"`
}

// FaceMatch is the response of /face/recognize.
type FaceMatch struct {
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Status     string  `json:"status"`
	IsNewUser  bool    `json:"is_new_user"`
}

// Recognized reports whether the frame matched an enrolled face.
// The backend answers 200 either way and signals the miss in-band.
func (f *FaceMatch) Recognized() bool {
	return f.Status == "success" && f.Name != "" && f.Name != "unrecognized"
}

// FaceSample is the response of /face/register.
type FaceSample struct {
	Message string `json:"message"`
}

// Saved reports whether the backend stored the sample. Frames with no
// detectable face come back with a different message and must not count
// toward the enrollment total.
func (f *FaceSample) Saved() bool {
	return strings.HasPrefix(f.Message, "Saved sample")
}

// UserStatus is the response of /user/status.
type UserStatus struct {
	LoggedIn  bool   `json:"logged_in"`
	Username  string `json:"username"`
	IsNewUser bool   `json:"is_new_user"`
}

// TriviaQuestion is the response of /get_trivia_question.
type TriviaQuestion struct {
	Question      string   `json:"question"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	FunFact       string   `json:"fun_fact"`
}

// Description is the response of /describe-object.
type Description struct {
	Description string `json:"description"`
}
