// Package sessionclient consumes the video-consultation session API
// under unreliable, polling-based network conditions. It caches the
// last known-good session, throttles call volume and distinguishes
// "not yet created" from genuine failure.
package sessionclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"
)

var (
	ErrUnauthorized = errors.New("credential invalid or expired")
	ErrForbidden    = errors.New("forbidden")
	ErrNotFound     = errors.New("not found")
	ErrAmbiguous    = errors.New("multiple participants waiting, explicit participant id required")
	ErrConflict     = errors.New("conflict")
	ErrRateLimited  = errors.New("too many requests, retry shortly")
	// ErrNoSession reports that the session still does not exist after
	// repeated polls; the counterpart likely never started the call.
	ErrNoSession = errors.New("no session available")
)

// SentinelParticipantID asks the server to admit whoever is currently
// waiting; it resolves only when exactly one participant waits.
const SentinelParticipantID = "auto"

type ConnectionConfig struct {
	ProviderURL        string   `json:"provider_url"`
	ProviderSessionID  string   `json:"provider_session_id"`
	AccessToken        string   `json:"access_token"`
	ICEServers         []string `json:"ice_servers"`
	Role               int      `json:"role"`
	ScreenShareEnabled bool     `json:"screen_share_enabled"`
	RecordingEnabled   bool     `json:"recording_enabled"`
	WaitingRoomEnabled bool     `json:"waiting_room_enabled"`
}

type WaitingEntry struct {
	ParticipantID string    `json:"participant_id"`
	DisplayName   string    `json:"display_name"`
	WaitingSince  time.Time `json:"waiting_since"`
}

type ScreenSharing struct {
	Active          bool      `json:"active"`
	ByParticipantID string    `json:"by_participant_id"`
	StartedAt       time.Time `json:"started_at"`
}

type Session struct {
	ID            string                  `json:"id"`
	AppointmentID string                  `json:"appointment_id"`
	PatientID     string                  `json:"patient_id"`
	DoctorID      string                  `json:"doctor_id"`
	CreatedAt     time.Time               `json:"created_at"`
	Connection    ConnectionConfig        `json:"connection"`
	WaitingRoom   map[string]WaitingEntry `json:"waiting_room,omitempty"`
	ScreenSharing *ScreenSharing          `json:"screen_sharing,omitempty"`
}

type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

func New(baseURL, token string) *Client {
	return &Client{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (c *Client) CreateSession(ctx context.Context, appointmentID string) (*Session, error) {
	var session Session
	path := fmt.Sprintf("/api/v1/appointments/%s/session", appointmentID)
	if err := c.do(ctx, http.MethodPost, path, nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) GetSession(ctx context.Context, appointmentID string) (*Session, error) {
	var session Session
	path := fmt.Sprintf("/api/v1/appointments/%s/session", appointmentID)
	if err := c.do(ctx, http.MethodGet, path, nil, &session); err != nil {
		return nil, err
	}
	return &session, nil
}

func (c *Client) JoinWaitingRoom(ctx context.Context, appointmentID, displayName string) (*WaitingEntry, error) {
	body := map[string]string{"display_name": displayName}
	var entry WaitingEntry
	path := fmt.Sprintf("/api/v1/appointments/%s/session/waiting-room", appointmentID)
	if err := c.do(ctx, http.MethodPost, path, body, &entry); err != nil {
		return nil, err
	}
	return &entry, nil
}

// AdmitParticipant admits the named participant, or, with
// SentinelParticipantID (or an empty id), whoever is currently waiting.
// A 409 here means the sentinel was ambiguous.
func (c *Client) AdmitParticipant(ctx context.Context, appointmentID, participantID string) (*Session, error) {
	body := map[string]string{"participant_id": participantID}
	var session Session
	path := fmt.Sprintf("/api/v1/appointments/%s/session/waiting-room/admit", appointmentID)
	if err := c.do(ctx, http.MethodPost, path, body, &session); err != nil {
		if errors.Is(err, ErrConflict) {
			return nil, fmt.Errorf("%w: %s", ErrAmbiguous, errMessage(err))
		}
		return nil, err
	}
	return &session, nil
}

func (c *Client) ToggleScreenShare(ctx context.Context, appointmentID string) (*ScreenSharing, error) {
	var state ScreenSharing
	path := fmt.Sprintf("/api/v1/appointments/%s/session/screen-share", appointmentID)
	if err := c.do(ctx, http.MethodPost, path, nil, &state); err != nil {
		return nil, err
	}
	return &state, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return apiError(resp)
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

func apiError(resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(resp.Body)
	if err := json.Unmarshal(data, &payload); err != nil || payload.Error == "" {
		payload.Error = resp.Status
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		return fmt.Errorf("%w: %s", ErrUnauthorized, payload.Error)
	case http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrForbidden, payload.Error)
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", ErrNotFound, payload.Error)
	case http.StatusConflict:
		return fmt.Errorf("%w: %s", ErrConflict, payload.Error)
	case http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, payload.Error)
	default:
		return fmt.Errorf("server returned status %d: %s", resp.StatusCode, payload.Error)
	}
}

func errMessage(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
