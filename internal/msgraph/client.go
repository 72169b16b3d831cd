package msgraph

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"time"

	"github.com/christopherklint97/bookr/internal/calendar"
)

const graphBaseURL = "https://graph.microsoft.com/v1.0"

// TokenSource hands out bearer tokens. *Auth implements it.
type TokenSource interface {
	Token(ctx context.Context) (string, error)
}

// Client is a Microsoft Graph API client for calendar operations.
type Client struct {
	tokens     TokenSource
	baseURL    string
	httpClient *http.Client
	backoff    func(attempt int) time.Duration
	logger     *slog.Logger
}

// NewClient creates a Graph client. An empty baseURL means the public
// Graph v1.0 endpoint.
func NewClient(tokens TokenSource, baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if baseURL == "" {
		baseURL = graphBaseURL
	}
	return &Client{
		tokens:     tokens,
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		backoff:    backoff,
		logger:     logger,
	}
}

type calendarViewResponse struct {
	Value    []graphEvent `json:"value"`
	NextLink string       `json:"@odata.nextLink"`
}

type graphEvent struct {
	ID          string        `json:"id,omitempty"`
	Subject     string        `json:"subject"`
	Body        *graphBody    `json:"body,omitempty"`
	Start       graphDateTime `json:"start"`
	End         graphDateTime `json:"end"`
	Attendees   []attendee    `json:"attendees,omitempty"`
	IsCancelled bool          `json:"isCancelled,omitempty"`
	IsAllDay    bool          `json:"isAllDay,omitempty"`
	ShowAs      string        `json:"showAs,omitempty"`
}

type graphBody struct {
	ContentType string `json:"contentType"`
	Content     string `json:"content"`
}

type attendee struct {
	EmailAddress emailAddress `json:"emailAddress"`
	Type         string       `json:"type"`
}

type emailAddress struct {
	Address string `json:"address"`
}

type graphDateTime struct {
	DateTime string `json:"dateTime"`
	TimeZone string `json:"timeZone"`
}

const graphLayout = "2006-01-02T15:04:05"

// FetchEvents returns the busy events in [start, end). Cancelled and free
// events are dropped; all-day events are kept since they block the day.
func (c *Client) FetchEvents(ctx context.Context, start, end time.Time) ([]calendar.Event, error) {
	params := url.Values{
		"startDateTime": {start.UTC().Format(graphLayout)},
		"endDateTime":   {end.UTC().Format(graphLayout)},
		"$select":       {"id,subject,start,end,isCancelled,isAllDay,showAs"},
		"$top":          {"100"},
		"$orderby":      {"start/dateTime"},
	}

	requestURL := c.baseURL + "/me/calendarView?" + params.Encode()
	var all []calendar.Event

	for requestURL != "" {
		body, err := c.do(ctx, http.MethodGet, requestURL, nil)
		if err != nil {
			return nil, err
		}

		var view calendarViewResponse
		if err := json.Unmarshal(body, &view); err != nil {
			return nil, fmt.Errorf("parsing graph response: %w", err)
		}
		for _, ge := range view.Value {
			if ge.IsCancelled || ge.ShowAs == "free" {
				continue
			}
			e, err := ge.event()
			if err != nil {
				c.logger.Debug("skipping event with unparseable time", "subject", ge.Subject, "error", err)
				continue
			}
			all = append(all, e)
		}
		requestURL = view.NextLink
	}

	c.logger.Debug("graph calendar events fetched", "count", len(all))
	return all, nil
}

func (ge graphEvent) event() (calendar.Event, error) {
	start, err := parseGraphDateTime(ge.Start)
	if err != nil {
		return calendar.Event{}, err
	}
	end, err := parseGraphDateTime(ge.End)
	if err != nil {
		return calendar.Event{}, err
	}
	return calendar.Event{UID: ge.ID, Summary: ge.Subject, StartTime: start, EndTime: end}, nil
}

// NewEvent is the input to CreateEvent.
type NewEvent struct {
	Subject       string
	Description   string
	Start, End    time.Time
	AttendeeEmail string
}

// CreateEvent posts an event to the signed-in user's default calendar and
// returns its id. Graph sends the invitation when an attendee is present.
func (c *Client) CreateEvent(ctx context.Context, ev NewEvent) (string, error) {
	payload := graphEvent{
		Subject: ev.Subject,
		Start:   graphDateTime{DateTime: ev.Start.UTC().Format(graphLayout), TimeZone: "UTC"},
		End:     graphDateTime{DateTime: ev.End.UTC().Format(graphLayout), TimeZone: "UTC"},
	}
	if ev.Description != "" {
		payload.Body = &graphBody{ContentType: "text", Content: ev.Description}
	}
	if ev.AttendeeEmail != "" {
		payload.Attendees = []attendee{{EmailAddress: emailAddress{Address: ev.AttendeeEmail}, Type: "required"}}
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encoding event: %w", err)
	}

	body, err := c.do(ctx, http.MethodPost, c.baseURL+"/me/events", data)
	if err != nil {
		return "", err
	}

	var created graphEvent
	if err := json.Unmarshal(body, &created); err != nil {
		return "", fmt.Errorf("parsing created event: %w", err)
	}
	c.logger.Info("graph event created", "id", created.ID, "subject", ev.Subject)
	return created.ID, nil
}

// do sends an authenticated request, retrying network errors, 429 and 5xx
// with exponential backoff.
func (c *Client) do(ctx context.Context, method, requestURL string, payload []byte) ([]byte, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return nil, err
	}

	const maxRetries = 3
	var resp *http.Response
	for attempt := 0; ; attempt++ {
		var body io.Reader
		if payload != nil {
			body = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, method, requestURL, body)
		if err != nil {
			return nil, fmt.Errorf("creating graph request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)
		req.Header.Set("Prefer", `outlook.timezone="UTC"`)
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err = c.httpClient.Do(req)
		if err != nil {
			if attempt == maxRetries {
				return nil, fmt.Errorf("graph API request failed: %w", err)
			}
		} else if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			resp.Body.Close()
			if attempt == maxRetries {
				return nil, fmt.Errorf("graph API returned status %d after %d retries", resp.StatusCode, maxRetries)
			}
			c.logger.Debug("graph API retrying", "status", resp.StatusCode, "attempt", attempt+1)
		} else {
			break
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(c.backoff(attempt)):
		}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading graph response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("graph API error (status %d): %s", resp.StatusCode, truncateStr(string(body), 200))
	}
	return body, nil
}

func parseGraphDateTime(gdt graphDateTime) (time.Time, error) {
	loc := time.UTC
	if gdt.TimeZone != "" && gdt.TimeZone != "UTC" {
		if l, err := time.LoadLocation(gdt.TimeZone); err == nil {
			loc = l
		}
	}

	// Graph returns seven fractional digits unless asked otherwise.
	for _, layout := range []string{"2006-01-02T15:04:05.0000000", graphLayout} {
		if t, err := time.ParseInLocation(layout, gdt.DateTime, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("cannot parse datetime %q", gdt.DateTime)
}

func backoff(attempt int) time.Duration {
	return time.Duration(math.Pow(2, float64(attempt))) * time.Second
}

func truncateStr(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
