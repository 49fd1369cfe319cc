package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/course-scheduler-api/internal/models"
	"github.com/noah-isme/course-scheduler-api/pkg/middleware/requestid"
)

const maxErrorBody = 512

// Observer receives one observation per backend call.
type Observer interface {
	ObserveBackendRequest(operation, outcome string, duration time.Duration)
}

// Client talks to the institution REST backend on behalf of the dashboard user.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
	observer   Observer
}

// NewClient builds a backend client. A zero timeout leaves requests bounded only by the caller's context.
func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger, observer Observer) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
		observer:   observer,
	}
}

type cookieKey struct{}

// WithCookie attaches the caller's session cookie so it is forwarded on backend calls.
func WithCookie(ctx context.Context, cookie *http.Cookie) context.Context {
	if cookie == nil {
		return ctx
	}
	return context.WithValue(ctx, cookieKey{}, cookie)
}

func cookieFrom(ctx context.Context) *http.Cookie {
	c, _ := ctx.Value(cookieKey{}).(*http.Cookie)
	return c
}

// CourseGroupings lists the groupings offered to a student for a course, together with
// the meetings the backend embeds for each grouping.
func (c *Client) CourseGroupings(ctx context.Context, courseCode, studentID string) (*GroupingSet, error) {
	const op = "course_groupings"
	path := "/api/course/get-all-course-groupings-by-course-code/" + url.PathEscape(courseCode) + "/" + url.PathEscape(studentID)
	raw, err := c.do(ctx, op, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	set, err := decodeGroupingSet(raw)
	if err != nil {
		return nil, &DecodeError{Op: op, Err: err}
	}
	return set, nil
}

// GroupingSchedule returns the weekly meetings of one grouping.
func (c *Client) GroupingSchedule(ctx context.Context, groupingID string) ([]models.MeetingPayload, error) {
	const op = "grouping_schedule"
	raw, err := c.do(ctx, op, http.MethodGet, "/api/course/course_grouping/"+url.PathEscape(groupingID)+"/", nil)
	if err != nil {
		return nil, err
	}
	meetings, err := decodeMeetingList(raw)
	if err != nil {
		return nil, &DecodeError{Op: op, Err: err}
	}
	return meetings, nil
}

// Student fetches a student record.
func (c *Client) Student(ctx context.Context, studentID string) (*models.StudentInfo, error) {
	const op = "student"
	raw, err := c.do(ctx, op, http.MethodGet, "/api/student/"+url.PathEscape(studentID), nil)
	if err != nil {
		return nil, err
	}
	student, err := decodeStudent(raw)
	if err != nil {
		return nil, &DecodeError{Op: op, Err: err}
	}
	return student, nil
}

// ReplaceCourseGroupings persists the student's final grouping selection.
func (c *Client) ReplaceCourseGroupings(ctx context.Context, studentID string, groupingIDs []string) error {
	const op = "replace_course_groupings"
	if groupingIDs == nil {
		groupingIDs = []string{}
	}
	body, err := json.Marshal(models.ReplaceCourseGroupingsRequest{CourseGroupings: groupingIDs})
	if err != nil {
		return fmt.Errorf("%s: encode body: %w", op, err)
	}
	_, err = c.do(ctx, op, http.MethodPut, "/api/student/replace-course-groupings/"+url.PathEscape(studentID), body)
	return err
}

// FlipMarkDone toggles the student's schedule completion flag.
func (c *Client) FlipMarkDone(ctx context.Context, studentID string) error {
	_, err := c.do(ctx, "flip_mark_done", http.MethodPost, "/api/student/flip-mark-done/"+url.PathEscape(studentID), nil)
	return err
}

// UserInfo asks the backend who owns the forwarded session cookie.
func (c *Client) UserInfo(ctx context.Context) (*models.UserInfo, error) {
	const op = "user_info"
	raw, err := c.do(ctx, op, http.MethodGet, "/api/authenticate/get-user-info/", nil)
	if err != nil {
		return nil, err
	}
	info, err := decodeUserInfo(raw)
	if err != nil {
		return nil, &DecodeError{Op: op, Err: err}
	}
	return info, nil
}

func (c *Client) do(ctx context.Context, op, method, path string, body []byte) ([]byte, error) {
	start := time.Now()
	raw, err := c.roundTrip(ctx, op, method, path, body)
	outcome := "ok"
	if err != nil {
		outcome = outcomeOf(err)
		c.logger.Warn("backend request failed",
			zap.String("op", op),
			zap.String("method", method),
			zap.String("path", path),
			zap.String("outcome", outcome),
			zap.Error(err),
		)
	}
	if c.observer != nil {
		c.observer.ObserveBackendRequest(op, outcome, time.Since(start))
	}
	return raw, err
}

func (c *Client) roundTrip(ctx context.Context, op, method, path string, body []byte) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cookie := cookieFrom(ctx); cookie != nil {
		req.AddCookie(cookie)
	}
	if reqID := requestid.FromContext(ctx); reqID != "" {
		req.Header.Set(requestid.HeaderKey, reqID)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{Op: op, Err: fmt.Errorf("read body: %w", err)}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet := strings.TrimSpace(string(payload))
		if len(snippet) > maxErrorBody {
			snippet = snippet[:maxErrorBody]
		}
		return nil, &StatusError{Op: op, StatusCode: resp.StatusCode, Body: snippet}
	}
	return payload, nil
}

func outcomeOf(err error) string {
	var (
		se *StatusError
		de *DecodeError
	)
	switch {
	case errors.Is(err, context.Canceled):
		return "canceled"
	case errors.As(err, &se):
		return fmt.Sprintf("status_%d", se.StatusCode)
	case errors.As(err, &de):
		return "malformed"
	default:
		return "transport"
	}
}
