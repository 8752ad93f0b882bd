package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"maps"
	"net"
	"net/http"
	"net/url"
	"slices"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"apiworkbench/models"
	"apiworkbench/store"
)

const DefaultExecutionTimeout = 30 * time.Second

// HTTPDoer dispatches one outbound request. *http.Client satisfies it.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// ExecuteInput is a request definition to run, saved or ad hoc.
type ExecuteInput struct {
	Method      string            `json:"method"`
	URL         string            `json:"url"`
	Headers     map[string]string `json:"headers"`
	QueryParams map[string]string `json:"query_params"`
	BodyType    models.BodyType   `json:"body_type"`
	Body        string            `json:"body"`
}

func (in ExecuteInput) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Method, validation.Required, methodRule),
		validation.Field(&in.URL, validation.Required.Error("url is required")),
		validation.Field(&in.BodyType, bodyTypeRule),
	)
}

// ExecuteInputFromRequest copies a saved request into an ExecuteInput.
func ExecuteInputFromRequest(r *models.Request) ExecuteInput {
	return ExecuteInput{
		Method:      r.Method,
		URL:         r.URL,
		Headers:     maps.Clone(r.Headers),
		QueryParams: maps.Clone(r.QueryParams),
		BodyType:    r.BodyType,
		Body:        r.Body,
	}
}

// PreparedRequest is the request as it went on the wire, after substitution.
type PreparedRequest struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    string
}

// ExecutionResponse is the successful outcome of Execute.
type ExecutionResponse struct {
	StatusCode     int               `json:"status_code"`
	StatusText     string            `json:"status_text"`
	Headers        map[string]string `json:"headers"`
	Body           string            `json:"body"`
	BodyJSON       any               `json:"body_json,omitempty"`
	ResponseTimeMS int64             `json:"response_time_ms"`
	ResponseSize   int64             `json:"response_size"`
	Warnings       []string          `json:"warnings"`
	HistoryID      int64             `json:"history_id,omitempty"`
}

// Executor runs request definitions against live servers. Executions share
// nothing but the store; each gets its own timeout clock.
type Executor struct {
	store   store.Store
	history *HistoryService
	client  HTTPDoer
	timeout time.Duration
	logger  *slog.Logger
}

type ExecutorOption func(*Executor)

func WithHTTPClient(client HTTPDoer) ExecutorOption {
	return func(e *Executor) {
		if client != nil {
			e.client = client
		}
	}
}

func WithTimeout(timeout time.Duration) ExecutorOption {
	return func(e *Executor) {
		if timeout > 0 {
			e.timeout = timeout
		}
	}
}

func WithExecutorLogger(logger *slog.Logger) ExecutorOption {
	return func(e *Executor) {
		if logger != nil {
			e.logger = logger.With("component", "executor")
		}
	}
}

func NewExecutor(st store.Store, history *HistoryService, opts ...ExecutorOption) *Executor {
	e := &Executor{
		store:   st,
		history: history,
		client: &http.Client{
			// Redirect responses are results in their own right.
			CheckRedirect: func(*http.Request, []*http.Request) error { return http.ErrUseLastResponse },
		},
		timeout: DefaultExecutionTimeout,
		logger:  newServiceConfig("executor", nil).logger,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// ExecuteSaved runs the stored request id and records history against it.
func (e *Executor) ExecuteSaved(ctx context.Context, requestID int64, environmentID *int64) (*ExecutionResponse, error) {
	request, err := e.store.Requests().Get(ctx, requestID)
	if err != nil {
		return nil, translate(err, "Request", requestID)
	}
	return e.Execute(ctx, ExecuteInputFromRequest(request), environmentID, &requestID)
}

// Execute substitutes variables from environmentID (or the active
// environment), dispatches the request once and records history on success.
// A dispatch that yields no response returns an *ExecutionError.
func (e *Executor) Execute(ctx context.Context, in ExecuteInput, environmentID *int64, sourceRequestID *int64) (*ExecutionResponse, error) {
	in.Method = strings.ToUpper(in.Method)
	if err := in.Validate(); err != nil {
		return nil, err
	}

	variables, baseURL, err := e.resolveEnvironment(ctx, environmentID)
	if err != nil {
		return nil, err
	}

	prepared, outbound, warnings, execErr := e.prepare(ctx, in, variables, baseURL)
	if execErr != nil {
		e.logger.Warn("request not dispatched", "kind", execErr.Kind, "error", execErr)
		return nil, execErr
	}

	dispatchCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()
	outbound = outbound.WithContext(dispatchCtx)

	start := time.Now()
	resp, err := e.client.Do(outbound)
	if err != nil {
		execErr := classifyTransportError(err, e.timeout)
		e.logger.Warn("request failed", "method", prepared.Method, "url", prepared.URL, "kind", execErr.Kind, "error", err)
		return nil, execErr
	}
	body, err := io.ReadAll(resp.Body)
	resp.Body.Close()
	if err != nil {
		execErr := classifyReadError(err, e.timeout)
		e.logger.Warn("reading response failed", "method", prepared.Method, "url", prepared.URL, "kind", execErr.Kind, "error", err)
		return nil, execErr
	}
	elapsed := time.Since(start)

	result := &ExecutionResponse{
		StatusCode:     resp.StatusCode,
		StatusText:     reasonPhrase(resp),
		Headers:        flattenHeaders(resp.Header),
		Body:           string(body),
		ResponseTimeMS: elapsed.Milliseconds(),
		ResponseSize:   int64(len(body)),
		Warnings:       warnings,
	}
	if strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "application/json") {
		var parsed any
		if json.Unmarshal(body, &parsed) == nil {
			result.BodyJSON = parsed
		}
	}

	entry, err := e.history.Record(ctx, prepared, result, sourceRequestID)
	if err != nil {
		return nil, err
	}
	result.HistoryID = entry.ID

	e.logger.Info("request executed",
		"method", prepared.Method,
		"url", prepared.URL,
		"status", result.StatusCode,
		"elapsed_ms", result.ResponseTimeMS,
		"warnings", len(warnings),
	)
	return result, nil
}

// resolveEnvironment returns the variables and base URL to use. A missing
// environment is not an error: execution proceeds without variables.
func (e *Executor) resolveEnvironment(ctx context.Context, environmentID *int64) (map[string]string, string, error) {
	var (
		env *models.Environment
		err error
	)
	if environmentID != nil {
		env, err = e.store.Environments().Get(ctx, *environmentID)
	} else {
		env, err = e.store.Environments().GetActive(ctx)
	}
	if isStoreNotFound(err) {
		if environmentID != nil {
			e.logger.Warn("environment not found, executing without variables", "environment_id", *environmentID)
		}
		return map[string]string{}, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to resolve environment: %w", err)
	}
	if err := loadVariables(ctx, e.store, env); err != nil {
		return nil, "", err
	}
	return env.VariableMap(), env.BaseURL, nil
}

func (e *Executor) prepare(ctx context.Context, in ExecuteInput, variables map[string]string, baseURL string) (PreparedRequest, *http.Request, []string, *ExecutionError) {
	warnings := []string{}
	warn := func(part string, names []string) {
		for _, name := range names {
			warnings = append(warnings, fmt.Sprintf("Undefined variable in %s: {{%s}}", part, name))
		}
	}

	rawURL, missing := Substitute(in.URL, variables)
	warn("URL", missing)
	headers, missing := SubstituteMap(in.Headers, variables)
	warn("headers", missing)
	query, missing := SubstituteMap(in.QueryParams, variables)
	warn("query params", missing)
	body := in.Body
	if body != "" {
		body, missing = Substitute(body, variables)
		warn("body", missing)
	}

	rawURL = applyBaseURL(rawURL, baseURL)
	target, err := url.Parse(rawURL)
	if err != nil {
		return PreparedRequest{}, nil, nil, &ExecutionError{Kind: ExecutionInvalidURL, Message: "Invalid URL", Details: err.Error(), Err: err}
	}
	if (target.Scheme != "http" && target.Scheme != "https") || target.Host == "" {
		return PreparedRequest{}, nil, nil, &ExecutionError{
			Kind:    ExecutionInvalidURL,
			Message: "Invalid URL",
			Details: fmt.Sprintf("%q is not an absolute http or https URL", rawURL),
		}
	}
	if len(query) > 0 {
		values := target.Query()
		for k, v := range query {
			values.Set(k, v)
		}
		target.RawQuery = values.Encode()
	}

	payload, contentType := encodeBody(in.BodyType, body)
	if contentType != "" && !hasHeader(headers, "Content-Type") {
		headers["Content-Type"] = contentType
	}

	var reader io.Reader
	if payload != "" {
		reader = strings.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, in.Method, target.String(), reader)
	if err != nil {
		return PreparedRequest{}, nil, nil, &ExecutionError{Kind: ExecutionUnknown, Message: "An unexpected error occurred", Details: err.Error(), Err: err}
	}
	for k, v := range headers {
		if strings.EqualFold(k, "Host") {
			req.Host = v
			continue
		}
		req.Header.Set(k, v)
	}

	prepared := PreparedRequest{
		Method:  in.Method,
		URL:     target.String(),
		Headers: headers,
		Body:    payload,
	}
	return prepared, req, warnings, nil
}

// applyBaseURL joins baseURL and a relative url with exactly one slash.
// Absolute http(s) URLs and an empty base are left untouched.
func applyBaseURL(rawURL, baseURL string) string {
	if baseURL == "" || strings.HasPrefix(rawURL, "http://") || strings.HasPrefix(rawURL, "https://") {
		return rawURL
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(rawURL, "/")
}

// encodeBody serializes body per bodyType and returns the content type to
// inject when the caller set none.
func encodeBody(bodyType models.BodyType, body string) (string, string) {
	if body == "" {
		return "", ""
	}
	switch bodyType {
	case models.BodyTypeJSON:
		return body, "application/json"
	case models.BodyTypeForm:
		if values, ok := parseFormBody(body); ok {
			return values.Encode(), "application/x-www-form-urlencoded"
		}
		return body, ""
	default:
		return body, ""
	}
}

// parseFormBody splits key=value pairs on '&'. ok is false when any
// non-empty pair lacks '='.
func parseFormBody(body string) (url.Values, bool) {
	values := url.Values{}
	for _, pair := range strings.Split(body, "&") {
		if pair == "" {
			continue
		}
		key, value, found := strings.Cut(pair, "=")
		if !found {
			return nil, false
		}
		values.Add(key, value)
	}
	return values, true
}

func hasHeader(headers map[string]string, name string) bool {
	for k := range headers {
		if strings.EqualFold(k, name) {
			return true
		}
	}
	return false
}

// flattenHeaders lower-cases names and keeps the last value of repeated headers.
func flattenHeaders(h http.Header) map[string]string {
	out := make(map[string]string, len(h))
	keys := slices.Sorted(maps.Keys(h))
	for _, k := range keys {
		values := h[k]
		if len(values) > 0 {
			out[strings.ToLower(k)] = values[len(values)-1]
		}
	}
	return out
}

func reasonPhrase(resp *http.Response) string {
	text := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if text == "" {
		text = http.StatusText(resp.StatusCode)
	}
	return text
}

func timeoutError(err error, timeout time.Duration) *ExecutionError {
	return &ExecutionError{
		Kind:    ExecutionTimeout,
		Message: "Request timed out",
		Details: fmt.Sprintf("Request exceeded %g seconds timeout", timeout.Seconds()),
		Err:     err,
	}
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// classifyTransportError maps an error from HTTPDoer.Do onto the execution taxonomy.
func classifyTransportError(err error, timeout time.Duration) *ExecutionError {
	if isTimeout(err) {
		return timeoutError(err, timeout)
	}

	var dnsErr *net.DNSError
	var opErr *net.OpError
	if errors.As(err, &dnsErr) || (errors.As(err, &opErr) && opErr.Op == "dial") {
		return &ExecutionError{Kind: ExecutionNetworkError, Message: "Failed to connect to server", Details: err.Error(), Err: err}
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if strings.Contains(urlErr.Err.Error(), "unsupported protocol scheme") {
			return &ExecutionError{Kind: ExecutionInvalidURL, Message: "Invalid URL", Details: err.Error(), Err: err}
		}
		return &ExecutionError{Kind: ExecutionNetworkError, Message: "HTTP error occurred", Details: err.Error(), Err: err}
	}

	return &ExecutionError{Kind: ExecutionUnknown, Message: "An unexpected error occurred", Details: err.Error(), Err: err}
}

// classifyReadError maps a failure while draining the response body.
func classifyReadError(err error, timeout time.Duration) *ExecutionError {
	if isTimeout(err) {
		return timeoutError(err, timeout)
	}
	return &ExecutionError{Kind: ExecutionNetworkError, Message: "HTTP error occurred", Details: err.Error(), Err: err}
}
