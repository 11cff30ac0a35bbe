package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/kiranshivaraju/qruntime/pkg/models"
)

// HTTPExecutor forwards executions to a remote computation service.
type HTTPExecutor struct {
	baseURL string
	client  *http.Client
}

// NewHTTPExecutor creates an executor that posts to {baseURL}/v1/execute.
func NewHTTPExecutor(baseURL string, timeout time.Duration) *HTTPExecutor {
	return &HTTPExecutor{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

func (e *HTTPExecutor) Name() string { return "http" }

func (e *HTTPExecutor) Execute(ctx context.Context, req models.ExecutionRequest) (json.RawMessage, error) {
	body, err := json.Marshal(executeRequest{
		JobID:   req.JobID,
		Program: req.Program,
		Backend: req.Backend,
		Params:  req.Params,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/execute", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := e.client.Do(httpReq)
	if err != nil {
		return nil, classifyError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &RejectedError{Detail: failureDetail(resp)}
	}

	var out executeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding executor response: %w", err)
	}
	if out.Error != "" {
		return nil, errors.New(out.Error)
	}
	if len(out.Result) == 0 {
		return nil, fmt.Errorf("executor response has no result")
	}
	return out.Result, nil
}

// failureDetail extracts the error message of a non-200 response, falling
// back to the status line.
func failureDetail(resp *http.Response) string {
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var out executeResponse
	if err := json.Unmarshal(raw, &out); err == nil && out.Error != "" {
		return out.Error
	}
	return fmt.Sprintf("status %d", resp.StatusCode)
}

// classifyError maps transport-level errors to sentinel errors.
func classifyError(err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return fmt.Errorf("%w: %v", ErrExecutorTimeout, err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return fmt.Errorf("%w: %v", ErrExecutorTimeout, err)
	}

	return fmt.Errorf("%w: %v", ErrExecutorUnreachable, err)
}

// --- wire types ---

type executeRequest struct {
	JobID   string          `json:"job_id"`
	Program string          `json:"program"`
	Backend string          `json:"backend"`
	Params  json.RawMessage `json:"params,omitempty"`
}

type executeResponse struct {
	Result json.RawMessage `json:"result"`
	Error  string          `json:"error"`
}

var _ models.Executor = (*HTTPExecutor)(nil)
