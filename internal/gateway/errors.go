package gateway

import "errors"

var (
	ErrExecutorUnreachable = errors.New("executor unreachable")
	ErrExecutorTimeout     = errors.New("executor timeout")
	ErrExecutionRejected   = errors.New("execution rejected")
)

// RejectedError reports an execution the remote executor refused. Its text
// is the executor's own detail, unchanged, so it can be surfaced as the
// job's failure detail. It matches ErrExecutionRejected through errors.Is.
type RejectedError struct {
	Detail string
}

func (e *RejectedError) Error() string { return e.Detail }

func (e *RejectedError) Is(target error) bool { return target == ErrExecutionRejected }
