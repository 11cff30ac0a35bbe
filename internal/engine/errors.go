package engine

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound        = errors.New("resource not found")
	ErrInvalidMode     = errors.New("invalid session mode")
	ErrInvalidTTL      = errors.New("max_ttl must be positive")
	ErrUnknownBackend  = errors.New("unknown backend")
	ErrUnknownProgram  = errors.New("unknown program")
	ErrBackendMismatch = errors.New("backend does not match session backend")
	ErrSessionClosed   = errors.New("session is not accepting jobs")
	ErrSessionExpired  = errors.New("session is no longer active")
	ErrNotReady        = errors.New("job result not ready")
	ErrJobFailed       = errors.New("job failed")
)

// JobFailedError carries the executor's failure detail unchanged.
type JobFailedError struct {
	JobID  string
	Detail string
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("job %s failed: %s", e.JobID, e.Detail)
}

// Is makes errors.Is(err, ErrJobFailed) hold for any JobFailedError.
func (e *JobFailedError) Is(target error) bool {
	return target == ErrJobFailed
}
