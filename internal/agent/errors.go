package agent

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// ValidationError reports missing or empty caller input. It is raised before
// any remote call is made.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ConfigurationError reports a structurally invalid prompt override.
type ConfigurationError struct {
	Reason string
}

func (e *ConfigurationError) Error() string {
	return "invalid prompt override: " + e.Reason
}

// RemoteServiceError wraps a failure returned by the agent control plane or
// runtime. Op names the call that failed; Code is the service error code when
// the fault carries one.
type RemoteServiceError struct {
	Op   string
	Code string
	Err  error
}

func (e *RemoteServiceError) Error() string {
	return fmt.Sprintf("bedrock %s: %v", e.Op, e.Err)
}

func (e *RemoteServiceError) Unwrap() error { return e.Err }

// Remote wraps err as a *RemoteServiceError for op, pulling the error code out
// of smithy API errors. Errors that already are remote errors pass through.
func Remote(op string, err error) error {
	if err == nil {
		return nil
	}
	var existing *RemoteServiceError
	if errors.As(err, &existing) {
		return err
	}
	re := &RemoteServiceError{Op: op, Err: err}
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) {
		re.Code = apiErr.ErrorCode()
	}
	return re
}
