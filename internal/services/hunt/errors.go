// Copyright (c) 2025, s0up and the autobrr contributors.
// SPDX-License-Identifier: GPL-2.0-or-later

package hunt

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ProviderUnavailableError is returned when a provider call produced no usable page:
// transport failure, timeout, non-2xx status, malformed envelope or an API-reported error.
type ProviderUnavailableError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *ProviderUnavailableError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider %s unavailable (status %d): %s", e.Provider, e.StatusCode, msg)
	}
	return fmt.Sprintf("provider %s unavailable: %s", e.Provider, msg)
}

func (e *ProviderUnavailableError) Unwrap() error {
	return e.Err
}

func (e *ProviderUnavailableError) Is(target error) bool {
	_, ok := target.(*ProviderUnavailableError)
	return ok
}

// Timeout reports whether the call ran out of time.
func (e *ProviderUnavailableError) Timeout() bool {
	return isTimeoutError(e.Err)
}

func isTimeoutError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

func classifyError(err error) string {
	if err == nil {
		return OutcomeSuccess
	}
	if isTimeoutError(err) {
		return OutcomeTimeout
	}
	return OutcomeError
}
