package model

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"github.com/daikw/protoeval/internal/imagesource"
)

// Completer submits one multimodal chat-style completion request
type Completer interface {
	// Name returns the provider name
	Name() string

	// Complete sends the prompt with one or two images and returns the model text
	Complete(ctx context.Context, prompt string, images []*imagesource.CapturedImage, maxTokens int) (string, error)
}

// Supported image count per request
const (
	MinImages = 1
	MaxImages = 2
)

// ErrorKind classifies remote call failures
type ErrorKind string

const (
	KindAuth      ErrorKind = "auth"
	KindTimeout   ErrorKind = "timeout"
	KindMalformed ErrorKind = "malformed"
	KindTransport ErrorKind = "transport"
	KindAPI       ErrorKind = "api"
	KindRequest   ErrorKind = "request"
)

// RemoteCallError is returned by every Completer on failure
type RemoteCallError struct {
	Provider string
	Kind     ErrorKind
	Status   int
	Err      error
}

func (e *RemoteCallError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("%s: %s error (status %d): %v", e.Provider, e.Kind, e.Status, e.Err)
	}
	return fmt.Sprintf("%s: %s error: %v", e.Provider, e.Kind, e.Err)
}

func (e *RemoteCallError) Unwrap() error {
	return e.Err
}

// validateRequest checks the request shape before any network call
func validateRequest(provider, prompt string, images []*imagesource.CapturedImage, maxTokens int) error {
	switch {
	case prompt == "":
		return &RemoteCallError{Provider: provider, Kind: KindRequest, Err: errors.New("prompt cannot be empty")}
	case len(images) < MinImages || len(images) > MaxImages:
		return &RemoteCallError{Provider: provider, Kind: KindRequest, Err: fmt.Errorf("expected %d-%d images, got %d", MinImages, MaxImages, len(images))}
	case maxTokens <= 0:
		return &RemoteCallError{Provider: provider, Kind: KindRequest, Err: errors.New("max tokens must be positive")}
	}
	for i, img := range images {
		if img == nil || img.Encoded == "" {
			return &RemoteCallError{Provider: provider, Kind: KindRequest, Err: fmt.Errorf("image %d is empty", i)}
		}
	}
	return nil
}

// kindForStatus maps an HTTP status to an error kind
func kindForStatus(status int) ErrorKind {
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		return KindAuth
	case http.StatusRequestTimeout, http.StatusGatewayTimeout:
		return KindTimeout
	default:
		return KindAPI
	}
}

// transportError wraps a failure that happened before any response arrived
func transportError(provider string, err error) *RemoteCallError {
	kind := KindTransport
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		kind = KindTimeout
	}
	return &RemoteCallError{Provider: provider, Kind: kind, Err: err}
}
