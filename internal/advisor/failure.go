package advisor

import (
	"errors"
	"fmt"

	"github.com/Skufu/vitreos/internal/completion"
	"github.com/Skufu/vitreos/internal/prompts"
	"github.com/Skufu/vitreos/internal/recovery"
)

// Kind classifies why an orchestrator produced no result.
type Kind string

const (
	KindLocked        Kind = "profile_required"
	KindNotConfigured Kind = "ai_not_configured"
	KindRequestFailed Kind = "request_failed"
	KindMalformed     Kind = "malformed_response"
	KindValidation    Kind = "validation_failed"
)

// Failure is the only error type orchestrators return. Placeholder is set
// for locked features.
type Failure struct {
	Kind        Kind
	Feature     prompts.Feature
	Message     string
	Placeholder string
	Err         error
}

func (f *Failure) Error() string {
	return fmt.Sprintf("%s: %s: %s", f.Feature, f.Kind, f.Message)
}

func (f *Failure) Unwrap() error {
	return f.Err
}

// AsFailure unwraps err into a *Failure.
func AsFailure(err error) (*Failure, bool) {
	var f *Failure
	if errors.As(err, &f) {
		return f, true
	}
	return nil, false
}

// IsKind reports whether err is a Failure of kind k.
func IsKind(err error, k Kind) bool {
	f, ok := AsFailure(err)
	return ok && f.Kind == k
}

func invalid(feature prompts.Feature, format string, args ...any) *Failure {
	return &Failure{Kind: KindValidation, Feature: feature, Message: fmt.Sprintf(format, args...)}
}

// classify converts a completion or recovery error into a Failure.
func classify(feature prompts.Feature, err error) *Failure {
	var (
		cfgErr   *completion.ConfigurationError
		transErr *completion.TransportError
		malErr   *recovery.MalformedResponseError
	)
	switch {
	case errors.As(err, &cfgErr):
		return &Failure{Kind: KindNotConfigured, Feature: feature, Message: cfgErr.Error(), Err: err}
	case errors.As(err, &transErr):
		return &Failure{Kind: KindRequestFailed, Feature: feature, Message: transErr.Message, Err: err}
	case errors.As(err, &malErr):
		return &Failure{Kind: KindMalformed, Feature: feature, Message: malErr.Error(), Err: err}
	default:
		return &Failure{Kind: KindRequestFailed, Feature: feature, Message: err.Error(), Err: err}
	}
}
