package composite

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidConfig is returned for provider configuration errors.
var ErrInvalidConfig = errors.New("invalid composite provider config")

// ContractError is raised in strict contract mode.
type ContractError struct {
	Feed       string
	Violations []string
}

func (e *ContractError) Error() string {
	shown := e.Violations
	if len(shown) > 5 {
		shown = shown[:5]
	}
	return fmt.Sprintf("%s_contract_invalid: %s", e.Feed, strings.Join(shown, ","))
}

// FeedError is raised when a feed fails and graceful degradation is off.
type FeedError struct {
	Feed string
	Err  error
}

func (e *FeedError) Error() string {
	return fmt.Sprintf("%s_fetch_failed: %v", e.Feed, e.Err)
}

func (e *FeedError) Unwrap() error {
	return e.Err
}
