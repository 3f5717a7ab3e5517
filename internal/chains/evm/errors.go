package evm

import (
	"errors"
	"strings"
)

// Common EVM errors
var (
	ErrMissingSecret      = errors.New("secret not resolved")
	ErrInvalidMnemonic    = errors.New("invalid mnemonic")
	ErrUnsupportedProfile = errors.New("profile declares no usable connection")
	ErrNetworkMismatch    = errors.New("remote network id does not match the profile")
	ErrTimeoutBlocks      = errors.New("transaction not mined within timeout_blocks")
	ErrTransactionFailed  = errors.New("transaction reverted")
	ErrInvalidTxHash      = errors.New("invalid transaction hash")
)

// redactedError hides the resolved endpoint, which may embed an API key,
// from messages produced by the RPC transport.
type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }
func (e *redactedError) Unwrap() error { return e.err }

func redact(err error, secret, replacement string) error {
	if err == nil || secret == "" || !strings.Contains(err.Error(), secret) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), secret, replacement), err: err}
}
