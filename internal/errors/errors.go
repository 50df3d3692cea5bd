// SPDX-License-Identifier: Apache-2.0

// Package errors defines the coded error taxonomy shared by every storectl
// layer. Errors carry a machine-readable Code plus structured context fields
// and are built on github.com/samber/oops.
package errors

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeSecretNotFound Code = "secret.read.not_found"

	CodeFeatureUnavailable  Code = "backend.feature.unavailable"
	CodePlatformUnavailable Code = "backend.platform.unavailable"
	CodeBackendFailure      Code = "backend.driver.failure"

	CodeConfigStoreInvalid       Code = "config.store.invalid"
	CodeConfigLoadFailure        Code = "config.load.failure"
	CodeConfigParseInvalidFormat Code = "config.parse.invalid_format"
	CodeConfigStoreNotFound      Code = "config.store.not_found"

	CodeCommandSpawnFailure   Code = "command.spawn.failure"
	CodeCommandExitFailure    Code = "command.exit.failure"
	CodeCommandIOFailure      Code = "command.io.failure"
	CodeCommandOutputEncoding Code = "command.output.invalid_encoding"

	CodeCLIInputInvalid Code = "cli.input.invalid"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

// FieldOp names the backend operation that failed: create-entry, get, set or
// delete for drivers, read, write or remove at the capability layer.
func FieldOp(value string) Attr {
	return Field("op", value)
}

func FieldKind(value string) Attr {
	return Field("kind", value)
}

func FieldStore(value string) Attr {
	return Field("store", value)
}

func FieldFeature(value string) Attr {
	return Field("feature", value)
}

func FieldPlatform(value string) Attr {
	return Field("platform", value)
}

func FieldProgram(value string) Attr {
	return Field("program", value)
}

func FieldExitStatus(value string) Attr {
	return Field("exit_status", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

// Wrap attaches code, message and fields to err. When err already carries a
// code, that code is kept: oops reports the deepest code in a chain, so the
// outer code would never be visible anyway.
func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}
	if inner := CodeOf(err); inner != "" {
		code = inner
	}
	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}
	if inner := CodeOf(err); inner != "" {
		code = inner
	}
	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain without changing
// its message.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeBackendFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	switch code := oopsErr.Code().(type) {
	case Code:
		return code
	case string:
		return Code(code)
	case nil:
		return ""
	default:
		return Code(fmt.Sprintf("%v", code))
	}
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_format"
}

func IsUnavailable(err error) bool {
	return reason(CodeOf(err)) == "unavailable"
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
