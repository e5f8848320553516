package codec

import (
	"errors"
	"fmt"
)

// 解码失败类别（调用方按 errors.Is 分支）
var (
	ErrTooShort         = errors.New("account data too short")
	ErrOwnerMismatch    = errors.New("account owner mismatch")
	ErrBadDiscriminator = errors.New("account discriminator mismatch")
)

// EncodingError 表示指令字段编码失败（属于调用方 bug，不应重试）
type EncodingError struct {
	Method string
	Field  string
	Reason string
}

func (e *EncodingError) Error() string {
	return fmt.Sprintf("encode %s: field %s: %s", e.Method, e.Field, e.Reason)
}

func encodingErr(method, field, reason string) error {
	return &EncodingError{Method: method, Field: field, Reason: reason}
}

// DecodeError 表示账户数据解码失败，Unwrap 到类别 sentinel，便于 errors.Is 分支
type DecodeError struct {
	Account string // 账户种类：UserAccount / IntentAccount / ...
	kind    error
	detail  string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decode %s: %v (%s)", e.Account, e.kind, e.detail)
}

func (e *DecodeError) Unwrap() error { return e.kind }

func tooShortErr(account string, got, want int) error {
	return &DecodeError{
		Account: account,
		kind:    ErrTooShort,
		detail:  fmt.Sprintf("got=%d want>=%d", got, want),
	}
}

func ownerMismatchErr(account, got, want string) error {
	return &DecodeError{
		Account: account,
		kind:    ErrOwnerMismatch,
		detail:  fmt.Sprintf("owner=%s expected=%s", got, want),
	}
}

func badDiscriminatorErr(account string, got []byte) error {
	return &DecodeError{
		Account: account,
		kind:    ErrBadDiscriminator,
		detail:  fmt.Sprintf("got=%x", got),
	}
}
