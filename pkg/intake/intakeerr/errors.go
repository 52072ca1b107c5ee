// Package intakeerr defines the error taxonomy shared by the intake session,
// its sub-flows and the protocol layer.
package intakeerr

import (
	"errors"
	"fmt"
	"strings"
)

type Code string

const (
	CodeInvalidSession          Code = "invalid_session"
	CodeSubflowBusy             Code = "subflow_busy"
	CodeRecognitionPending      Code = "recognition_pending"
	CodeUnresolvedAddress       Code = "unresolved_address"
	CodeIncompleteFields        Code = "incomplete_fields"
	CodeMalformedMessage        Code = "malformed_message"
	CodeCollaboratorUnavailable Code = "collaborator_unavailable"
	CodeContactRequired         Code = "contact_required"
)

// Error is a typed intake error. Two errors match under errors.Is when their
// codes are equal, so wrapped causes do not hide the category.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

var (
	ErrInvalidSession          = &Error{Code: CodeInvalidSession, Message: "会话不存在或已过期"}
	ErrSubflowBusy             = &Error{Code: CodeSubflowBusy, Message: "地址正在确认中，请先完成当前地址的确认"}
	ErrRecognitionPending      = &Error{Code: CodeRecognitionPending, Message: "还有未确认的识别结果，请先确认或删除"}
	ErrUnresolvedAddress       = &Error{Code: CodeUnresolvedAddress, Message: "未能找到该地址，请提供更详细的地址"}
	ErrMalformedMessage        = &Error{Code: CodeMalformedMessage, Message: "消息格式错误"}
	ErrCollaboratorUnavailable = &Error{Code: CodeCollaboratorUnavailable, Message: "服务暂时不可用，请稍后再试"}
	ErrContactRequired         = &Error{Code: CodeContactRequired, Message: "请输入联系方式以便搬家公司与您联系"}
)

// CollaboratorUnavailable wraps a failure of an external collaborator call.
func CollaboratorUnavailable(collaborator string, err error) error {
	return &Error{
		Code:    CodeCollaboratorUnavailable,
		Message: ErrCollaboratorUnavailable.Message,
		Err:     fmt.Errorf("%s: %w", collaborator, err),
	}
}

// Malformed wraps a decode or validation failure of an inbound message.
func Malformed(err error) error {
	return &Error{Code: CodeMalformedMessage, Message: ErrMalformedMessage.Message, Err: err}
}

// IncompleteFieldsError blocks a submission and lists the required fields
// that have not reached baseline.
type IncompleteFieldsError struct {
	Missing []string
}

func (e *IncompleteFieldsError) Error() string {
	return fmt.Sprintf("%s: missing %s", CodeIncompleteFields, strings.Join(e.Missing, ","))
}

func (e *IncompleteFieldsError) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == CodeIncompleteFields
}

const incompleteMessage = "请先完成所有必填信息"

// Describe returns the wire code and user-facing message for err.
func Describe(err error) (Code, string) {
	var inc *IncompleteFieldsError
	if errors.As(err, &inc) {
		return CodeIncompleteFields, incompleteMessage
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Code, e.Message
	}
	return "", err.Error()
}

// MissingFields returns the missing list carried by an IncompleteFieldsError.
func MissingFields(err error) []string {
	var inc *IncompleteFieldsError
	if errors.As(err, &inc) {
		return inc.Missing
	}
	return nil
}

// IsTyped reports whether err belongs to the intake taxonomy.
func IsTyped(err error) bool {
	code, _ := Describe(err)
	return code != ""
}
