package game

import "errors"

// 错误类别，调用方通过 errors.Is 区分被拒绝的操作与临时故障
type Kind string

const (
	KIND_NOT_FOUND     Kind = "NotFound"
	KIND_CONFLICT      Kind = "Conflict"
	KIND_AUTHORIZATION Kind = "Authorization"
	KIND_VALIDATION    Kind = "Validation"
	KIND_STATE         Kind = "State"
	KIND_STORAGE       Kind = "Storage"
)

type Error struct {
	Kind  Kind
	Msg   string
	Cause error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return e.Msg + ": " + e.Cause.Error()
	}

	return e.Msg
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Is 按类别匹配，因此 errors.Is(err, ErrConflict) 对所有冲突错误成立
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

var (
	ErrNotFound      = &Error{Kind: KIND_NOT_FOUND, Msg: "资源不存在"}
	ErrConflict      = &Error{Kind: KIND_CONFLICT, Msg: "操作冲突"}
	ErrAuthorization = &Error{Kind: KIND_AUTHORIZATION, Msg: "无权执行该操作"}
	ErrValidation    = &Error{Kind: KIND_VALIDATION, Msg: "参数无效"}
	ErrState         = &Error{Kind: KIND_STATE, Msg: "当前阶段不允许该操作"}
	ErrStorage       = &Error{Kind: KIND_STORAGE, Msg: "存储不可用"}
)

func NotFound(msg string) error {
	return &Error{Kind: KIND_NOT_FOUND, Msg: msg}
}

func Conflict(msg string) error {
	return &Error{Kind: KIND_CONFLICT, Msg: msg}
}

func Unauthorized(msg string) error {
	return &Error{Kind: KIND_AUTHORIZATION, Msg: msg}
}

func Invalid(msg string) error {
	return &Error{Kind: KIND_VALIDATION, Msg: msg}
}

func WrongState(msg string) error {
	return &Error{Kind: KIND_STATE, Msg: msg}
}

func Storage(msg string, cause error) error {
	return &Error{Kind: KIND_STORAGE, Msg: msg, Cause: cause}
}

// KindOf 返回错误链中第一个领域错误的类别，非领域错误返回空串
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}

	return ""
}
