package websocket

import (
	"encoding/json"

	"avalon-be/internal/service"
	"avalon-be/internal/service/game"

	"go.uber.org/zap"
)

// 客户端通过 websocket 发送的请求类型
const (
	REQ_READY       = "Ready"
	REQ_VOTE        = "Vote"
	REQ_MISSION     = "Mission"
	REQ_GAME_STATUS = "GameStatus"
	REQ_ROLE_INFO   = "RoleInfo"
)

type RequestWrapper struct {
	ReqType string          `json:"request_type"`
	Data    json.RawMessage `json:"data"`
}

type VoteRequest struct {
	ProposalID string `json:"proposal_id"`
	Decision   string `json:"decision"`
}

type MissionRequest struct {
	ProposalID string `json:"proposal_id"`
	Result     string `json:"result"`
}

// tryUnwrap 请求类型不匹配或数据无法解析时返回 nil
func tryUnwrap[T any](wrapper RequestWrapper, reqType string) *T {
	if wrapper.ReqType != reqType {
		return nil
	}

	var req T

	if err := json.Unmarshal(wrapper.Data, &req); err != nil {
		zap.L().Error(
			"解析请求数据失败",
			zap.Error(err),
			zap.String("request_type", wrapper.ReqType),
		)
		return nil
	}

	return &req
}

// 响应类型，事件推送直接使用通知类型作为响应类型
const (
	RESP_ERROR  = "Error"
	RESP_RESULT = "Result"

	ERR_KIND_RATE_LIMITED = "RateLimited"
)

type ResponseWrapper struct {
	RespType string `json:"response_type"`
	ReqType  string `json:"request_type,omitempty"`
	Data     any    `json:"data,omitempty"`
	ErrKind  string `json:"error_kind,omitempty"`
	ErrMsg   string `json:"error_message,omitempty"`
}

func WrapEvent(n service.Notification) ResponseWrapper {
	return ResponseWrapper{
		RespType: string(n.Kind),
		Data:     n,
	}
}

func WrapResponse(reqType string, data any) ResponseWrapper {
	return ResponseWrapper{
		RespType: RESP_RESULT,
		ReqType:  reqType,
		Data:     data,
	}
}

func WrapErrResponse(reqType string, err error) ResponseWrapper {
	return ResponseWrapper{
		RespType: RESP_ERROR,
		ReqType:  reqType,
		ErrKind:  string(game.KindOf(err)),
		ErrMsg:   err.Error(),
	}
}

func WrapRateLimited(reqType string) ResponseWrapper {
	return ResponseWrapper{
		RespType: RESP_ERROR,
		ReqType:  reqType,
		ErrKind:  ERR_KIND_RATE_LIMITED,
		ErrMsg:   "请求过于频繁，请稍后再试",
	}
}
