package controllers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/render"
)

// toJSON 将对象转换为JSON字符串，用于SSE事件推送
func toJSON(v interface{}) string {
	data, _ := json.Marshal(v)
	return string(data)
}

// APIResponse 统一API响应结构
type APIResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data,omitempty"`
}

// PaginatedResponse 分页响应结构
type PaginatedResponse struct {
	Status int         `json:"status" example:"0"`
	Msg    string      `json:"msg" example:"操作成功"`
	Data   interface{} `json:"data"`
	Total  int64       `json:"total" example:"100"`
	Page   int         `json:"page" example:"1"`
	Size   int         `json:"size" example:"10"`
}

// SuccessResponse 构造成功响应
func SuccessResponse(msg string, data interface{}) *APIResponse {
	return &APIResponse{
		Status: 0,
		Msg:    msg,
		Data:   data,
	}
}

// BadRequestResponse 构造请求参数错误响应
func BadRequestResponse(msg string, err error) render.Renderer {
	return ErrorResponse(http.StatusBadRequest, msg, err)
}

// NotFoundResponse 构造资源不存在响应
func NotFoundResponse(msg string, err error) render.Renderer {
	return ErrorResponse(http.StatusNotFound, msg, err)
}

// ConflictResponse 构造状态冲突响应
func ConflictResponse(msg string, err error) render.Renderer {
	return ErrorResponse(http.StatusConflict, msg, err)
}

// InternalErrorResponse 构造服务内部错误响应
func InternalErrorResponse(msg string, err error) render.Renderer {
	return ErrorResponse(http.StatusInternalServerError, msg, err)
}

// errRenderer 带HTTP状态码的错误响应
type errRenderer struct {
	APIResponse
	httpStatus int
}

func (e *errRenderer) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.httpStatus)
	return nil
}

// ErrorResponse 构造错误响应，status为HTTP状态码，err非空时拼接到msg
func ErrorResponse(status int, msg string, err error) render.Renderer {
	if err != nil {
		msg = msg + ": " + err.Error()
	}
	return &errRenderer{
		APIResponse: APIResponse{
			Status: status,
			Msg:    msg,
		},
		httpStatus: status,
	}
}
