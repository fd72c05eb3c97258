// Package response 提供了统一的 HTTP 响应封装，支持业务错误码映射。
package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/kernelsvm/xerrors"
)

// HTTPStatusProvider 定义了能够提供 HTTP 状态码的错误接口。
type HTTPStatusProvider interface {
	HTTPStatus() int // 返回对应的 HTTP 标准状态码
}

// Body 是所有 JSON 响应的外层结构。
type Body struct {
	Code   int    `json:"code"`
	Msg    string `json:"msg"`
	Data   any    `json:"data,omitempty"`
	Detail string `json:"detail,omitempty"`
}

// Success 发送一个标准的成功响应。
// 默认：HTTP 200，业务码 0，消息 "success"。
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Body{Code: 0, Msg: "success", Data: data})
}

// SuccessWithRawData 发送原始数据的成功响应 (不包装 code 和 msg)。
// 用于健康检查等系统接口。
func SuccessWithRawData(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Error 发送错误响应。xerrors 错误使用其业务码与映射后的状态码，
// 其余实现了 HTTPStatusProvider 的错误使用其状态码，无法识别时返回 500。
func Error(c *gin.Context, err error) {
	if err == nil {
		Success(c, nil)
		return
	}

	if e, ok := xerrors.FromError(err); ok {
		c.JSON(e.HTTPStatus(), Body{Code: e.Code, Msg: e.Message, Detail: e.Detail})
		return
	}

	statusCode := http.StatusInternalServerError
	if e, ok := err.(HTTPStatusProvider); ok {
		statusCode = e.HTTPStatus()
	}
	c.JSON(statusCode, Body{Code: statusCode, Msg: err.Error()})
}
