package serving

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wyfcoding/kernelsvm/response"
	"github.com/wyfcoding/kernelsvm/xerrors"
)

// PredictRequest 是 POST /v1/predict 的请求体。
type PredictRequest struct {
	Samples      [][]float64 `json:"samples"`
	Standardized bool        `json:"standardized"` // 样本已按训练时的参数标准化。
}

// Handler 把 Service 暴露为 HTTP 接口。
type Handler struct {
	svc *Service
}

// NewHandler 创建 HTTP 处理器。
func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

// Healthz 存活探针。
func (h *Handler) Healthz(c *gin.Context) {
	response.SuccessWithRawData(c, gin.H{"status": "ok"})
}

// Model 返回当前在线模型的摘要。
func (h *Handler) Model(c *gin.Context) {
	info, err := h.svc.Info()
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, info)
}

// Predict 对请求中的样本打分并返回类别。
func (h *Handler) Predict(c *gin.Context) {
	var req PredictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		_ = c.Error(err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			response.Error(c, xerrors.ErrBodyTooLarge.Derive("body exceeds %d bytes", tooLarge.Limit))
			return
		}
		response.Error(c, xerrors.ErrBadRequest.Derive("decode request: %v", err))
		return
	}

	res, err := h.svc.Predict(req.Samples, req.Standardized)
	if err != nil {
		_ = c.Error(err)
		response.Error(c, err)
		return
	}
	response.Success(c, res)
}
