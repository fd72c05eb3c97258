package xerrors

var (
	// ErrEmptyData 输入数据为空。
	ErrEmptyData = New(ErrInvalidArg, 400001, "empty data", "input data must not be empty", nil)
	// ErrInvalidConfig 配置错误。
	ErrInvalidConfig = New(ErrInvalidArg, 400005, "invalid config", "check hyperparameters", nil)
	// ErrDimMismatch 维度不匹配.
	ErrDimMismatch = New(ErrInvalidArg, 400007, "dimension mismatch", "matrix or vector dimensions do not match", nil)
	// ErrInvalidKernel 未知的核函数或核参数非法。
	ErrInvalidKernel = New(ErrInvalidArg, 400019, "invalid kernel", "supported kernels: linear, polynomial, rbf", nil)
	// ErrInvalidDataset 数据集格式错误。
	ErrInvalidDataset = New(ErrInvalidArg, 400020, "invalid dataset", "dataset must be numeric csv", nil)
	// ErrInvalidModel 模型名称非法或产物内容损坏。
	ErrInvalidModel = New(ErrInvalidArg, 400021, "invalid model", "model artifact is malformed", nil)
	// ErrBadRequest 请求体无法解析或超出限制。
	ErrBadRequest = New(ErrInvalidArg, 400022, "bad request", "request body is malformed", nil)
	// ErrModelNotFound 模型不存在。
	ErrModelNotFound = New(ErrNotFound, 404001, "model not found", "no artifact stored under this name", nil)
	// ErrBodyTooLarge 请求体超过大小限制。
	ErrBodyTooLarge = New(ErrTooLarge, 413001, "request body too large", "", nil)
	// ErrTooManyRequests 请求被限流。
	ErrTooManyRequests = New(ErrRateLimited, 429001, "too many requests", "", nil)
	// ErrNotTrained 模型尚未训练。
	ErrNotTrained = New(ErrFailedPrecondition, 409001, "model not trained", "call Train before Predict", nil)
)
