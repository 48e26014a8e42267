package response

// 业务状态码，HTTP 状态统一为 200，调用方以 status_code 判断结果
const (
	CodeOK              = 0
	CodeBadRequest      = 400 // 参数校验失败、优惠码不可用
	CodeUnauthorized    = 401
	CodeNotFound        = 404
	CodeConflict        = 409 // 库存不足，data 携带 available_stock
	CodeGone            = 410 // 购物车行或预占已过期
	CodeTooManyRequests = 429
	CodeInternal        = 500
)
