package i18n

var messages = map[string]map[string]string{
	LocaleEN: {
		"error.bad_request":            "Invalid request parameters",
		"error.unauthorized":           "Unauthorized",
		"error.forbidden":              "Forbidden",
		"error.jwt_secret_missing":     "Authentication is not configured",
		"error.auth_header_missing":    "Authorization header is missing",
		"error.auth_header_invalid":    "Authorization header is invalid",
		"error.token_invalid":          "Token is invalid or expired",
		"error.user_disabled":          "User account is disabled",
		"error.user_id_invalid":        "User id is invalid",
		"error.user_id_type_invalid":   "User id type is invalid",
		"error.admin_id_invalid":       "Admin id is invalid",
		"error.admin_id_type_invalid":  "Admin id type is invalid",
		"error.rate_limited":           "Too many requests, please retry in %d seconds",
		"error.rate_limit_unavailable": "Rate limiter is unavailable",
		"error.price_fetch_failed":     "Failed to compute price",
		"error.price_batch_too_large":  "Too many products in one request",
		"error.product_not_found":      "Product not found",
		"error.product_invalid":        "Product data is invalid",
		"error.product_not_available":  "Product is not available",
		"error.product_fetch_failed":   "Failed to load products",
		"error.product_save_failed":    "Failed to save product",
		"error.category_not_found":     "Category not found",
		"error.category_save_failed":   "Failed to save category",
		"error.quantity_invalid":       "Quantity is invalid",
		"error.stock_insufficient":     "Only %d left in stock",
		"error.stock_conflict":         "Stock is changing quickly, please retry",
		"error.cart_item_not_found":    "Cart item not found",
		"error.cart_item_expired":      "Cart item reservation has expired",
		"error.cart_empty":             "Cart is empty",
		"error.cart_fetch_failed":      "Failed to load cart",
		"error.cart_update_failed":     "Failed to update cart",
		"error.checkout_failed":        "Checkout failed",
		"error.promo_code_invalid":     "Promo code cannot be applied",
		"error.promo_code_not_found":   "Promo code not found",
		"error.promo_code_exists":      "Promo code already exists",
		"error.promo_code_usage_limit": "Promo code usage limit reached",
		"error.promo_code_user_limit":  "You have already used this promo code",
		"error.promo_code_save_failed": "Failed to save promo code",
		"error.event_not_found":        "Promotional event not found",
		"error.event_invalid":          "Promotional event data is invalid",
		"error.event_transition":       "Promotional event status cannot change this way",
		"error.event_window_ended":     "Promotional event window has ended",
		"error.event_usage_limit":      "Promotional event usage limit reached",
		"error.event_save_failed":      "Failed to save promotional event",
		"error.event_fetch_failed":     "Failed to load promotional events",
	},
	LocaleZHCN: {
		"error.bad_request":            "请求参数错误",
		"error.unauthorized":           "未授权",
		"error.forbidden":              "无权限",
		"error.jwt_secret_missing":     "鉴权未配置",
		"error.auth_header_missing":    "缺少认证信息",
		"error.auth_header_invalid":    "认证信息格式错误",
		"error.token_invalid":          "登录已失效",
		"error.user_disabled":          "账号已禁用",
		"error.user_id_invalid":        "用户ID无效",
		"error.user_id_type_invalid":   "用户ID类型错误",
		"error.admin_id_invalid":       "管理员ID无效",
		"error.admin_id_type_invalid":  "管理员ID类型错误",
		"error.rate_limited":           "请求过于频繁，请 %d 秒后重试",
		"error.rate_limit_unavailable": "限流服务不可用",
		"error.price_fetch_failed":     "价格计算失败",
		"error.price_batch_too_large":  "单次查询商品过多",
		"error.product_not_found":      "商品不存在",
		"error.product_invalid":        "商品数据无效",
		"error.product_not_available":  "商品不可售",
		"error.product_fetch_failed":   "获取商品失败",
		"error.product_save_failed":    "保存商品失败",
		"error.category_not_found":     "分类不存在",
		"error.category_save_failed":   "保存分类失败",
		"error.quantity_invalid":       "数量无效",
		"error.stock_insufficient":     "库存仅剩 %d 件",
		"error.stock_conflict":         "库存变动频繁，请重试",
		"error.cart_item_not_found":    "购物车项不存在",
		"error.cart_item_expired":      "购物车项预占已过期",
		"error.cart_empty":             "购物车为空",
		"error.cart_fetch_failed":      "获取购物车失败",
		"error.cart_update_failed":     "更新购物车失败",
		"error.checkout_failed":        "结算失败",
		"error.promo_code_invalid":     "优惠码不可用",
		"error.promo_code_not_found":   "优惠码不存在",
		"error.promo_code_exists":      "优惠码已存在",
		"error.promo_code_usage_limit": "优惠码已用完",
		"error.promo_code_user_limit":  "您已使用过该优惠码",
		"error.promo_code_save_failed": "保存优惠码失败",
		"error.event_not_found":        "活动不存在",
		"error.event_invalid":          "活动数据无效",
		"error.event_transition":       "活动状态不允许该操作",
		"error.event_window_ended":     "活动已结束",
		"error.event_usage_limit":      "活动名额已满",
		"error.event_save_failed":      "保存活动失败",
		"error.event_fetch_failed":     "获取活动失败",
	},
}
