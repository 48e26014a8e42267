package public

import (
	handlershared "github.com/dokan-next/internal/http/handlers/shared"
	"github.com/dokan-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// Handler 前台/公开接口处理器入口
// 说明：该处理器仅用于价格查询、商品列表与用户购物车 API。
type Handler struct {
	*provider.Container
}

// New 创建前台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func getUserID(c *gin.Context) (uint, bool) {
	return handlershared.RequireContextUint(c, "user_id", "error.user_id_invalid")
}

// optionalUserID 公开接口可选登录，未登录时返回 0
func optionalUserID(c *gin.Context) uint {
	id, _ := handlershared.ContextUint(c, "user_id")
	return id
}
