package admin

import (
	handlershared "github.com/dokan-next/internal/http/handlers/shared"
	"github.com/dokan-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// Handler 后台管理接口处理器入口
// 说明：该处理器仅用于活动、优惠码与商品价格维护 API。
type Handler struct {
	*provider.Container
}

// New 创建后台处理器
func New(c *provider.Container) *Handler {
	return &Handler{Container: c}
}

func respondError(c *gin.Context, code int, key string, err error) {
	handlershared.RespondError(c, code, key, err)
}

func getAdminID(c *gin.Context) (uint, bool) {
	return handlershared.RequireContextUint(c, "admin_id", "error.admin_id_invalid")
}
