package public

import (
	"errors"

	handlershared "github.com/dokan-next/internal/http/handlers/shared"
	"github.com/dokan-next/internal/http/response"
	"github.com/dokan-next/internal/i18n"
	"github.com/dokan-next/internal/service"

	"github.com/gin-gonic/gin"
)

type mappedHandlerError = handlershared.MappedError

var priceErrorRules = []mappedHandlerError{
	{Target: service.ErrProductNotFound, Code: response.CodeNotFound, Key: "error.product_not_found"},
}

var cartItemErrorRules = []mappedHandlerError{
	{Target: service.ErrProductNotFound, Code: response.CodeNotFound, Key: "error.product_not_found"},
	{Target: service.ErrProductNotAvailable, Code: response.CodeBadRequest, Key: "error.product_not_available"},
	{Target: service.ErrInvalidQuantity, Code: response.CodeBadRequest, Key: "error.quantity_invalid"},
	{Target: service.ErrCartItemNotFound, Code: response.CodeNotFound, Key: "error.cart_item_not_found"},
	{Target: service.ErrCartItemExpired, Code: response.CodeGone, Key: "error.cart_item_expired"},
	{Target: service.ErrReservationNotFound, Code: response.CodeGone, Key: "error.cart_item_expired"},
	{Target: service.ErrReservationExpired, Code: response.CodeGone, Key: "error.cart_item_expired"},
	{Target: service.ErrStockConflict, Code: response.CodeConflict, Key: "error.stock_conflict"},
}

var promoCodeErrorRules = []mappedHandlerError{
	{Target: service.ErrCartEmpty, Code: response.CodeBadRequest, Key: "error.cart_empty"},
	{Target: service.ErrPromoCodeNotFound, Code: response.CodeNotFound, Key: "error.promo_code_not_found"},
	{Target: service.ErrPromoCodeUsageLimit, Code: response.CodeBadRequest, Key: "error.promo_code_usage_limit"},
	{Target: service.ErrPromoCodeUserLimit, Code: response.CodeBadRequest, Key: "error.promo_code_user_limit"},
	{Target: service.ErrPromoCodeInvalid, Code: response.CodeBadRequest, Key: "error.promo_code_invalid"},
}

var checkoutErrorRules = []mappedHandlerError{
	{Target: service.ErrCartEmpty, Code: response.CodeBadRequest, Key: "error.cart_empty"},
	{Target: service.ErrPromoCodeUsageLimit, Code: response.CodeBadRequest, Key: "error.promo_code_usage_limit"},
	{Target: service.ErrPromoCodeUserLimit, Code: response.CodeBadRequest, Key: "error.promo_code_user_limit"},
	{Target: service.ErrEventUsageLimit, Code: response.CodeBadRequest, Key: "error.event_usage_limit"},
	{Target: service.ErrPromoCodeInvalid, Code: response.CodeBadRequest, Key: "error.promo_code_invalid"},
}

// respondStockOrMapped 库存不足与优惠码校验错误携带明细，其余按映射表返回
func respondStockOrMapped(c *gin.Context, err error, rules []mappedHandlerError, fallbackKey string) {
	var stockErr *service.InsufficientStockError
	if errors.As(err, &stockErr) {
		msg := i18n.Sprintf(i18n.ResolveLocale(c), "error.stock_insufficient", stockErr.Available)
		response.ErrorWithData(c, response.CodeConflict, msg, gin.H{"available_stock": stockErr.Available})
		return
	}
	var validationErr *service.ValidationErrors
	if errors.As(err, &validationErr) {
		msg := i18n.T(i18n.ResolveLocale(c), "error.promo_code_invalid")
		response.ErrorWithData(c, response.CodeBadRequest, msg, gin.H{"errors": validationErr.Errors})
		return
	}
	handlershared.RespondMapped(c, err, rules, response.CodeInternal, fallbackKey)
}
