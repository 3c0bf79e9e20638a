package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/fsdevblog/escrow-ledger/internal/domain"
	"github.com/fsdevblog/escrow-ledger/internal/transport/api/middlewares"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// currentActor собирает актора из значений, которые выставил middlewares.AuthRequired. Без них
// вернется нулевой Actor, совпадающий с системным, поэтому роуты с актором всегда под AuthRequired.
func currentActor(c *gin.Context) domain.Actor {
	return domain.Actor{
		UserID: c.GetInt64(middlewares.CurrentUserIDKey),
		Role:   domain.UserRole(c.GetString(middlewares.CurrentUserRoleKey)),
	}
}

// bindJSON разбирает тело запроса. Ошибки валидации отдаются со статусом 422, прочие - 400.
func bindJSON(c *gin.Context, params any) bool {
	bindErr := c.ShouldBindJSON(params)
	if bindErr == nil {
		return true
	}
	var valErrs validator.ValidationErrors
	if errors.As(bindErr, &valErrs) {
		c.AbortWithStatusJSON(http.StatusUnprocessableEntity, gin.H{"error": validationMessages(valErrs)})
		return false
	}
	_ = c.AbortWithError(http.StatusBadRequest, bindErr).SetType(gin.ErrorTypeBind)
	return false
}

// pathID разбирает положительный id из параметра пути.
func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		_ = c.AbortWithError(http.StatusBadRequest, errors.New("invalid "+name)).SetType(gin.ErrorTypePublic)
		return 0, false
	}
	return id, true
}

func validationMessages(errs validator.ValidationErrors) map[string]string {
	res := make(map[string]string, len(errs))
	for _, fe := range errs {
		res[fe.Field()] = fe.Tag()
	}
	return res
}
