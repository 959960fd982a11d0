// Package controllers handles HTTP request handling
package controllers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/yigit/schoolportal/internal/app/models/dto"
	"github.com/yigit/schoolportal/internal/app/services"
	"github.com/yigit/schoolportal/internal/middleware"
	"github.com/yigit/schoolportal/internal/pkg/helpers"
)

// actorFrom builds the service actor for the authenticated caller
func actorFrom(ctx *gin.Context) services.Actor {
	return services.Actor{
		UserID: middleware.CurrentUserID(ctx),
		Role:   middleware.CurrentRole(ctx),
		IP:     ctx.ClientIP(),
	}
}

// pageFrom reads page and size query parameters
func pageFrom(ctx *gin.Context) services.PageRequest {
	page, size := helpers.ParsePaginationParams(ctx)
	return services.PageRequest{Page: page, Size: size}
}

// pathID parses a positive ID path parameter, answering 400 when it is not one
func pathID(ctx *gin.Context, name string) (int64, bool) {
	id, ok := helpers.ParseInt64Param(ctx, name)
	if !ok {
		errorDetail := dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "Invalid "+name).
			WithField(name).
			WithDetails(name + " must be a positive number")
		ctx.JSON(http.StatusBadRequest, dto.NewErrorResponse(errorDetail))
	}
	return id, ok
}

func ok(ctx *gin.Context, data interface{}, message string) {
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(data, message))
}

func created(ctx *gin.Context, data interface{}, message string) {
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(data, message))
}

// queryBool reads an optional true/false query parameter
func queryBool(ctx *gin.Context, name string) *bool {
	switch ctx.Query(name) {
	case "true", "1":
		v := true
		return &v
	case "false", "0":
		v := false
		return &v
	}
	return nil
}

// queryInt reads an optional integer query parameter
func queryInt(ctx *gin.Context, name string) *int {
	v := helpers.ParseOptionalInt64Query(ctx, name)
	if v == nil {
		return nil
	}
	i := int(*v)
	return &i
}

// attachment builds a Content-Disposition header value for a download
func attachment(fileName string) string {
	fileName = strings.NewReplacer(`"`, "", "\r", "", "\n", "").Replace(fileName)
	return fmt.Sprintf(`attachment; filename="%s"`, fileName)
}
