package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/restaurant-pos/services"
	"github.com/yeremiapane/restaurant-pos/utils"
	"gorm.io/gorm"
)

var ErrNoPermission = &CustomError{"You do not have permission"}

type CustomError struct {
	Message string
}

func (e *CustomError) Error() string {
	return e.Message
}

// RespondServiceError maps a service error kind to its HTTP status and adds
// the kind, reason and details to the envelope. Anything else is a 500.
func RespondServiceError(c *gin.Context, err error) {
	var svcErr *services.Error
	if errors.As(err, &svcErr) {
		data := gin.H{"kind": svcErr.Kind}
		if svcErr.Reason != "" {
			data["reason"] = svcErr.Reason
		}
		if len(svcErr.Details) > 0 {
			data["details"] = svcErr.Details
		}
		utils.RespondErrorWithData(c, svcErr.StatusCode(), svcErr, data)
		return
	}
	if errors.Is(err, gorm.ErrRecordNotFound) {
		utils.RespondError(c, http.StatusNotFound, err)
		return
	}
	utils.ErrorLogger.WithField("path", c.FullPath()).Errorf("request failed: %v", err)
	utils.RespondError(c, http.StatusInternalServerError, err)
}

// paramID parses a positive numeric path parameter, answering 400 otherwise.
func paramID(c *gin.Context, name string) (uint, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid %s", name))
		return 0, false
	}
	return uint(id), true
}
