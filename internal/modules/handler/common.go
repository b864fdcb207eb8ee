package handler

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hausview/panotour/internal/modules/serializer"
	"github.com/hausview/panotour/internal/modules/service"
)

// pathUUID parses a UUID path parameter, replying 400 itself on failure.
func pathUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("invalid "+name, err))
		return uuid.Nil, false
	}
	return id, true
}

// respondErr maps service errors to the API envelope. Sentinels get their
// proper status; anything else is a 500.
func respondErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrPropertyNotFound),
		errors.Is(err, service.ErrRoomNotFound),
		errors.Is(err, service.ErrTourNotFound):
		c.JSON(http.StatusNotFound, serializer.NotFoundErr(err.Error()))
	case errors.Is(err, service.ErrUnknownVoice),
		errors.Is(err, service.ErrNarrationDisabled):
		c.JSON(http.StatusBadRequest, serializer.ParamErr(err.Error(), err))
	case errors.Is(err, service.ErrNoCompletedRooms):
		c.JSON(http.StatusConflict, serializer.Err(http.StatusConflict, err.Error(), err))
	default:
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
	}
}
