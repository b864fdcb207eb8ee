package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hausview/panotour/internal/modules/serializer"
	"github.com/hausview/panotour/internal/modules/service"
)

type TourHandler struct {
	svc *service.TourService
}

func NewTourHandler(svc *service.TourService) *TourHandler {
	return &TourHandler{svc: svc}
}

type GenerateTourReq struct {
	Name     string `json:"name"`
	Narrated bool   `json:"narrated"`
	Voice    string `json:"voice"`
}

// GenerateTour queues a tour build for the property's completed rooms. The
// reply is 202 with the generating record; the client polls it to
// completion.
func (h *TourHandler) GenerateTour(c *gin.Context) {
	propertyID, ok := pathUUID(c, "property_id")
	if !ok {
		return
	}

	req := GenerateTourReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	tour, err := h.svc.RequestGeneration(c.Request.Context(), propertyID, service.GenerateTourInput{
		Name:     req.Name,
		Narrated: req.Narrated,
		Voice:    req.Voice,
	})
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusAccepted, serializer.Response{Data: tour})
}

func (h *TourHandler) GetTour(c *gin.Context) {
	tourID, ok := pathUUID(c, "tour_id")
	if !ok {
		return
	}

	tour, err := h.svc.Get(c.Request.Context(), tourID)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: tour})
}

func (h *TourHandler) LatestTour(c *gin.Context) {
	propertyID, ok := pathUUID(c, "property_id")
	if !ok {
		return
	}

	tour, err := h.svc.LatestByProperty(c.Request.Context(), propertyID)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: tour})
}

func (h *TourHandler) TrackView(c *gin.Context) {
	tourID, ok := pathUUID(c, "tour_id")
	if !ok {
		return
	}

	views, err := h.svc.TrackView(c.Request.Context(), tourID)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: gin.H{"views": views}})
}

func (h *TourHandler) GetAnalytics(c *gin.Context) {
	tourID, ok := pathUUID(c, "tour_id")
	if !ok {
		return
	}

	analytics, err := h.svc.Analytics(c.Request.Context(), tourID)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: analytics})
}
