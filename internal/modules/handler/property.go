package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/hausview/panotour/internal/modules/model"
	"github.com/hausview/panotour/internal/modules/serializer"
	"github.com/hausview/panotour/internal/modules/service"
	"gorm.io/datatypes"
)

type PropertyHandler struct {
	svc *service.PropertyService
}

func NewPropertyHandler(svc *service.PropertyService) *PropertyHandler {
	return &PropertyHandler{svc: svc}
}

type CreatePropertyReq struct {
	Title        string   `json:"title" binding:"required"`
	Description  string   `json:"description"`
	Address      string   `json:"address"`
	Price        int64    `json:"price" binding:"min=0"`
	PropertyType string   `json:"property_type"`
	Bedrooms     int      `json:"bedrooms" binding:"min=0"`
	Bathrooms    float64  `json:"bathrooms" binding:"min=0"`
	SquareFeet   int      `json:"square_feet" binding:"min=0"`
	Features     []string `json:"features"`
}

func (h *PropertyHandler) CreateProperty(c *gin.Context) {
	req := CreatePropertyReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	prop := model.Property{
		Title:        req.Title,
		Description:  req.Description,
		Address:      req.Address,
		Price:        req.Price,
		PropertyType: req.PropertyType,
		Bedrooms:     req.Bedrooms,
		Bathrooms:    req.Bathrooms,
		SquareFeet:   req.SquareFeet,
		Features:     datatypes.JSONSlice[string](req.Features),
	}
	if err := h.svc.Create(c.Request.Context(), &prop); err != nil {
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}

	c.JSON(http.StatusCreated, serializer.Response{Data: prop})
}

func (h *PropertyHandler) GetProperty(c *gin.Context) {
	id, ok := pathUUID(c, "property_id")
	if !ok {
		return
	}

	prop, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: prop})
}
