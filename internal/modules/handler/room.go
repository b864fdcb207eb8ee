package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/hausview/panotour/internal/modules/model"
	"github.com/hausview/panotour/internal/modules/serializer"
	"github.com/hausview/panotour/internal/modules/service"
)

type RoomHandler struct {
	svc *service.RoomService
}

func NewRoomHandler(svc *service.RoomService) *RoomHandler {
	return &RoomHandler{svc: svc}
}

type CreateRoomReq struct {
	Name        string   `json:"name" binding:"required"`
	Category    string   `json:"category"`
	Description string   `json:"description"`
	FloorArea   *float64 `json:"floor_area" binding:"omitempty,gt=0"`
	SortOrder   int      `json:"sort_order" binding:"min=0"`
}

func (h *RoomHandler) CreateRoom(c *gin.Context) {
	propertyID, ok := pathUUID(c, "property_id")
	if !ok {
		return
	}

	req := CreateRoomReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	room := model.Room{
		PropertyID:  propertyID,
		Name:        req.Name,
		Category:    req.Category,
		Description: req.Description,
		FloorArea:   req.FloorArea,
		SortOrder:   req.SortOrder,
	}
	if err := h.svc.Create(c.Request.Context(), &room); err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusCreated, serializer.Response{Data: room})
}

func (h *RoomHandler) ListRooms(c *gin.Context) {
	propertyID, ok := pathUUID(c, "property_id")
	if !ok {
		return
	}

	rooms, err := h.svc.ListByProperty(c.Request.Context(), propertyID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, serializer.DBErr("", err))
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: rooms})
}

func (h *RoomHandler) GetRoom(c *gin.Context) {
	roomID, ok := pathUUID(c, "room_id")
	if !ok {
		return
	}

	room, err := h.svc.Get(c.Request.Context(), roomID)
	if err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Data: room})
}

func (h *RoomHandler) DeleteRoom(c *gin.Context) {
	roomID, ok := pathUUID(c, "room_id")
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), roomID); err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Msg: "deleted"})
}

type ReorderRoomsReq struct {
	RoomIDs []uuid.UUID `json:"room_ids" binding:"required,min=1"`
}

func (h *RoomHandler) ReorderRooms(c *gin.Context) {
	propertyID, ok := pathUUID(c, "property_id")
	if !ok {
		return
	}

	req := ReorderRoomsReq{}
	if err := c.ShouldBind(&req); err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("", err))
		return
	}

	if err := h.svc.Reorder(c.Request.Context(), propertyID, req.RoomIDs); err != nil {
		respondErr(c, err)
		return
	}

	c.JSON(http.StatusOK, serializer.Response{Msg: "reordered"})
}

// UploadPanorama accepts a multipart upload and validates it in-line. A
// rejected file never changes the room: the client gets the reason back
// with 422 and can retry with a corrected image.
func (h *RoomHandler) UploadPanorama(c *gin.Context) {
	roomID, ok := pathUUID(c, "room_id")
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("missing file field", err))
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, serializer.ParamErr("unreadable upload", err))
		return
	}
	defer file.Close()

	result, err := h.svc.AcceptUpload(c.Request.Context(), roomID, fileHeader.Filename, file)
	if err != nil {
		respondErr(c, err)
		return
	}
	if !result.Accepted {
		c.JSON(http.StatusUnprocessableEntity,
			serializer.Err(http.StatusUnprocessableEntity, result.Reason, nil))
		return
	}

	c.JSON(http.StatusAccepted, serializer.Response{Msg: "processing queued"})
}
