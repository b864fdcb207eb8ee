package router

import (
	"net/http"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hausview/panotour/internal/config"
	"github.com/hausview/panotour/internal/middleware"
	"github.com/hausview/panotour/internal/modules/handler"
	"github.com/hausview/panotour/internal/modules/serializer"
)

type RouterDeps struct {
	Config          *config.Config
	Log             *zap.Logger
	PropertyHandler *handler.PropertyHandler
	RoomHandler     *handler.RoomHandler
	TourHandler     *handler.TourHandler
}

func NewRouter(d RouterDeps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	if d.Config.Telemetry.Enabled && d.Config.Telemetry.OtlpEndpoint != "" {
		r.Use(middleware.OtelTracing(d.Config.App.Name))
		r.Use(middleware.TraceID())
	}

	r.Use(middleware.ZapLogger(d.Log))
	r.Use(cors.Default())

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, serializer.Response{Msg: "ok"}) })

	// Tour pages and their assets are plain files on the local backend;
	// the s3 backend serves them from the bucket's public URL instead.
	if d.Config.Storage.Backend == "local" {
		r.Static("/tours", d.Config.Storage.LocalDir+"/tours")
	}

	v1 := r.Group("/api/v1")
	{
		properties := v1.Group("/properties")
		{
			properties.POST("", d.PropertyHandler.CreateProperty)
			properties.GET("/:property_id", d.PropertyHandler.GetProperty)

			properties.POST("/:property_id/rooms", d.RoomHandler.CreateRoom)
			properties.GET("/:property_id/rooms", d.RoomHandler.ListRooms)
			properties.PUT("/:property_id/rooms/reorder", d.RoomHandler.ReorderRooms)

			properties.POST("/:property_id/tours", d.TourHandler.GenerateTour)
			properties.GET("/:property_id/tour", d.TourHandler.LatestTour)
		}

		rooms := v1.Group("/rooms")
		{
			rooms.GET("/:room_id", d.RoomHandler.GetRoom)
			rooms.DELETE("/:room_id", d.RoomHandler.DeleteRoom)
			rooms.POST("/:room_id/panorama", d.RoomHandler.UploadPanorama)
		}

		tours := v1.Group("/tours")
		{
			tours.GET("/:tour_id", d.TourHandler.GetTour)
			tours.POST("/:tour_id/view", d.TourHandler.TrackView)
			tours.GET("/:tour_id/analytics", d.TourHandler.GetAnalytics)
		}
	}

	return r
}
