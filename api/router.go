package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ticktrack/ticktrack"
	"github.com/ticktrack/ticktrack/storage"
)

// Anything able to report the next departure per station.
type StationIndex interface {
	Statuses() []ticktrack.StationStatus
}

// Read-only view of the monitored trips and the scheduler state. The
// metrics handler is optional.
func NewRouter(s storage.Storage, stations StationIndex, metrics http.Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	r.GET("/trips", func(c *gin.Context) {
		trips, err := s.ListTrips(storage.ListTripsFilter{
			OperationDay: c.Query("operation_day"),
			LineID:       c.Query("line_id"),
		})
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, trips)
	})

	r.GET("/trips/:operation_day/:trip_id", func(c *gin.Context) {
		trip, err := s.GetTrip(c.Param("operation_day"), c.Param("trip_id"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		if trip == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "trip not found"})
			return
		}
		c.JSON(http.StatusOK, trip)
	})

	r.GET("/stations", func(c *gin.Context) {
		c.JSON(http.StatusOK, stations.Statuses())
	})

	if metrics != nil {
		r.GET("/metrics", gin.WrapH(metrics))
	}

	return r
}
