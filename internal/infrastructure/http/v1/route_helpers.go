package v1

import (
	"github.com/gin-gonic/gin"
)

// EntityRouteHandler defines the interface for entity handlers.
type EntityRouteHandler interface {
	List(c *gin.Context)
	Create(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
}

// RegisterEntityRoutes registers standard CRUD routes for an entity.
// Static sub-routes such as /search can live in the same group; gin matches
// them ahead of :id. deleteGuards run in front of DELETE only.
func RegisterEntityRoutes(group *gin.RouterGroup, handler EntityRouteHandler, deleteGuards ...gin.HandlerFunc) {
	group.GET("", handler.List)
	group.POST("", handler.Create)
	group.GET("/:id", handler.Get)
	group.PUT("/:id", handler.Update)
	group.DELETE("/:id", append(append([]gin.HandlerFunc{}, deleteGuards...), handler.Delete)...)
}
