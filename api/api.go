package api

import (
	"github.com/gin-gonic/gin"

	"github.com/prodflow/jirasync"
	"github.com/prodflow/jirasync/api/middleware"
	"github.com/prodflow/jirasync/config"
)

type Api struct {
	service *jirasync.Jirasync
	router  *gin.Engine
}

func (a Api) Router() *gin.Engine {
	router := a.router
	router.POST("/products", a.CreateProduct)
	router.GET("/products/:id", a.GetProduct)
	router.GET("/products", a.GetAllProducts)
	router.PUT("/products/:id", a.UpdateProduct)
	router.DELETE("/products/:id", a.DeleteProduct)

	router.POST("/webhooks/jira", a.ReceiveWebhook)
	return a.router
}

func NewAPI(s *jirasync.Jirasync) (*Api, error) {
	gin.SetMode(gin.ReleaseMode)
	conf, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	r := gin.Default()
	if conf.Server.Secure {
		r.Use(middleware.SecretKeyAuthMiddleware())
	}

	r.GET("/", func(c *gin.Context) {
		c.JSON(200, "server running...")
	})

	return &Api{service: s, router: r}, nil
}
