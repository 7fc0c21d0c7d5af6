package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"gestionar/internal/datastore"
)

// CatalogHandler is a cached read-only pass-through for the thin per-entity
// screens (product editor list, client list). Writes go straight to the
// upstream API from the frontend and are out of scope here.
type CatalogHandler struct {
	data *datastore.Datasets
}

func NewCatalogHandler(data *datastore.Datasets) *CatalogHandler {
	return &CatalogHandler{data: data}
}

// Products returns the cached catalog.
func (h *CatalogHandler) Products(c *gin.Context) {
	products, err := h.data.Products(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": products})
}

// Clients returns the cached client list.
func (h *CatalogHandler) Clients(c *gin.Context) {
	clients, err := h.data.Clients(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": clients})
}
