package controllers

import (
	"github.com/gin-gonic/gin"
	"github.com/yigit/schoolportal/internal/app/services"
	"github.com/yigit/schoolportal/internal/middleware"
)

// AddressController serves the cascading address dropdowns
type AddressController struct {
	addresses *services.AddressService
}

// NewAddressController creates a new AddressController
func NewAddressController(addresses *services.AddressService) *AddressController {
	return &AddressController{addresses: addresses}
}

// Regions godoc
// @Summary List regions
// @Tags addresses
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]models.Region}
// @Router /addresses/regions [get]
func (c *AddressController) Regions(ctx *gin.Context) {
	regions, err := c.addresses.Regions(ctx.Request.Context())
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, regions, "")
}

// Provinces lists the provinces of a region
func (c *AddressController) Provinces(ctx *gin.Context) {
	provinces, err := c.addresses.Provinces(ctx.Request.Context(), ctx.Param("code"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, provinces, "")
}

// Cities lists the cities and municipalities of a province
func (c *AddressController) Cities(ctx *gin.Context) {
	cities, err := c.addresses.Cities(ctx.Request.Context(), ctx.Param("code"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, cities, "")
}

// Barangays lists the barangays of a city
func (c *AddressController) Barangays(ctx *gin.Context) {
	barangays, err := c.addresses.Barangays(ctx.Request.Context(), ctx.Param("code"))
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ok(ctx, barangays, "")
}
