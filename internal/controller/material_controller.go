package controller

import (
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jinzhu/copier"
	"github.com/lshigami/Tamarin/internal/dto"
	"github.com/lshigami/Tamarin/internal/service"
	"github.com/rs/zerolog/log"
)

type MaterialController struct {
	materialService service.MaterialService
}

func NewMaterialController(materialService service.MaterialService) *MaterialController {
	return &MaterialController{materialService: materialService}
}

// UploadMaterial godoc
// @Summary Upload a study material
// @Description Upload a PDF/TXT/MD/DOCX file. The material is extracted, chunked and embedded inline; the response carries the resulting ingestion status.
// @Tags Materials
// @Accept mpfd
// @Produce json
// @Param user_id query int true "Acting user ID"
// @Param file formData file true "Document file"
// @Param title formData string false "Material title (defaults to the file name)"
// @Param description formData string false "Material description"
// @Success 201 {object} dto.MaterialResponse
// @Failure 400 {object} dto.ErrorResponse "Unsupported format or bad request"
// @Failure 422 {object} dto.ErrorResponse "Extraction failed"
// @Failure 500 {object} dto.ErrorResponse "Internal server error"
// @Router /materials [post]
func (c *MaterialController) UploadMaterial(ctx *gin.Context) {
	userID, ok := userIDFromQuery(ctx)
	if !ok {
		return
	}

	var req dto.UploadMaterialRequest
	if err := ctx.ShouldBind(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid form data", Details: []string{err.Error()}})
		return
	}

	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "A file is required", Details: []string{err.Error()}})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Could not open uploaded file", Details: []string{err.Error()}})
		return
	}
	defer file.Close()
	data, err := io.ReadAll(file)
	if err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Could not read uploaded file", Details: []string{err.Error()}})
		return
	}

	material, err := c.materialService.Upload(ctx.Request.Context(), userID, fileHeader.Filename, data, req.Title, req.Description)
	if err != nil {
		log.Error().Err(err).Uint("userID", userID).Str("filename", fileHeader.Filename).Msg("UploadMaterial: service error")
		respondError(ctx, err, "Failed to upload material")
		return
	}

	var resp dto.MaterialResponse
	copier.Copy(&resp, material)
	ctx.JSON(http.StatusCreated, resp)
}

// ListMaterials godoc
// @Summary List the user's materials
// @Tags Materials
// @Produce json
// @Param user_id query int true "Acting user ID"
// @Success 200 {array} dto.MaterialResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /materials [get]
func (c *MaterialController) ListMaterials(ctx *gin.Context) {
	userID, ok := userIDFromQuery(ctx)
	if !ok {
		return
	}

	materials, err := c.materialService.ListByUser(userID)
	if err != nil {
		log.Error().Err(err).Uint("userID", userID).Msg("ListMaterials: service error")
		respondError(ctx, err, "Failed to list materials")
		return
	}

	resp := make([]dto.MaterialResponse, 0, len(materials))
	copier.Copy(&resp, &materials)
	ctx.JSON(http.StatusOK, resp)
}

// GetMaterial godoc
// @Summary Get one material
// @Tags Materials
// @Produce json
// @Param material_id path int true "Material ID"
// @Param user_id query int true "Acting user ID"
// @Success 200 {object} dto.MaterialResponse
// @Failure 404 {object} dto.ErrorResponse
// @Router /materials/{material_id} [get]
func (c *MaterialController) GetMaterial(ctx *gin.Context) {
	userID, ok := userIDFromQuery(ctx)
	if !ok {
		return
	}
	materialID, ok := pathID(ctx, "material_id")
	if !ok {
		return
	}

	material, err := c.materialService.GetByID(materialID, userID)
	if err != nil {
		respondError(ctx, err, "Failed to get material")
		return
	}

	var resp dto.MaterialResponse
	copier.Copy(&resp, material)
	ctx.JSON(http.StatusOK, resp)
}

// ReprocessMaterial godoc
// @Summary Re-run extraction and embedding for a material
// @Description Re-reads the stored file and rebuilds the material's vector collection. Useful after a failed ingestion or when embedding was previously unconfigured.
// @Tags Materials
// @Produce json
// @Param material_id path int true "Material ID"
// @Param user_id query int true "Acting user ID"
// @Success 200 {object} dto.MaterialResponse
// @Failure 404 {object} dto.ErrorResponse
// @Failure 422 {object} dto.ErrorResponse "Extraction failed"
// @Router /materials/{material_id}/reprocess [post]
func (c *MaterialController) ReprocessMaterial(ctx *gin.Context) {
	userID, ok := userIDFromQuery(ctx)
	if !ok {
		return
	}
	materialID, ok := pathID(ctx, "material_id")
	if !ok {
		return
	}

	material, err := c.materialService.Reprocess(ctx.Request.Context(), materialID, userID)
	if err != nil {
		log.Error().Err(err).Uint("materialID", materialID).Msg("ReprocessMaterial: service error")
		respondError(ctx, err, "Failed to reprocess material")
		return
	}

	var resp dto.MaterialResponse
	copier.Copy(&resp, material)
	ctx.JSON(http.StatusOK, resp)
}

// DeleteMaterial godoc
// @Summary Delete a material
// @Description Removes the stored file, the vector collection and the material record.
// @Tags Materials
// @Produce json
// @Param material_id path int true "Material ID"
// @Param user_id query int true "Acting user ID"
// @Success 204 "Deleted"
// @Failure 404 {object} dto.ErrorResponse
// @Router /materials/{material_id} [delete]
func (c *MaterialController) DeleteMaterial(ctx *gin.Context) {
	userID, ok := userIDFromQuery(ctx)
	if !ok {
		return
	}
	materialID, ok := pathID(ctx, "material_id")
	if !ok {
		return
	}

	if err := c.materialService.Delete(ctx.Request.Context(), materialID, userID); err != nil {
		log.Error().Err(err).Uint("materialID", materialID).Msg("DeleteMaterial: service error")
		respondError(ctx, err, "Failed to delete material")
		return
	}
	ctx.Status(http.StatusNoContent)
}

// SearchMaterial godoc
// @Summary Semantic search within a material
// @Description Runs a nearest-neighbour query over the material's vector collection.
// @Tags Materials
// @Accept json
// @Produce json
// @Param material_id path int true "Material ID"
// @Param user_id query int true "Acting user ID"
// @Param search body dto.SearchMaterialRequest true "Search query"
// @Success 200 {array} dto.SearchResultResponse
// @Failure 400 {object} dto.ErrorResponse "Material has no vector collection"
// @Failure 404 {object} dto.ErrorResponse
// @Failure 503 {object} dto.ErrorResponse "Embedding service not configured"
// @Router /materials/{material_id}/search [post]
func (c *MaterialController) SearchMaterial(ctx *gin.Context) {
	userID, ok := userIDFromQuery(ctx)
	if !ok {
		return
	}
	materialID, ok := pathID(ctx, "material_id")
	if !ok {
		return
	}

	var req dto.SearchMaterialRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, dto.ErrorResponse{Message: "Invalid request body", Details: []string{err.Error()}})
		return
	}

	results, err := c.materialService.Search(ctx.Request.Context(), materialID, userID, req.Query, req.TopK)
	if err != nil {
		log.Error().Err(err).Uint("materialID", materialID).Msg("SearchMaterial: service error")
		respondError(ctx, err, "Failed to search material")
		return
	}

	resp := make([]dto.SearchResultResponse, 0, len(results))
	copier.Copy(&resp, &results)
	ctx.JSON(http.StatusOK, resp)
}
