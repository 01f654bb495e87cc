package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/cppla/emoticket/middleware"
	"github.com/cppla/emoticket/services"
	"github.com/cppla/emoticket/utils"
)

const maxImportBatch = 1000

// ProgressController exposes streaks, annotation statistics and text import.
type ProgressController struct {
	catalog *services.CatalogService
}

// NewProgressController creates a new controller instance.
func NewProgressController(catalog *services.CatalogService) *ProgressController {
	return &ProgressController{catalog: catalog}
}

// StreakStatus returns the caller's active streak.
func (p *ProgressController) StreakStatus(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	streak, err := p.catalog.Streak(ctx.Request.Context(), userID)
	if err != nil {
		utils.Sugar.Errorw("load streak failed", "user", userID, "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50031, "failed to load streak")
		return
	}

	utils.Success(ctx, streak)
}

// GetStats returns catalog totals and the caller's annotation progress.
func (p *ProgressController) GetStats(ctx *gin.Context) {
	userID, ok := getUserID(ctx)
	if !ok {
		utils.Error(ctx, http.StatusUnauthorized, 40110, "unauthorized")
		return
	}

	stats, err := p.catalog.Stats(ctx.Request.Context(), userID)
	if err != nil {
		utils.Sugar.Errorw("load stats failed", "user", userID, "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50032, "failed to load stats")
		return
	}

	utils.Success(ctx, stats)
}

// ImportTexts adds a batch of texts to the catalog. Admin only.
func (p *ProgressController) ImportTexts(ctx *gin.Context) {
	if !isAdmin(ctx) {
		utils.Error(ctx, http.StatusForbidden, 40301, "forbidden")
		return
	}

	var req []services.TextInput
	if err := ctx.ShouldBindJSON(&req); err != nil {
		utils.Error(ctx, http.StatusBadRequest, 40020, "invalid request payload")
		return
	}
	if len(req) > maxImportBatch {
		utils.Error(ctx, http.StatusBadRequest, 40021, "too many texts in one batch")
		return
	}

	created, err := p.catalog.Import(ctx.Request.Context(), req)
	if errors.Is(err, services.ErrEmptyImport) {
		utils.Error(ctx, http.StatusBadRequest, 40022, err.Error())
		return
	}
	if err != nil {
		utils.Sugar.Errorw("import texts failed", "count", len(req), "err", err)
		utils.Error(ctx, http.StatusInternalServerError, 50033, "failed to import texts")
		return
	}

	utils.Sugar.Infow("texts imported", "created", created, "by", ctx.GetString(middleware.ContextUsernameKey))
	utils.Success(ctx, gin.H{"created": created})
}
