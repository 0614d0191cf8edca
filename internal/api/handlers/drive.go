package handlers

import (
	"net/http"

	"github.com/google/uuid"

	"github.com/rohits-web03/edudrive/internal/api/middleware"
	"github.com/rohits-web03/edudrive/internal/apperr"
	"github.com/rohits-web03/edudrive/internal/drive"
	"github.com/rohits-web03/edudrive/internal/models"
	"github.com/rohits-web03/edudrive/internal/utils"
)

// DriveHandler exposes the drive service over HTTP. Every route acts on
// the authenticated user's own drive.
type DriveHandler struct {
	svc *drive.Service
}

func NewDriveHandler(svc *drive.Service) *DriveHandler {
	return &DriveHandler{svc: svc}
}

func (h *DriveHandler) currentUser(r *http.Request) (uuid.UUID, error) {
	userID, ok := middleware.UserID(r.Context())
	if !ok {
		return uuid.Nil, apperr.New(apperr.Unauthorized, "Unauthorized")
	}
	return userID, nil
}

func (h *DriveHandler) currentDrive(r *http.Request) (*models.Drive, error) {
	userID, err := h.currentUser(r)
	if err != nil {
		return nil, err
	}
	return h.svc.EnsureDrive(r.Context(), userID)
}

// GET /api/v1/drive
// GetDrive godoc
// @Summary Drive usage
// @Description Storage and bandwidth usage of the caller's drive. The drive is created on first access.
// @Tags Drive
// @Produce json
// @Success 200 {object} utils.Payload{data=drive.Usage}
// @Failure 401 {object} apperr.Error
// @Router /api/v1/drive [get]
func (h *DriveHandler) GetDrive(w http.ResponseWriter, r *http.Request) {
	d, err := h.currentDrive(r)
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	usage, err := h.svc.Usage(r.Context(), d.ID)
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Drive retrieved successfully",
		Data: map[string]any{
			"drive": d,
			"usage": usage,
		},
	})
}

type updateDriveRequest struct {
	IsPrivate    *bool              `json:"isPrivate"`
	AllowCopying *models.CopyPolicy `json:"allowCopying" validate:"omitempty,oneof=ALLOW REQUEST DENY"`
}

// PATCH /api/v1/drive
// UpdateDrive godoc
// @Summary Update drive settings
// @Tags Drive
// @Accept json
// @Produce json
// @Param body body updateDriveRequest true "Settings"
// @Success 200 {object} utils.Payload{data=models.Drive}
// @Failure 400 {object} apperr.Error
// @Router /api/v1/drive [patch]
func (h *DriveHandler) UpdateDrive(w http.ResponseWriter, r *http.Request) {
	d, err := h.currentDrive(r)
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	var req updateDriveRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	updated, err := h.svc.UpdateSettings(r.Context(), d.ID, req.IsPrivate, req.AllowCopying)
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Drive updated",
		Data:    updated,
	})
}

// GET /api/v1/drive/items
// ListItems godoc
// @Summary List a folder
// @Description Active folders and files directly inside folderId, or the drive root when omitted.
// @Tags Drive
// @Produce json
// @Param folderId query string false "Folder ID"
// @Param path query string false "Folder path, resolved when folderId is absent"
// @Success 200 {object} utils.Payload{data=drive.Listing}
// @Failure 404 {object} apperr.Error
// @Router /api/v1/drive/items [get]
func (h *DriveHandler) ListItems(w http.ResponseWriter, r *http.Request) {
	d, err := h.currentDrive(r)
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	folderID, err := utils.OptionalUUID(r.URL.Query().Get("folderId"), "folderId")
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	if p := r.URL.Query().Get("path"); folderID == nil && p != "" {
		folder, err := h.svc.Tree.ResolveFolderPath(r.Context(), d.ID, p)
		if err != nil {
			utils.ErrorResponse(w, r, err)
			return
		}
		folderID = &folder.ID
	}

	listing, err := h.svc.Tree.List(r.Context(), d.ID, folderID)
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Items retrieved successfully",
		Data:    listing,
	})
}

type duplicatesRequest struct {
	Files []drive.Candidate `json:"files" validate:"required,min=1,max=500,dive"`
}

// POST /api/v1/drive/duplicates
// CheckDuplicates godoc
// @Summary Classify files before upload
// @Description Reports for each candidate whether the drive already holds the same content (exact) or the same name (name).
// @Tags Files
// @Accept json
// @Produce json
// @Param body body duplicatesRequest true "Candidates"
// @Success 200 {object} utils.Payload{data=[]drive.Classification}
// @Failure 400 {object} apperr.Error
// @Router /api/v1/drive/duplicates [post]
func (h *DriveHandler) CheckDuplicates(w http.ResponseWriter, r *http.Request) {
	d, err := h.currentDrive(r)
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	var req duplicatesRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	out, err := h.svc.CheckDuplicates(r.Context(), d.ID, req.Files)
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Duplicates checked",
		Data:    out,
	})
}
