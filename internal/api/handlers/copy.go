package handlers

import (
	"net/http"

	"github.com/rohits-web03/edudrive/internal/models"
	"github.com/rohits-web03/edudrive/internal/utils"
)

type copyRequestBody struct {
	TargetFolderID string `json:"targetFolderId" validate:"omitempty,uuid"`
}

// POST /api/v1/drive/files/{id}/copy-requests
// RequestCopy godoc
// @Summary Copy another user's file into your drive
// @Description Depending on the owner's copy policy the file is copied at once (201), a request is queued for approval (202), or the call is refused.
// @Tags Copy
// @Accept json
// @Produce json
// @Param id path string true "Source file ID"
// @Param body body copyRequestBody false "Destination"
// @Success 201 {object} utils.Payload{data=drive.CopyOutcome}
// @Success 202 {object} utils.Payload{data=drive.CopyOutcome}
// @Failure 403 {object} apperr.Error
// @Failure 404 {object} apperr.Error
// @Router /api/v1/drive/files/{id}/copy-requests [post]
func (h *DriveHandler) RequestCopy(w http.ResponseWriter, r *http.Request) {
	userID, err := h.currentUser(r)
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	fileID, err := utils.PathUUID(r, "id")
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	var body copyRequestBody
	if err := utils.DecodeJSON(r, &body); err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	folderID, _ := utils.OptionalUUID(body.TargetFolderID, "targetFolderId")

	out, err := h.svc.RequestCopy(r.Context(), userID, fileID, folderID)
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	if out.Request != nil {
		utils.JSONResponse(w, http.StatusAccepted, utils.Payload{
			Success: true,
			Message: "Copy request sent to the owner",
			Data:    out,
		})
		return
	}
	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: "File copied",
		Data:    out,
	})
}

// GET /api/v1/drive/copy-requests
// ListCopyRequests godoc
// @Summary Pending copy requests for your files
// @Tags Copy
// @Produce json
// @Success 200 {object} utils.Payload{data=[]models.CopyRequest}
// @Router /api/v1/drive/copy-requests [get]
func (h *DriveHandler) ListCopyRequests(w http.ResponseWriter, r *http.Request) {
	d, err := h.currentDrive(r)
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	reqs, err := h.svc.PendingCopyRequests(r.Context(), d.ID)
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Copy requests retrieved",
		Data:    reqs,
	})
}

// POST /api/v1/drive/copy-requests/{id}/approve
// ApproveCopy godoc
// @Summary Approve a copy request
// @Description Copies the file into the requester's drive, charged against their quota.
// @Tags Copy
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} utils.Payload{data=models.CopyRequest}
// @Failure 400 {object} apperr.Error "Already decided"
// @Failure 403 {object} apperr.Error
// @Router /api/v1/drive/copy-requests/{id}/approve [post]
func (h *DriveHandler) ApproveCopy(w http.ResponseWriter, r *http.Request) {
	h.decideCopy(w, r, models.CopyApproved)
}

// POST /api/v1/drive/copy-requests/{id}/deny
// DenyCopy godoc
// @Summary Deny a copy request
// @Tags Copy
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} utils.Payload{data=models.CopyRequest}
// @Failure 400 {object} apperr.Error "Already decided"
// @Router /api/v1/drive/copy-requests/{id}/deny [post]
func (h *DriveHandler) DenyCopy(w http.ResponseWriter, r *http.Request) {
	h.decideCopy(w, r, models.CopyDenied)
}

func (h *DriveHandler) decideCopy(w http.ResponseWriter, r *http.Request, status models.CopyStatus) {
	userID, err := h.currentUser(r)
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	id, err := utils.PathUUID(r, "id")
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}

	decide, msg := h.svc.DenyCopy, "Copy request denied"
	if status == models.CopyApproved {
		decide, msg = h.svc.ApproveCopy, "Copy request approved"
	}
	req, err := decide(r.Context(), userID, id)
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: msg,
		Data:    req,
	})
}
