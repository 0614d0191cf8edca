package handlers

import (
	"context"
	"net/http"

	"github.com/google/uuid"

	"github.com/rohits-web03/edudrive/internal/apperr"
	"github.com/rohits-web03/edudrive/internal/drive"
	"github.com/rohits-web03/edudrive/internal/utils"
)

type createFolderRequest struct {
	Name      string `json:"name" validate:"required"`
	ParentID  string `json:"parentId" validate:"omitempty,uuid"`
	SubjectID string `json:"subjectId" validate:"omitempty,uuid"`
	IsPublic  bool   `json:"isPublic"`
}

// POST /api/v1/drive/folders
// CreateFolder godoc
// @Summary Create a folder
// @Tags Folders
// @Accept json
// @Produce json
// @Param body body createFolderRequest true "Folder"
// @Success 201 {object} utils.Payload{data=models.Folder}
// @Failure 400 {object} apperr.Error
// @Failure 409 {object} apperr.Error "A sibling with that name exists"
// @Router /api/v1/drive/folders [post]
func (h *DriveHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	d, err := h.currentDrive(r)
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	var req createFolderRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	parentID, _ := utils.OptionalUUID(req.ParentID, "parentId")

	var opts []drive.FolderOption
	if subject, _ := utils.OptionalUUID(req.SubjectID, "subjectId"); subject != nil {
		opts = append(opts, drive.WithSubject(*subject))
	}
	if req.IsPublic {
		opts = append(opts, drive.PublicFolder())
	}

	folder, err := h.svc.Tree.CreateFolder(r.Context(), d.ID, parentID, req.Name, opts...)
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusCreated, utils.Payload{
		Success: true,
		Message: "Folder created",
		Data:    folder,
	})
}

// updateNodeRequest renames and/or moves a node. ParentID (or FolderID for
// files) names the new parent; ToRoot moves the node to the drive root.
type updateNodeRequest struct {
	Name     *string `json:"name"`
	ParentID string  `json:"parentId" validate:"omitempty,uuid"`
	FolderID string  `json:"folderId" validate:"omitempty,uuid"`
	ToRoot   bool    `json:"toRoot"`
}

func (req updateNodeRequest) destination() (*uuid.UUID, bool, error) {
	target := req.ParentID
	if target == "" {
		target = req.FolderID
	}
	if target != "" && req.ToRoot {
		return nil, false, apperr.New(apperr.InvalidInput, "Specify either a destination folder or toRoot")
	}
	if req.ToRoot {
		return nil, true, nil
	}
	id, err := utils.OptionalUUID(target, "parentId")
	return id, id != nil, err
}

// PATCH /api/v1/drive/folders/{id}
// UpdateFolder godoc
// @Summary Rename or move a folder
// @Tags Folders
// @Accept json
// @Produce json
// @Param id path string true "Folder ID"
// @Param body body updateNodeRequest true "Changes"
// @Success 200 {object} utils.Payload
// @Failure 400 {object} apperr.Error
// @Failure 409 {object} apperr.Error
// @Router /api/v1/drive/folders/{id} [patch]
func (h *DriveHandler) UpdateFolder(w http.ResponseWriter, r *http.Request) {
	h.updateNode(w, r, drive.NodeFolder)
}

// DELETE /api/v1/drive/folders/{id}
// DeleteFolder godoc
// @Summary Move a folder and its content to trash
// @Tags Folders
// @Param id path string true "Folder ID"
// @Success 200 {object} utils.Payload
// @Failure 404 {object} apperr.Error
// @Router /api/v1/drive/folders/{id} [delete]
func (h *DriveHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, "Folder deleted", h.svc.DeleteFolder)
}

// POST /api/v1/drive/folders/{id}/restore
// RestoreFolder godoc
// @Summary Restore a deleted folder
// @Tags Folders
// @Param id path string true "Folder ID"
// @Success 200 {object} utils.Payload
// @Failure 409 {object} apperr.Error
// @Router /api/v1/drive/folders/{id}/restore [post]
func (h *DriveHandler) RestoreFolder(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, "Folder restored", h.svc.RestoreFolder)
}

func (h *DriveHandler) updateNode(w http.ResponseWriter, r *http.Request, typ drive.NodeType) {
	d, err := h.currentDrive(r)
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	id, err := utils.PathUUID(r, "id")
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	var req updateNodeRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	dest, move, err := req.destination()
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	if req.Name == nil && !move {
		utils.ErrorResponse(w, r, apperr.New(apperr.InvalidInput, "Nothing to update"))
		return
	}

	ref := drive.NodeRef{Type: typ, ID: id}
	if req.Name != nil {
		if err := h.svc.Tree.Rename(r.Context(), d.ID, ref, *req.Name); err != nil {
			utils.ErrorResponse(w, r, err)
			return
		}
	}
	if move {
		if err := h.svc.Tree.Move(r.Context(), d.ID, ref, dest); err != nil {
			utils.ErrorResponse(w, r, err)
			return
		}
	}

	path, err := h.svc.Tree.MaterializePath(r.Context(), ref)
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Updated",
		Data:    map[string]any{"id": id, "path": path},
	})
}

// lifecycle runs a delete or restore operation on the {id} node.
func (h *DriveHandler) lifecycle(w http.ResponseWriter, r *http.Request, msg string, op func(ctx context.Context, driveID, id uuid.UUID) error) {
	d, err := h.currentDrive(r)
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	id, err := utils.PathUUID(r, "id")
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	if err := op(r.Context(), d.ID, id); err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: msg,
		Data:    map[string]any{"id": id},
	})
}
