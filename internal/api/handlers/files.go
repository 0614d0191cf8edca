package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/rohits-web03/edudrive/internal/apperr"
	"github.com/rohits-web03/edudrive/internal/drive"
	"github.com/rohits-web03/edudrive/internal/utils"
)

const multipartMemory = 32 << 20

// POST /api/v1/drive/files
// UploadFile godoc
// @Summary Upload a file
// @Description Stores the file in the caller's drive. The quota is charged atomically with the file record.
// @Tags Files
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File to upload"
// @Param folderId formData string false "Destination folder ID"
// @Param folderPath formData string false "Destination folder path, used when folderId is absent"
// @Param contentHash formData string false "Expected SHA-256 of the content"
// @Param duplicatePolicy formData string false "reject | skip | rename | allow"
// @Param isPublic formData bool false "Visible to other users"
// @Success 201 {object} utils.Payload{data=drive.UploadResult}
// @Success 200 {object} utils.Payload{data=drive.UploadResult} "Skipped, identical file exists"
// @Failure 400 {object} apperr.Error
// @Failure 403 {object} apperr.Error "STORAGE_EXCEEDED"
// @Failure 409 {object} apperr.Error "DUPLICATE_FOUND"
// @Router /api/v1/drive/files [post]
func (h *DriveHandler) UploadFile(w http.ResponseWriter, r *http.Request) {
	d, err := h.currentDrive(r)
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.svc.MaxFileSize()+multipartMemory)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			utils.ErrorResponse(w, r, apperr.New(apperr.FileTooLarge, "File exceeds the maximum upload size"))
			return
		}
		utils.ErrorResponse(w, r, apperr.New(apperr.InvalidInput, "Invalid file upload form"))
		return
	}
	defer r.MultipartForm.RemoveAll()

	src, header, err := r.FormFile("file")
	if err != nil {
		utils.ErrorResponse(w, r, apperr.New(apperr.InvalidInput, "No file provided").
			WithDetails(map[string]any{"field": "file"}))
		return
	}
	defer src.Close()

	folderID, err := utils.OptionalUUID(r.FormValue("folderId"), "folderId")
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	if p := r.FormValue("folderPath"); folderID == nil && p != "" {
		folder, err := h.svc.Tree.ResolveFolderPath(r.Context(), d.ID, p)
		if err != nil {
			utils.ErrorResponse(w, r, err)
			return
		}
		folderID = &folder.ID
	}
	policy, err := drive.ParseDuplicatePolicy(r.FormValue("duplicatePolicy"))
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	isPublic, _ := strconv.ParseBool(r.FormValue("isPublic"))

	res, err := h.svc.Upload(r.Context(), drive.UploadInput{
		DriveID:     d.ID,
		FolderID:    folderID,
		Name:        header.Filename,
		MimeType:    header.Header.Get("Content-Type"),
		Size:        header.Size,
		ContentHash: r.FormValue("contentHash"),
		Content:     src,
		IsPublic:    isPublic,
		Policy:      policy,
	})
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	writeUploadResult(w, res)
}

type presignRequest struct {
	Name            string `json:"name" validate:"required"`
	Size            int64  `json:"size" validate:"gte=0"`
	MimeType        string `json:"mimeType"`
	ContentHash     string `json:"contentHash" validate:"required"`
	FolderID        string `json:"folderId" validate:"omitempty,uuid"`
	DuplicatePolicy string `json:"duplicatePolicy"`
}

// POST /api/v1/drive/files/presign
// PresignUpload godoc
// @Summary Generate a presigned upload URL
// @Description Validates name, size, type, duplicates and free space, then returns a URL to PUT the content to. Nothing is reserved until /complete.
// @Tags Files
// @Accept json
// @Produce json
// @Param body body presignRequest true "File metadata"
// @Success 200 {object} utils.Payload{data=drive.PresignResult}
// @Failure 400 {object} apperr.Error
// @Failure 403 {object} apperr.Error
// @Failure 409 {object} apperr.Error
// @Router /api/v1/drive/files/presign [post]
func (h *DriveHandler) PresignUpload(w http.ResponseWriter, r *http.Request) {
	d, err := h.currentDrive(r)
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	var req presignRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	policy, err := drive.ParseDuplicatePolicy(req.DuplicatePolicy)
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	folderID, _ := utils.OptionalUUID(req.FolderID, "folderId")

	res, err := h.svc.PresignUpload(r.Context(), drive.PresignInput{
		DriveID:     d.ID,
		FolderID:    folderID,
		Name:        req.Name,
		MimeType:    req.MimeType,
		Size:        req.Size,
		ContentHash: req.ContentHash,
		Policy:      policy,
	})
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Presigned URL generated",
		Data:    res,
	})
}

type completeRequest struct {
	presignRequest
	StoredName string `json:"storedName" validate:"required"`
	IsPublic   bool   `json:"isPublic"`
}

// POST /api/v1/drive/files/complete
// CompleteUpload godoc
// @Summary Commit a presigned upload
// @Description Verifies the uploaded object and records the file, charging the drive's quota.
// @Tags Files
// @Accept json
// @Produce json
// @Param body body completeRequest true "Upload to commit"
// @Success 201 {object} utils.Payload{data=drive.UploadResult}
// @Failure 400 {object} apperr.Error
// @Failure 403 {object} apperr.Error
// @Failure 404 {object} apperr.Error "Object was not uploaded"
// @Router /api/v1/drive/files/complete [post]
func (h *DriveHandler) CompleteUpload(w http.ResponseWriter, r *http.Request) {
	d, err := h.currentDrive(r)
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	var req completeRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	policy, err := drive.ParseDuplicatePolicy(req.DuplicatePolicy)
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	folderID, _ := utils.OptionalUUID(req.FolderID, "folderId")

	res, err := h.svc.CompleteUpload(r.Context(), drive.UploadInput{
		DriveID:     d.ID,
		FolderID:    folderID,
		Name:        req.Name,
		MimeType:    req.MimeType,
		Size:        req.Size,
		ContentHash: req.ContentHash,
		StoredName:  req.StoredName,
		IsPublic:    req.IsPublic,
		Policy:      policy,
	})
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	writeUploadResult(w, res)
}

// GET /api/v1/drive/files/{id}/download
// DownloadFile godoc
// @Summary Generate a presigned download URL
// @Description Charges the owning drive's daily bandwidth. Owners can download any of their files; others only public files of public drives.
// @Tags Files
// @Produce json
// @Param id path string true "File ID"
// @Success 200 {object} utils.Payload{data=drive.DownloadResult}
// @Failure 403 {object} apperr.Error
// @Failure 404 {object} apperr.Error
// @Failure 429 {object} apperr.Error "BANDWIDTH_EXCEEDED"
// @Router /api/v1/drive/files/{id}/download [get]
func (h *DriveHandler) DownloadFile(w http.ResponseWriter, r *http.Request) {
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
	res, err := h.svc.Download(r.Context(), userID, id)
	if err != nil {
		utils.ErrorResponse(w, r, err)
		return
	}
	utils.JSONResponse(w, http.StatusOK, utils.Payload{
		Success: true,
		Message: "Download URL generated",
		Data:    res,
	})
}

// PATCH /api/v1/drive/files/{id}
// UpdateFile godoc
// @Summary Rename or move a file
// @Tags Files
// @Accept json
// @Produce json
// @Param id path string true "File ID"
// @Param body body updateNodeRequest true "Changes"
// @Success 200 {object} utils.Payload
// @Failure 400 {object} apperr.Error
// @Failure 409 {object} apperr.Error
// @Router /api/v1/drive/files/{id} [patch]
func (h *DriveHandler) UpdateFile(w http.ResponseWriter, r *http.Request) {
	h.updateNode(w, r, drive.NodeFile)
}

// DELETE /api/v1/drive/files/{id}
// DeleteFile godoc
// @Summary Move a file to trash
// @Tags Files
// @Param id path string true "File ID"
// @Success 200 {object} utils.Payload
// @Failure 404 {object} apperr.Error
// @Router /api/v1/drive/files/{id} [delete]
func (h *DriveHandler) DeleteFile(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, "File deleted", h.svc.DeleteFile)
}

// POST /api/v1/drive/files/{id}/restore
// RestoreFile godoc
// @Summary Restore a deleted file
// @Tags Files
// @Param id path string true "File ID"
// @Success 200 {object} utils.Payload
// @Failure 409 {object} apperr.Error
// @Router /api/v1/drive/files/{id}/restore [post]
func (h *DriveHandler) RestoreFile(w http.ResponseWriter, r *http.Request) {
	h.lifecycle(w, r, "File restored", h.svc.RestoreFile)
}

func writeUploadResult(w http.ResponseWriter, res *drive.UploadResult) {
	status, msg := http.StatusCreated, "File uploaded successfully"
	if res.Skipped {
		status, msg = http.StatusOK, "Identical file already exists"
	}
	utils.JSONResponse(w, status, utils.Payload{
		Success: true,
		Message: msg,
		Data:    res,
	})
}
