// Package docs registers the OpenAPI description served under /docs/.
// Regenerate with `swag init -g cmd/server/main.go`.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {},
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/api/v1/drive": {
            "get": {"tags": ["Drive"], "summary": "Drive usage", "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}}},
            "patch": {"tags": ["Drive"], "summary": "Update drive settings", "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}}}
        },
        "/api/v1/drive/items": {
            "get": {"tags": ["Drive"], "summary": "List a folder", "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}}
        },
        "/api/v1/drive/duplicates": {
            "post": {"tags": ["Files"], "summary": "Classify files before upload", "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/drive/folders": {
            "post": {"tags": ["Folders"], "summary": "Create a folder", "responses": {"201": {"description": "Created"}, "409": {"description": "Conflict"}}}
        },
        "/api/v1/drive/folders/{id}": {
            "patch": {"tags": ["Folders"], "summary": "Rename or move a folder", "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Folders"], "summary": "Move a folder and its content to trash", "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/drive/folders/{id}/restore": {
            "post": {"tags": ["Folders"], "summary": "Restore a deleted folder", "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/drive/files": {
            "post": {"tags": ["Files"], "summary": "Upload a file", "responses": {"201": {"description": "Created"}, "403": {"description": "Forbidden"}, "409": {"description": "Conflict"}}}
        },
        "/api/v1/drive/files/presign": {
            "post": {"tags": ["Files"], "summary": "Generate a presigned upload URL", "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/drive/files/complete": {
            "post": {"tags": ["Files"], "summary": "Commit a presigned upload", "responses": {"201": {"description": "Created"}}}
        },
        "/api/v1/drive/files/{id}": {
            "patch": {"tags": ["Files"], "summary": "Rename or move a file", "responses": {"200": {"description": "OK"}}},
            "delete": {"tags": ["Files"], "summary": "Move a file to trash", "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/drive/files/{id}/restore": {
            "post": {"tags": ["Files"], "summary": "Restore a deleted file", "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/drive/files/{id}/download": {
            "get": {"tags": ["Files"], "summary": "Generate a presigned download URL", "responses": {"200": {"description": "OK"}, "429": {"description": "Too Many Requests"}}}
        },
        "/api/v1/drive/files/{id}/copy-requests": {
            "post": {"tags": ["Copy"], "summary": "Copy another user's file into your drive", "responses": {"201": {"description": "Created"}, "202": {"description": "Accepted"}}}
        },
        "/api/v1/drive/copy-requests": {
            "get": {"tags": ["Copy"], "summary": "Pending copy requests for your files", "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/drive/copy-requests/{id}/approve": {
            "post": {"tags": ["Copy"], "summary": "Approve a copy request", "responses": {"200": {"description": "OK"}}}
        },
        "/api/v1/drive/copy-requests/{id}/deny": {
            "post": {"tags": ["Copy"], "summary": "Deny a copy request", "responses": {"200": {"description": "OK"}}}
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "EduDrive API",
	Description:      "Per-user drives with storage quotas, daily bandwidth and copy requests.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
