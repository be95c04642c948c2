// Package docs registers the OpenAPI document served at /swagger/*any.
// Regenerate with `swag init -g cmd/main.go` after changing handler annotations.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/health": {
            "get": {"tags": ["system"], "summary": "Health check", "produces": ["application/json"],
                "responses": {"200": {"description": "OK"}}}
        },
        "/metrics": {
            "get": {"tags": ["system"], "summary": "Prometheus metrics", "produces": ["text/plain"],
                "responses": {"200": {"description": "OK"}}}
        },
        "/auth/sign-up": {
            "post": {"tags": ["auth"], "summary": "Register an operator",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.authCredentials"}}],
                "responses": {"200": {"description": "id"}, "400": {"description": "Bad Request"}}}
        },
        "/auth/sign-in": {
            "post": {"tags": ["auth"], "summary": "Sign in and obtain a bearer token",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.authCredentials"}}],
                "responses": {"200": {"description": "token"}, "400": {"description": "Bad Request"}, "401": {"description": "Unauthorized"}}}
        },
        "/api/v1/acquisition/start": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["acquisition"], "summary": "Start an acquisition",
                "description": "Opens the device and collects samples for the requested duration. Only one run may be active.",
                "consumes": ["application/json"], "produces": ["application/json"],
                "parameters": [{"in": "body", "name": "body", "schema": {"$ref": "#/definitions/handlers.StartRequest"}}],
                "responses": {"202": {"description": "status, session"}, "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"}, "409": {"description": "Conflict"}, "503": {"description": "Service Unavailable"}}}
        },
        "/api/v1/acquisition/cancel": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["acquisition"], "summary": "Cancel the active acquisition",
                "produces": ["application/json"],
                "responses": {"200": {"description": "status, state"}, "401": {"description": "Unauthorized"}}}
        },
        "/api/v1/acquisition/status": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["acquisition"], "summary": "Acquisition status",
                "produces": ["application/json"],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/service.Status"}}, "401": {"description": "Unauthorized"}}}
        },
        "/api/v1/sessions": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["sessions"], "summary": "List sessions",
                "produces": ["application/json"],
                "parameters": [{"in": "query", "name": "limit", "type": "integer", "default": 100}],
                "responses": {"200": {"description": "count, sessions"}, "400": {"description": "Bad Request"}}}
        },
        "/api/v1/sessions/{id}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["sessions"], "summary": "Get a session",
                "produces": ["application/json"],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/models.Session"}}, "404": {"description": "Not Found"}}}
        },
        "/api/v1/sessions/{id}/samples": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["sessions"], "summary": "Samples of a session",
                "produces": ["application/json"],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "count, samples"}, "404": {"description": "Not Found"}}}
        },
        "/api/v1/sessions/{id}/export": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["sessions"], "summary": "Export a session as CSV",
                "produces": ["text/csv"],
                "parameters": [
                    {"in": "path", "name": "id", "type": "string", "required": true},
                    {"in": "query", "name": "layout", "type": "string", "enum": ["device", "legacy"]}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}}
        },
        "/api/v1/sessions/{id}/classify": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["sessions"], "summary": "Classify a session",
                "produces": ["application/json"],
                "parameters": [{"in": "path", "name": "id", "type": "string", "required": true}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/classify.Result"}},
                    "404": {"description": "Not Found"}, "409": {"description": "Conflict"},
                    "422": {"description": "Unprocessable Entity"}, "503": {"description": "Service Unavailable"}}}
        },
        "/api/v1/logs": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["logs"], "summary": "List run events",
                "produces": ["application/json"],
                "parameters": [
                    {"in": "query", "name": "from", "type": "string"},
                    {"in": "query", "name": "to", "type": "string"},
                    {"in": "query", "name": "type", "type": "string", "enum": ["START", "COMPLETED", "CANCELLED", "FAILED", "CLASSIFIED", "EXPORTED"]},
                    {"in": "query", "name": "session_id", "type": "string"}
                ],
                "responses": {"200": {"description": "count, events"}, "400": {"description": "Bad Request"}}}
        }
    },
    "definitions": {
        "handlers.authCredentials": {
            "type": "object", "required": ["username", "password"],
            "properties": {"username": {"type": "string"}, "password": {"type": "string"}}
        },
        "handlers.StartRequest": {
            "type": "object",
            "properties": {
                "port": {"type": "string", "example": "/dev/ttyUSB0"},
                "baud_rate": {"type": "integer", "example": 115200},
                "duration_sec": {"type": "integer", "example": 120},
                "content": {"type": "string", "example": "Filme de Ação"}
            }
        },
        "service.Status": {
            "type": "object",
            "properties": {
                "state": {"type": "string"}, "session_id": {"type": "string"}, "port": {"type": "string"},
                "content": {"type": "string"}, "progress": {"type": "integer"}, "samples": {"type": "integer"},
                "elapsed_sec": {"type": "number"}, "duration_sec": {"type": "number"},
                "started_at": {"type": "string"}, "label": {"type": "string"}, "error": {"type": "string"}
            }
        },
        "models.Session": {
            "type": "object",
            "properties": {
                "id": {"type": "string"}, "port": {"type": "string"}, "baud_rate": {"type": "integer"},
                "duration_sec": {"type": "integer"}, "content": {"type": "string"}, "state": {"type": "string"},
                "started_at": {"type": "string"}, "finished_at": {"type": "string"},
                "sample_count": {"type": "integer"}, "label": {"type": "string"}, "error": {"type": "string"}
            }
        },
        "classify.Result": {
            "type": "object",
            "properties": {
                "label": {"type": "string"}, "count": {"type": "integer"}, "total": {"type": "integer"},
                "predictions": {"type": "array", "items": {"type": "string"}}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "mindtv acquisition API",
	Description:      "Collects physiological samples from the sensor board, stores sessions and classifies the content being watched.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
