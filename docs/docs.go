// Package docs holds the OpenAPI document served at /swagger/index.html.
// Regenerate with `swag init -g cmd/main.go` after changing handler annotations.
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
        "/health": {
            "get": {
                "produces": ["application/json"],
                "tags": ["system"],
                "summary": "Health check",
                "responses": {"200": {"description": "OK"}}
            }
        },
        "/auth/sign-up": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Sign up",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.authCredentials"}}],
                "responses": {"200": {"description": "id"}, "400": {"description": "Bad Request"}}
            }
        },
        "/auth/sign-in": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Sign in",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.authCredentials"}}],
                "responses": {"200": {"description": "token"}, "401": {"description": "Unauthorized"}}
            }
        },
        "/devices/heartbeat": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["devices"],
                "summary": "Device heartbeat",
                "parameters": [
                    {"type": "string", "description": "shared device key", "name": "X-Device-Key", "in": "header"},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.HeartbeatRequest"}}
                ],
                "responses": {"200": {"description": "OK"}, "401": {"description": "Unauthorized"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/v1/devices": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["devices"],
                "summary": "Register device",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.RegisterDeviceRequest"}}],
                "responses": {"200": {"description": "existing device"}, "201": {"description": "created"}, "400": {"description": "Bad Request"}}
            }
        },
        "/api/v1/installations/start": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["installations"],
                "summary": "Start installation",
                "parameters": [{"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.StartInstallationRequest"}}],
                "responses": {"200": {"description": "session_id, status, message"}, "400": {"description": "Bad Request"}}
            }
        },
        "/api/v1/installations/{id}/validate": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["installations"],
                "summary": "Run validation pipeline",
                "parameters": [{"type": "integer", "description": "session id", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}, "409": {"description": "busy, terminal or canceled"}}
            }
        },
        "/api/v1/installations/{id}/cancel": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["installations"],
                "summary": "Cancel validation run",
                "parameters": [{"type": "integer", "description": "session id", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "session_id, canceled"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/v1/installations/{id}/status": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["installations"],
                "summary": "Installation status",
                "parameters": [{"type": "integer", "description": "session id", "name": "id", "in": "path", "required": true}],
                "responses": {"200": {"description": "OK"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/v1/installations/{id}/complete": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["installations"],
                "summary": "Complete installation",
                "parameters": [
                    {"type": "integer", "description": "session id", "name": "id", "in": "path", "required": true},
                    {"in": "body", "name": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CompleteInstallationRequest"}}
                ],
                "responses": {"200": {"description": "session_id, status, message"}, "404": {"description": "Not Found"}, "409": {"description": "Conflict"}}
            }
        },
        "/api/v1/readings/extract": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["multipart/form-data"],
                "produces": ["application/json"],
                "tags": ["readings"],
                "summary": "Extract reading",
                "parameters": [
                    {"type": "file", "description": "meter photo", "name": "image", "in": "formData", "required": true},
                    {"type": "string", "description": "calibration hint", "name": "hint", "in": "formData"},
                    {"type": "string", "description": "custom prompt for remote models", "name": "prompt", "in": "formData"},
                    {"type": "string", "description": "meter whose prompt and expected reading fill missing values", "name": "meter_serial", "in": "formData"}
                ],
                "responses": {"200": {"description": "OK"}, "400": {"description": "Bad Request"}, "404": {"description": "Not Found"}}
            }
        },
        "/api/v1/logs": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["logs"],
                "summary": "List logs",
                "parameters": [
                    {"type": "string", "name": "from", "in": "query"},
                    {"type": "string", "name": "to", "in": "query"},
                    {"enum": ["SESSION_STARTED", "PIPELINE_RUN", "PIPELINE_CANCELED", "SESSION_COMPLETED", "SESSION_FAILED", "DEVICE_REGISTERED", "DEVICE_OFFLINE"], "type": "string", "name": "type", "in": "query"},
                    {"type": "integer", "name": "session_id", "in": "query"}
                ],
                "responses": {"200": {"description": "count, events"}, "400": {"description": "Bad Request"}}
            }
        },
        "/ws/installations/{id}": {
            "get": {
                "tags": ["installations"],
                "summary": "Installation status stream",
                "parameters": [
                    {"type": "integer", "description": "session id", "name": "id", "in": "path", "required": true},
                    {"type": "string", "description": "bearer token", "name": "token", "in": "query"},
                    {"type": "string", "name": "interval", "in": "query"},
                    {"type": "integer", "name": "interval_ms", "in": "query"}
                ],
                "responses": {}
            }
        }
    },
    "definitions": {
        "handlers.authCredentials": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {"username": {"type": "string"}, "password": {"type": "string"}}
        },
        "handlers.RegisterDeviceRequest": {
            "type": "object",
            "required": ["serial_number"],
            "properties": {
                "serial_number": {"type": "string", "example": "AA-BB-CC-DD-EE-FF"},
                "organization_id": {"type": "integer", "example": 1},
                "firmware_version": {"type": "string", "example": "1.4.2"}
            }
        },
        "handlers.HeartbeatRequest": {
            "type": "object",
            "required": ["serial_number"],
            "properties": {
                "serial_number": {"type": "string"},
                "ip_address": {"type": "string"},
                "status_data": {"type": "object", "additionalProperties": true}
            }
        },
        "handlers.StartInstallationRequest": {
            "type": "object",
            "required": ["camera_serial", "meter_serial"],
            "properties": {
                "camera_serial": {"type": "string"},
                "firmware_version": {"type": "string"},
                "meter_serial": {"type": "string"},
                "meter_type": {"type": "string", "example": "gas"},
                "meter_unit": {"type": "string", "example": "m3"},
                "meter_location": {"type": "string"},
                "expected_reading": {"type": "number"},
                "organization_id": {"type": "integer"}
            }
        },
        "handlers.CompleteInstallationRequest": {
            "type": "object",
            "properties": {
                "installer_confirmed": {"type": "boolean"},
                "expected_reading": {"type": "number"},
                "serial_number": {"type": "string"},
                "meter_type": {"type": "string"}
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
	Title:            "Meter Reading API",
	Description:      "Camera installation validation and meter reading consensus.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
