// Package docs registers the OpenAPI description served under /swagger.
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
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Login",
                "parameters": [
                    {"description": "Login credentials", "name": "body", "in": "body", "required": true,
                     "schema": {"$ref": "#/definitions/handler.loginRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handler.loginResponse"}},
                    "400": {"description": "Bad Request", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "401": {"description": "Unauthorized", "schema": {"$ref": "#/definitions/domain.AuthResult"}},
                    "429": {"description": "Too Many Requests", "schema": {"type": "object", "additionalProperties": {"type": "string"}}},
                    "500": {"description": "Internal Server Error", "schema": {"$ref": "#/definitions/domain.AuthResult"}}
                }
            }
        },
        "/auth/register": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Register a new user",
                "parameters": [
                    {"description": "User registration details", "name": "body", "in": "body", "required": true,
                     "schema": {"$ref": "#/definitions/handler.registerRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.AuthResult"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/domain.AuthResult"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/domain.AuthResult"}},
                    "503": {"description": "Service Unavailable", "schema": {"$ref": "#/definitions/domain.AuthResult"}}
                }
            }
        },
        "/auth/status": {
            "get": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Backend status",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Status"}}
                }
            }
        },
        "/auth/probe": {
            "post": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Re-probe backends",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Status"}},
                    "401": {"description": "Unauthorized"},
                    "403": {"description": "Forbidden"}
                }
            }
        },
        "/auth/me": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Current session",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Unauthorized"}
                }
            }
        },
        "/admin/status": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Admin status",
                "responses": {
                    "200": {"description": "OK"},
                    "401": {"description": "Unauthorized"},
                    "403": {"description": "Forbidden"}
                }
            }
        },
        "/admin/events": {
            "get": {
                "security": [{"BearerAuth": []}],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Recent authentication events",
                "parameters": [
                    {"type": "string", "description": "Filter by username", "name": "username", "in": "query"},
                    {"type": "integer", "default": 50, "description": "Maximum events", "name": "limit", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/domain.AuthEvent"}}},
                    "400": {"description": "Bad Request"},
                    "503": {"description": "Service Unavailable"}
                }
            }
        },
        "/admin/users": {
            "post": {
                "security": [{"BearerAuth": []}],
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["admin"],
                "summary": "Create a user",
                "parameters": [
                    {"description": "User details", "name": "body", "in": "body", "required": true,
                     "schema": {"$ref": "#/definitions/handler.createUserRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.AuthResult"}},
                    "400": {"description": "Bad Request"},
                    "401": {"description": "Unauthorized"},
                    "403": {"description": "Forbidden"},
                    "409": {"description": "Conflict"}
                }
            }
        },
        "/health": {
            "get": {"produces": ["application/json"], "tags": ["health"], "summary": "Liveness probe",
                    "responses": {"200": {"description": "OK"}}}
        },
        "/health/ready": {
            "get": {"produces": ["application/json"], "tags": ["health"], "summary": "Readiness probe",
                    "responses": {"200": {"description": "OK"}, "503": {"description": "Service Unavailable"}}}
        }
    },
    "definitions": {
        "domain.Identity": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "username": {"type": "string"},
                "email": {"type": "string"},
                "fullName": {"type": "string"},
                "role": {"type": "string", "enum": ["Label Manager", "Admin", "Artist"]},
                "avatar": {"type": "string"},
                "sourceTable": {"type": "string"}
            }
        },
        "domain.AuthResult": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "user": {"$ref": "#/definitions/domain.Identity"},
                "message": {"type": "string"},
                "source": {"type": "string", "enum": ["primary_database", "content_api", "demo_fallback"]},
                "debug": {"type": "string"}
            }
        },
        "domain.Status": {
            "type": "object",
            "properties": {
                "primaryAvailable": {"type": "boolean"},
                "contentApiAvailable": {"type": "boolean"},
                "probed": {"type": "boolean"},
                "probedAt": {"type": "string"}
            }
        },
        "domain.AuthEvent": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "action": {"type": "string"},
                "success": {"type": "boolean"},
                "source": {"type": "string"},
                "message": {"type": "string"},
                "at": {"type": "string"}
            }
        },
        "handler.loginRequest": {
            "type": "object",
            "required": ["username", "password"],
            "properties": {
                "username": {"type": "string"},
                "password": {"type": "string"}
            }
        },
        "handler.loginResponse": {
            "type": "object",
            "properties": {
                "success": {"type": "boolean"},
                "user": {"$ref": "#/definitions/domain.Identity"},
                "message": {"type": "string"},
                "source": {"type": "string"},
                "token": {"type": "string"},
                "expiresAt": {"type": "string"}
            }
        },
        "handler.registerRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string", "maxLength": 72},
                "fullName": {"type": "string"},
                "avatar": {"type": "string"}
            }
        },
        "handler.createUserRequest": {
            "type": "object",
            "properties": {
                "username": {"type": "string"},
                "email": {"type": "string"},
                "password": {"type": "string", "maxLength": 72},
                "fullName": {"type": "string"},
                "role": {"type": "string", "enum": ["Label Manager", "Admin", "Artist"]},
                "avatar": {"type": "string"}
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
	Title:            "Backoffice Credential API",
	Description:      "Credential resolution for the label back-office: primary database, content API and demo fallback.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
