// Package sqrl holds the Swagger documentation served at /swagger/.
// Regenerate with: swag init -g internal/sqrl/http/router.go -o api/sqrl
package sqrl

import "github.com/swaggo/swag"

const docTemplate = `{
    "schemes": {{ marshal .Schemes }},
    "swagger": "2.0",
    "info": {
        "description": "{{escape .Description}}",
        "title": "{{.Title}}",
        "contact": {
            "name": "AussieBroadWAN Team",
            "url": "https://github.com/aussiebroadwan/sqrl"
        },
        "license": {
            "name": "MIT",
            "url": "https://opensource.org/licenses/MIT"
        },
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/sqrl/nut": {
            "post": {
                "tags": ["SQRL"],
                "summary": "Issue a nut",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/sqrlsdk.NutRequest"}}
                ],
                "responses": {
                    "201": {"description": "nut, expires_in, check_ms, question", "schema": {"$ref": "#/definitions/sqrlsdk.NutResponse"}},
                    "400": {"description": "error, error_description", "schema": {"$ref": "#/definitions/sqrlsdk.ErrorResponse"}},
                    "503": {"description": "error, error_description", "schema": {"$ref": "#/definitions/sqrlsdk.ErrorResponse"}}
                }
            }
        },
        "/sqrl/login": {
            "post": {
                "tags": ["SQRL"],
                "summary": "Submit a signed login",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/sqrlsdk.LoginRequest"}}
                ],
                "responses": {
                    "200": {"description": "outcome, reason, user_id, ticket, question", "schema": {"$ref": "#/definitions/sqrlsdk.LoginResponse"}},
                    "400": {"description": "error, error_description", "schema": {"$ref": "#/definitions/sqrlsdk.ErrorResponse"}}
                }
            }
        },
        "/sqrl/ask/{nut}": {
            "get": {
                "tags": ["Ask"],
                "summary": "Poll an Ask question",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "nut", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "state, accepted", "schema": {"$ref": "#/definitions/sqrlsdk.AskStatusResponse"}}
                }
            },
            "post": {
                "tags": ["Ask"],
                "summary": "Answer an Ask question",
                "consumes": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "nut", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/sqrlsdk.AskAnswerRequest"}}
                ],
                "responses": {
                    "202": {"description": "Answer accepted"},
                    "400": {"description": "error, error_description", "schema": {"$ref": "#/definitions/sqrlsdk.ErrorResponse"}},
                    "404": {"description": "error, error_description", "schema": {"$ref": "#/definitions/sqrlsdk.ErrorResponse"}},
                    "409": {"description": "error, error_description", "schema": {"$ref": "#/definitions/sqrlsdk.ErrorResponse"}}
                }
            }
        },
        "/sqrl/identity/{cmd}": {
            "post": {
                "tags": ["SQRL"],
                "summary": "Run a signed identity command",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"enum": ["disable", "enable", "remove", "rekey"], "type": "string", "name": "cmd", "in": "path", "required": true},
                    {"name": "request", "in": "body", "required": true, "schema": {"$ref": "#/definitions/sqrlsdk.IdentityCommandRequest"}}
                ],
                "responses": {
                    "200": {"description": "outcome, reason, user_id", "schema": {"$ref": "#/definitions/sqrlsdk.IdentityCommandResponse"}},
                    "400": {"description": "error, error_description", "schema": {"$ref": "#/definitions/sqrlsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/session": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Session"],
                "summary": "Describe the current session",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "user_id, role, scope, sid, expires_at", "schema": {"$ref": "#/definitions/sqrlsdk.SessionResponse"}},
                    "401": {"description": "Missing or invalid session"}
                }
            }
        },
        "/v1/admin/identities/{id}/lock": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Admin"],
                "summary": "Lock an identity",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "user_id, locked", "schema": {"$ref": "#/definitions/sqrlsdk.AdminIdentityResponse"}},
                    "403": {"description": "error, error_description", "schema": {"$ref": "#/definitions/sqrlsdk.ErrorResponse"}},
                    "404": {"description": "error, error_description", "schema": {"$ref": "#/definitions/sqrlsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/admin/identities/{id}/unlock": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Admin"],
                "summary": "Unlock an identity",
                "produces": ["application/json"],
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "user_id, locked", "schema": {"$ref": "#/definitions/sqrlsdk.AdminIdentityResponse"}},
                    "403": {"description": "error, error_description", "schema": {"$ref": "#/definitions/sqrlsdk.ErrorResponse"}},
                    "404": {"description": "error, error_description", "schema": {"$ref": "#/definitions/sqrlsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/admin/keys": {
            "get": {
                "security": [{"BearerAuth": []}],
                "tags": ["Admin"],
                "summary": "List ticket signing keys",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "OK", "schema": {"type": "array", "items": {"$ref": "#/definitions/sqrlsdk.SigningKeyInfo"}}},
                    "403": {"description": "error, error_description", "schema": {"$ref": "#/definitions/sqrlsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/admin/keys/rotate": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Admin"],
                "summary": "Rotate ticket signing keys",
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "parameters": [
                    {"description": "Rotation options", "name": "request", "in": "body", "schema": {"$ref": "#/definitions/sqrlsdk.RotateKeyRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/sqrlsdk.RotateKeyResponse"}},
                    "403": {"description": "error, error_description", "schema": {"$ref": "#/definitions/sqrlsdk.ErrorResponse"}}
                }
            }
        },
        "/v1/admin/keys/{kid}/retire": {
            "post": {
                "security": [{"BearerAuth": []}],
                "tags": ["Admin"],
                "summary": "Retire a ticket signing key",
                "parameters": [
                    {"type": "string", "name": "kid", "in": "path", "required": true}
                ],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "error, error_description", "schema": {"$ref": "#/definitions/sqrlsdk.ErrorResponse"}},
                    "409": {"description": "error, error_description", "schema": {"$ref": "#/definitions/sqrlsdk.ErrorResponse"}}
                }
            }
        },
        "/.well-known/jwks.json": {
            "get": {
                "tags": ["well-known"],
                "summary": "Get JWKS",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "The JSON Web Key Set", "schema": {"$ref": "#/definitions/sqrlsdk.JWKSResponse"}}
                }
            }
        },
        "/livez": {
            "get": {
                "tags": ["Health"],
                "summary": "Health Check Endpoint",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "status, uptime, version", "schema": {"$ref": "#/definitions/sqrlsdk.HealthResponse"}}
                }
            }
        },
        "/readyz": {
            "get": {
                "tags": ["Health"],
                "summary": "Readiness Check Endpoint",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "status, uptime, version, checks", "schema": {"$ref": "#/definitions/sqrlsdk.HealthResponse"}},
                    "503": {"description": "status, uptime, version, checks - service not ready", "schema": {"$ref": "#/definitions/sqrlsdk.HealthResponse"}}
                }
            }
        },
        "/sqrl/diag": {
            "get": {
                "tags": ["Health"],
                "summary": "Nut registry statistics",
                "produces": ["application/json"],
                "responses": {
                    "200": {"description": "live_nuts, tombstones, awaiting_answer", "schema": {"$ref": "#/definitions/sqrlsdk.DiagnosticsResponse"}}
                }
            }
        }
    },
    "definitions": {
        "sqrlsdk.AdminIdentityResponse": {
            "type": "object",
            "properties": {"locked": {"type": "boolean"}, "user_id": {"type": "string"}}
        },
        "sqrlsdk.AskAnswerRequest": {
            "type": "object",
            "properties": {"button": {"type": "integer"}}
        },
        "sqrlsdk.AskStatusResponse": {
            "type": "object",
            "properties": {"accepted": {"type": "boolean"}, "state": {"type": "string"}}
        },
        "sqrlsdk.Button": {
            "type": "object",
            "properties": {"label": {"type": "string"}, "url": {"type": "string"}}
        },
        "sqrlsdk.DiagnosticsResponse": {
            "type": "object",
            "properties": {"awaiting_answer": {"type": "integer"}, "live_nuts": {"type": "integer"}, "tombstones": {"type": "integer"}}
        },
        "sqrlsdk.ErrorResponse": {
            "type": "object",
            "properties": {"error": {"type": "string"}, "error_description": {"type": "string"}}
        },
        "sqrlsdk.RotateKeyRequest": {
            "type": "object",
            "properties": {"retire_existing": {"type": "boolean"}}
        },
        "sqrlsdk.RotateKeyResponse": {
            "type": "object",
            "properties": {
                "active_keys": {"type": "integer"},
                "new_key": {"$ref": "#/definitions/sqrlsdk.SigningKeyInfo"},
                "retired_keys": {"type": "array", "items": {"$ref": "#/definitions/sqrlsdk.SigningKeyInfo"}}
            }
        },
        "sqrlsdk.SigningKeyInfo": {
            "type": "object",
            "properties": {
                "alg": {"type": "string"},
                "created_at": {"type": "string"},
                "expires_at": {"type": "string"},
                "id": {"type": "string"},
                "kid": {"type": "string"},
                "retired_at": {"type": "string"}
            }
        },
        "sqrlsdk.HealthResponse": {
            "type": "object",
            "properties": {
                "checks": {"type": "object", "additionalProperties": {"type": "string"}},
                "status": {"type": "string"},
                "uptime": {"type": "string"},
                "version": {"type": "string"}
            }
        },
        "sqrlsdk.IdentityCommandRequest": {
            "type": "object",
            "properties": {
                "idk": {"type": "string"},
                "ids": {"type": "string"},
                "new_idk": {"type": "string"},
                "new_ids": {"type": "string"},
                "new_suk": {"type": "string"},
                "new_vuk": {"type": "string"},
                "nut": {"type": "string"},
                "path": {"type": "string"},
                "suk": {"type": "string"},
                "urs": {"type": "string"},
                "vuk": {"type": "string"}
            }
        },
        "sqrlsdk.IdentityCommandResponse": {
            "type": "object",
            "properties": {"outcome": {"type": "string"}, "reason": {"type": "string"}, "user_id": {"type": "string"}}
        },
        "sqrlsdk.JWK": {
            "type": "object",
            "properties": {
                "alg": {"type": "string"},
                "crv": {"type": "string"},
                "kid": {"type": "string"},
                "kty": {"type": "string"},
                "use": {"type": "string"},
                "x": {"type": "string"}
            }
        },
        "sqrlsdk.JWKSResponse": {
            "type": "object",
            "properties": {"keys": {"type": "array", "items": {"$ref": "#/definitions/sqrlsdk.JWK"}}}
        },
        "sqrlsdk.LoginRequest": {
            "type": "object",
            "properties": {
                "idk": {"type": "string"},
                "ids": {"type": "string"},
                "nut": {"type": "string"},
                "path": {"type": "string"},
                "suk": {"type": "string"},
                "vuk": {"type": "string"},
                "want_suk": {"type": "boolean"}
            }
        },
        "sqrlsdk.LoginResponse": {
            "type": "object",
            "properties": {
                "expires_at": {"type": "string"},
                "outcome": {"type": "string"},
                "question": {"$ref": "#/definitions/sqrlsdk.Question"},
                "reason": {"type": "string"},
                "suk": {"type": "string"},
                "ticket": {"type": "string"},
                "user_id": {"type": "string"}
            }
        },
        "sqrlsdk.NutRequest": {
            "type": "object",
            "properties": {"path": {"type": "string"}}
        },
        "sqrlsdk.NutResponse": {
            "type": "object",
            "properties": {
                "check_ms": {"type": "integer"},
                "expires_in": {"type": "integer"},
                "nut": {"type": "string"},
                "question": {"$ref": "#/definitions/sqrlsdk.Question"}
            }
        },
        "sqrlsdk.Question": {
            "type": "object",
            "properties": {
                "button1": {"$ref": "#/definitions/sqrlsdk.Button"},
                "button2": {"$ref": "#/definitions/sqrlsdk.Button"},
                "message": {"type": "string"}
            }
        },
        "sqrlsdk.SessionResponse": {
            "type": "object",
            "properties": {
                "expires_at": {"type": "string"},
                "role": {"type": "string"},
                "scope": {"type": "string"},
                "sid": {"type": "string"},
                "user_id": {"type": "string"}
            }
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Session ticket. Format: \"Bearer {token}\".",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "0.1.0",
	Host:             "localhost:8080",
	BasePath:         "/",
	Schemes:          []string{"http", "https"},
	Title:            "SQRL Login Service API",
	Description:      "Out-of-band public key login. A page asks for a nut, the client signs it with\nits identity key and the service answers with a decision and a session ticket.\n\nSession tickets are EdDSA JWTs verifiable with the JWKS endpoint.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
