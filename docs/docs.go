// Package docs registra el documento OpenAPI que sirve /swagger. Se mantiene a mano
// a partir de las anotaciones de los handlers.
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
        "/auth/signup": {
            "post": {
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Registrar cuenta",
                "responses": {"201": {"description": "Created"}, "400": {"description": "datos inválidos"}, "409": {"description": "email ya registrado"}}
            }
        },
        "/auth/login": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["auth"],
                "summary": "Iniciar sesión",
                "responses": {"200": {"description": "OK"}, "401": {"description": "credenciales inválidas"}, "403": {"description": "pending approval"}}
            }
        },
        "/users/me": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Mi perfil", "responses": {"200": {"description": "OK"}}},
            "put": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Actualizar mi perfil", "responses": {"200": {"description": "OK"}}}
        },
        "/users/me/password": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["users"], "summary": "Cambiar contraseña", "responses": {"204": {"description": "No Content"}}}
        },
        "/vets": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["vets"], "summary": "Directorio de veterinarios aprobados", "responses": {"200": {"description": "OK"}}}
        },
        "/admin/vets": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Listar veterinarios (admin)", "responses": {"200": {"description": "OK"}}}
        },
        "/admin/vets/{userID}/approve": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Aprobar veterinario", "responses": {"200": {"description": "OK"}}}
        },
        "/admin/vets/{userID}/reject": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Rechazar veterinario", "responses": {"200": {"description": "OK"}}}
        },
        "/admin/stats": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["admin"], "summary": "Estadísticas", "responses": {"200": {"description": "OK"}}}
        },
        "/pets": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["pets"], "summary": "Listar mis mascotas", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["pets"], "summary": "Crear mascota", "responses": {"201": {"description": "Created"}}}
        },
        "/pets/{petID}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["pets"], "summary": "Ver mascota", "responses": {"200": {"description": "OK"}}},
            "patch": {"security": [{"BearerAuth": []}], "tags": ["pets"], "summary": "Editar mascota", "responses": {"200": {"description": "OK"}}}
        },
        "/me/pets": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["pets"], "summary": "Mascotas compartidas conmigo", "responses": {"200": {"description": "OK"}}}
        },
        "/pets/{petID}/records": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["records"], "summary": "Listar registros médicos", "responses": {"200": {"description": "OK"}}},
            "post": {"security": [{"BearerAuth": []}], "tags": ["records"], "summary": "Crear registro médico", "responses": {"201": {"description": "Created"}}}
        },
        "/pets/{petID}/records/{recordID}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["records"], "summary": "Ver registro médico", "responses": {"200": {"description": "OK"}}},
            "patch": {"security": [{"BearerAuth": []}], "tags": ["records"], "summary": "Editar registro médico", "responses": {"200": {"description": "OK"}}}
        },
        "/pets/{petID}/records/{recordID}/void": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["records"], "summary": "Anular registro médico", "responses": {"200": {"description": "OK"}}}
        },
        "/pets/{petID}/access": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["pet-access"], "summary": "Accesos de una mascota", "responses": {"200": {"description": "OK"}}}
        },
        "/pet-access/request": {
            "post": {"security": [{"BearerAuth": []}], "tags": ["pet-access"], "summary": "Pedir acceso a los registros de una mascota", "responses": {"201": {"description": "Created"}, "409": {"description": "ya existe un pedido pendiente"}}}
        },
        "/pet-access": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["pet-access"], "summary": "Mis accesos", "responses": {"200": {"description": "OK"}}}
        },
        "/pet-access/{grantID}": {
            "get": {"security": [{"BearerAuth": []}], "tags": ["pet-access"], "summary": "Ver un acceso", "responses": {"200": {"description": "OK"}}}
        },
        "/pet-access/{grantID}/decide": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["pet-access"], "summary": "Aprobar o rechazar un pedido", "responses": {"200": {"description": "OK"}}}
        },
        "/pet-access/{grantID}/revoke": {
            "put": {"security": [{"BearerAuth": []}], "tags": ["pet-access"], "summary": "Revocar un acceso aprobado", "responses": {"200": {"description": "OK"}}}
        },
        "/health": {
            "get": {"produces": ["text/plain"], "tags": ["health"], "summary": "Health check", "responses": {"200": {"description": "ok"}}}
        }
    },
    "securityDefinitions": {
        "BearerAuth": {
            "description": "Bearer {token}",
            "type": "apiKey",
            "name": "Authorization",
            "in": "header"
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Pet Health API",
	Description:      "Mascotas, registros médicos y acceso compartido con veterinarios.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
