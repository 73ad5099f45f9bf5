// Package docs registers Charon's status-API Swagger spec with swaggo/swag.
//
// Normally generated by `swag init` from the @Summary/@Description
// annotations in status.go; authored by hand here since the generator
// isn't run as part of this build.
package docs

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{.Description}}",
        "version": "{{.Version}}"
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "paths": {
        "/healthz": {
            "get": {
                "produces": ["application/json"],
                "summary": "Health check",
                "description": "Reports that the status server is reachable.",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        },
        "/stats": {
            "get": {
                "produces": ["application/json"],
                "summary": "Server statistics",
                "description": "Returns cache size plus a point-in-time CPU/memory snapshot.",
                "responses": {
                    "200": {"description": "OK"}
                }
            }
        }
    }
}`

// SwaggerInfo holds the parameterized spec metadata the gin-swagger handler
// renders at /swagger/*.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "Charon status API",
	Description:      "Read-only health and statistics surface.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
