// Package docs registers the shouldi OpenAPI document with swag so the
// HTTP transport can serve it at /swagger/doc.json.
//
// Regenerate with: swag init -g internal/transport/http/http.go -o internal/docs
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
        "/analyze": {
            "post": {
                "description": "Accepts a JSON request (question, base64 image and/or base64 audio), a multipart form (question, language, image file, audio file) or raw image or audio bytes with the rest in the query string. A recording without a typed question is transcribed first. Pipeline failures are reported in the result's \"failure\" field with a 200 status.",
                "consumes": ["application/json", "multipart/form-data", "image/jpeg", "image/png", "audio/wav", "audio/mpeg", "audio/ogg", "audio/webm"],
                "produces": ["application/json"],
                "tags": ["analyze"],
                "summary": "Analyze a yes/no question",
                "parameters": [
                    {
                        "description": "Analysis request (JSON)",
                        "name": "request",
                        "in": "body",
                        "schema": {"$ref": "#/definitions/message.Request"}
                    },
                    {"type": "string", "description": "Question (raw uploads)", "name": "question", "in": "query"},
                    {"type": "string", "description": "Locale tag (raw uploads)", "name": "language", "in": "query"},
                    {"type": "boolean", "description": "Disable search augmentation (raw uploads)", "name": "skip_search", "in": "query"}
                ],
                "responses": {
                    "200": {
                        "description": "Analysis result or sentinel error result",
                        "schema": {"$ref": "#/definitions/message.Result"}
                    },
                    "400": {"description": "Invalid request body", "schema": {"type": "string"}},
                    "415": {"description": "Unsupported content type", "schema": {"type": "string"}}
                }
            }
        }
    },
    "definitions": {
        "message.GenerationParams": {
            "type": "object",
            "properties": {
                "max_tokens": {"type": "integer"},
                "repeat_penalty": {"type": "number"},
                "temperature": {"type": "number"},
                "top_k": {"type": "integer"},
                "top_p": {"type": "number"}
            }
        },
        "message.VoiceParams": {
            "type": "object",
            "properties": {
                "emotion": {"type": "string"},
                "gender": {"type": "string", "enum": ["female", "male"]},
                "pitch": {"type": "integer"},
                "quality": {"type": "number"},
                "rate": {"type": "string", "enum": ["slow", "normal", "fast"]},
                "volume": {"type": "integer"}
            }
        },
        "message.Request": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "question": {"type": "string"},
                "image": {"type": "string", "format": "byte"},
                "audio": {"type": "string", "format": "byte"},
                "audio_format": {"type": "string"},
                "language": {"type": "string"},
                "generation": {"$ref": "#/definitions/message.GenerationParams"},
                "voice": {"$ref": "#/definitions/message.VoiceParams"},
                "skip_search": {"type": "boolean"}
            }
        },
        "message.Result": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "probability": {"type": "integer", "minimum": 0, "maximum": 100, "x-nullable": true},
                "verdict": {"type": "string", "enum": ["yes", "no"]},
                "transcript": {"type": "string"},
                "reason": {"type": "string"},
                "audio": {"type": "string", "format": "byte"},
                "audio_format": {"type": "string"},
                "audio_seconds": {"type": "number"},
                "failure": {
                    "type": "string",
                    "enum": ["invalid_request", "transport", "malformed_envelope", "malformed_content", "out_of_range_probability", "transcription_failure"]
                },
                "warnings": {"type": "array", "items": {"type": "string"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it.
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/",
	Schemes:          []string{},
	Title:            "shouldi API",
	Description:      "Yes/no recommendations with a probability, a reason and spoken audio.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
