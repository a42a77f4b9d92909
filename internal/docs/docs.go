// Package docs registers the OpenAPI description served at /swagger/*any.
//
// Regenerate from the handler annotations with:
//
//	swag init -g internal/http/router.go -o internal/docs --outputTypes go
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
        "/messages": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Messages"],
                "summary": "List interface messages",
                "operationId": "listMessages",
                "parameters": [
                    {"type": "string", "description": "success | error | pending", "name": "status", "in": "query"},
                    {"type": "string", "description": "First day (YYYY-MM-DD)", "name": "from", "in": "query"},
                    {"type": "string", "description": "Last day (YYYY-MM-DD)", "name": "to", "in": "query"},
                    {"type": "array", "items": {"type": "string"}, "collectionFormat": "multi", "description": "Event names (any of)", "name": "event", "in": "query"},
                    {"type": "string", "description": "Return 304 if ETag matches", "name": "If-None-Match", "in": "header"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListMessagesResponse"}},
                    "304": {"description": "Not Modified"},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/messages/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Messages"],
                "summary": "Message detail",
                "operationId": "getMessage",
                "parameters": [{"type": "string", "description": "Message ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.Message"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/messages/{id}/solution": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Messages"],
                "summary": "Remediation for an error message",
                "operationId": "getMessageSolution",
                "parameters": [{"type": "string", "description": "Message ID", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/services.Solution"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/patients": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Patients"],
                "summary": "Patient summaries",
                "operationId": "listPatients",
                "parameters": [{"type": "string", "description": "Facility name", "name": "facility", "in": "query"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListPatientsResponse"}}
                }
            }
        },
        "/patients/{name}/messages": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Patients"],
                "summary": "Patient message timeline",
                "operationId": "listPatientMessages",
                "parameters": [
                    {"type": "string", "description": "Patient name", "name": "name", "in": "path", "required": true},
                    {"type": "string", "name": "status", "in": "query"},
                    {"type": "string", "name": "from", "in": "query"},
                    {"type": "string", "name": "to", "in": "query"},
                    {"type": "array", "items": {"type": "string"}, "collectionFormat": "multi", "name": "event", "in": "query"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListMessagesResponse"}},
                    "400": {"description": "Bad Request", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/patients/{name}/visit-status": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Patients"],
                "summary": "Record a patient's visit status",
                "operationId": "setVisitStatus",
                "parameters": [
                    {"type": "string", "description": "Patient name", "name": "name", "in": "path", "required": true},
                    {"description": "Visit status", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.SetVisitStatusRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.PatientVisit"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/kpis": {
            "get": {
                "produces": ["application/json"],
                "tags": ["KPIs"],
                "summary": "Dashboard KPI tiles",
                "operationId": "getKpis",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.KpiData"}}
                }
            }
        },
        "/kpis/samples": {
            "post": {
                "produces": ["application/json"],
                "tags": ["KPIs"],
                "summary": "Record a success-rate sample",
                "operationId": "recordKpiSample",
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.KpiSample"}}
                }
            }
        },
        "/catalog/events": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Catalog"],
                "summary": "List event definitions",
                "operationId": "listEventDefinitions",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListEventDefinitionsResponse"}},
                    "304": {"description": "Not Modified"}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Catalog"],
                "summary": "Create an event definition",
                "operationId": "createEventDefinition",
                "parameters": [
                    {"type": "string", "description": "Key for safe retries", "name": "Idempotency-Key", "in": "header"},
                    {"description": "Event definition", "name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CreateEventDefinitionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.EventDefinition"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/catalog/events/{id}": {
            "patch": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Catalog"],
                "summary": "Update an event definition",
                "operationId": "updateEventDefinition",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.UpdateEventDefinitionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.EventDefinition"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "409": {"description": "Conflict", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["Catalog"],
                "summary": "Delete an event definition",
                "operationId": "deleteEventDefinition",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/catalog/errors": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Catalog"],
                "summary": "List error definitions with their steps",
                "operationId": "listErrorDefinitions",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/handlers.ListErrorDefinitionsResponse"}},
                    "304": {"description": "Not Modified"}
                }
            },
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Catalog"],
                "summary": "Create an error definition",
                "operationId": "createErrorDefinition",
                "parameters": [
                    {"type": "string", "description": "Key for safe retries", "name": "Idempotency-Key", "in": "header"},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.CreateErrorDefinitionRequest"}}
                ],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/domain.ErrorDefinition"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/catalog/errors/{id}": {
            "get": {
                "produces": ["application/json"],
                "tags": ["Catalog"],
                "summary": "Get one error definition",
                "operationId": "getErrorDefinition",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.ErrorDefinition"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "patch": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Catalog"],
                "summary": "Update an error definition",
                "operationId": "updateErrorDefinition",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.UpdateErrorDefinitionRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.ErrorDefinition"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            },
            "delete": {
                "tags": ["Catalog"],
                "summary": "Delete an error definition and its steps",
                "operationId": "deleteErrorDefinition",
                "parameters": [{"type": "string", "name": "id", "in": "path", "required": true}],
                "responses": {
                    "204": {"description": "No Content"},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/catalog/errors/{id}/steps": {
            "put": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Catalog"],
                "summary": "Replace all solution steps",
                "operationId": "replaceSolutionSteps",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.ReplaceStepsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.ErrorDefinition"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/catalog/errors/{id}/steps/reorder": {
            "post": {
                "consumes": ["application/json"],
                "produces": ["application/json"],
                "tags": ["Catalog"],
                "summary": "Reorder solution steps",
                "operationId": "reorderSolutionSteps",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"name": "body", "in": "body", "required": true, "schema": {"$ref": "#/definitions/handlers.ReorderStepsRequest"}}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.ErrorDefinition"}},
                    "422": {"description": "Unprocessable Entity", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        },
        "/catalog/errors/{id}/steps/{stepId}": {
            "delete": {
                "produces": ["application/json"],
                "tags": ["Catalog"],
                "summary": "Delete one solution step",
                "operationId": "deleteSolutionStep",
                "parameters": [
                    {"type": "string", "name": "id", "in": "path", "required": true},
                    {"type": "string", "name": "stepId", "in": "path", "required": true}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/domain.ErrorDefinition"}},
                    "404": {"description": "Not Found", "schema": {"$ref": "#/definitions/handlers.ErrorResponse"}}
                }
            }
        }
    },
    "definitions": {
        "domain.Message": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "timestamp": {"type": "string"},
                "event": {"type": "string"},
                "status": {"type": "string", "enum": ["success", "error", "pending"]},
                "facility": {"type": "string"},
                "patient": {"type": "string"},
                "error_message": {"type": "string"},
                "count": {"type": "integer"},
                "mrn": {"type": "string"},
                "case_number": {"type": "string"}
            }
        },
        "domain.EventDefinition": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "code": {"type": "string"},
                "description": {"type": "string"},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.SolutionStep": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "description": {"type": "string"},
                "order": {"type": "integer"}
            }
        },
        "domain.ErrorDefinition": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "name": {"type": "string"},
                "associated_event_codes": {"type": "array", "items": {"type": "string"}},
                "solution_steps": {"type": "array", "items": {"$ref": "#/definitions/domain.SolutionStep"}},
                "created_at": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.PatientSummary": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "visit_status": {"type": "string"},
                "has_error": {"type": "boolean"}
            }
        },
        "domain.PatientVisit": {
            "type": "object",
            "properties": {
                "patient": {"type": "string"},
                "status": {"type": "string"},
                "updated_at": {"type": "string"}
            }
        },
        "domain.KpiData": {
            "type": "object",
            "properties": {
                "total_messages": {"type": "integer"},
                "error_messages": {"type": "integer"},
                "critical_errors": {"type": "integer"},
                "success_rate": {"type": "number"},
                "success_rate_trend": {"type": "array", "items": {"type": "number"}}
            }
        },
        "domain.KpiSample": {
            "type": "object",
            "properties": {
                "success_rate": {"type": "number"},
                "taken_at": {"type": "string"}
            }
        },
        "services.RankedDefinition": {
            "type": "object",
            "properties": {
                "definition": {"$ref": "#/definitions/domain.ErrorDefinition"},
                "score": {"type": "number"}
            }
        },
        "services.Solution": {
            "type": "object",
            "properties": {
                "message": {"$ref": "#/definitions/domain.Message"},
                "event_code": {"type": "string"},
                "match": {"$ref": "#/definitions/services.RankedDefinition"},
                "candidates": {"type": "array", "items": {"$ref": "#/definitions/services.RankedDefinition"}}
            }
        },
        "handlers.ErrorResponse": {
            "type": "object",
            "properties": {
                "request_id": {"type": "string"},
                "code": {"type": "string"},
                "message": {"type": "string"}
            }
        },
        "handlers.ListMessagesResponse": {
            "type": "object",
            "properties": {
                "messages": {"type": "array", "items": {"$ref": "#/definitions/domain.Message"}},
                "count": {"type": "integer"}
            }
        },
        "handlers.ListPatientsResponse": {
            "type": "object",
            "properties": {
                "patients": {"type": "array", "items": {"$ref": "#/definitions/domain.PatientSummary"}}
            }
        },
        "handlers.SetVisitStatusRequest": {
            "type": "object",
            "required": ["status"],
            "properties": {
                "status": {"type": "string", "example": "Admitted"}
            }
        },
        "handlers.ListEventDefinitionsResponse": {
            "type": "object",
            "properties": {
                "event_definitions": {"type": "array", "items": {"$ref": "#/definitions/domain.EventDefinition"}}
            }
        },
        "handlers.CreateEventDefinitionRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string", "example": "Patient Admit"},
                "code": {"type": "string", "example": "PA"},
                "description": {"type": "string"}
            }
        },
        "handlers.UpdateEventDefinitionRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "code": {"type": "string"},
                "description": {"type": "string"}
            }
        },
        "handlers.StepRequest": {
            "type": "object",
            "properties": {
                "id": {"type": "string"},
                "description": {"type": "string"}
            }
        },
        "handlers.ListErrorDefinitionsResponse": {
            "type": "object",
            "properties": {
                "error_definitions": {"type": "array", "items": {"$ref": "#/definitions/domain.ErrorDefinition"}}
            }
        },
        "handlers.CreateErrorDefinitionRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "associated_event_codes": {"type": "array", "items": {"type": "string"}},
                "solution_steps": {"type": "array", "items": {"$ref": "#/definitions/handlers.StepRequest"}}
            }
        },
        "handlers.UpdateErrorDefinitionRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "associated_event_codes": {"type": "array", "items": {"type": "string"}},
                "solution_steps": {"type": "array", "items": {"$ref": "#/definitions/handlers.StepRequest"}}
            }
        },
        "handlers.ReplaceStepsRequest": {
            "type": "object",
            "properties": {
                "solution_steps": {"type": "array", "items": {"$ref": "#/definitions/handlers.StepRequest"}}
            }
        },
        "handlers.ReorderStepsRequest": {
            "type": "object",
            "properties": {
                "from": {"type": "integer"},
                "to": {"type": "integer"},
                "step_ids": {"type": "array", "items": {"type": "string"}}
            }
        }
    }
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0",
	Host:             "",
	BasePath:         "/api/v1",
	Schemes:          []string{},
	Title:            "HL7 Interface Monitor API",
	Description:      "Message log queries, patient summaries, KPI tiles and the event/error catalogs of the HL7 interface monitor.",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}
