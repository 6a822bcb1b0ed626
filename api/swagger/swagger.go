package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "LMS Ranking API",
        "description": "Student rankings and gamified leaderboards for the LMS",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": ["http", "https"],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [{"BearerAuth": []}],
    "tags": [
        {"name": "Rankings", "description": "Academic ranking snapshots per grade level"},
        {"name": "Leaderboards", "description": "Point-based leaderboards"},
        {"name": "Ranking Schedules", "description": "Recurring ranking regeneration"},
        {"name": "Ingest", "description": "Performance scores and point events pushed by the LMS"},
        {"name": "Exports", "description": "CSV and PDF downloads"},
        {"name": "System", "description": "Engine counters"}
    ],
    "paths": {
        "/rankings": {
            "get": {
                "tags": ["Rankings"],
                "summary": "List ranking snapshots",
                "parameters": [
                    {"name": "grade_level_id", "in": "query", "type": "string"},
                    {"name": "subject_id", "in": "query", "type": "string"},
                    {"name": "type", "in": "query", "type": "string", "enum": ["overall", "subject"]},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/rankings/grade-levels/{gradeLevelId}/overall": {
            "post": {
                "tags": ["Rankings"],
                "summary": "Recompute overall rankings for a grade level",
                "parameters": [{"name": "gradeLevelId", "in": "path", "required": true, "type": "string"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/RankingResult"}},
                    "404": {"description": "Unknown grade level", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rankings/grade-levels/{gradeLevelId}/subjects/{subjectId}": {
            "post": {
                "tags": ["Rankings"],
                "summary": "Recompute subject rankings for a grade level",
                "parameters": [
                    {"name": "gradeLevelId", "in": "path", "required": true, "type": "string"},
                    {"name": "subjectId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/RankingResult"}},
                    "404": {"description": "Unknown grade level or subject", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rankings/export": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download a ranking snapshot",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "grade_level_id", "in": "query", "required": true, "type": "string"},
                    {"name": "subject_id", "in": "query", "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {"200": {"description": "File"}}
            }
        },
        "/users/{id}/rankings": {
            "get": {
                "tags": ["Rankings"],
                "summary": "List every ranking row for one student",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/leaderboards": {
            "get": {
                "tags": ["Leaderboards"],
                "summary": "List leaderboards",
                "parameters": [
                    {"name": "scope_type", "in": "query", "type": "string", "enum": ["site", "course", "category"]},
                    {"name": "scope_id", "in": "query", "type": "string"},
                    {"name": "active", "in": "query", "type": "boolean"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Leaderboards"],
                "summary": "Create a leaderboard and compute its first standings",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateLeaderboardRequest"}}],
                "responses": {
                    "201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "400": {"description": "Validation error", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/leaderboards/refresh": {
            "post": {
                "tags": ["Leaderboards"],
                "summary": "Recompute every active leaderboard",
                "parameters": [{"name": "async", "in": "query", "type": "boolean"}],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/leaderboards/{id}": {
            "get": {
                "tags": ["Leaderboards"],
                "summary": "Get a leaderboard",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "put": {
                "tags": ["Leaderboards"],
                "summary": "Edit leaderboard settings",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/UpdateLeaderboardRequest"}}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "delete": {
                "tags": ["Leaderboards"],
                "summary": "Delete a leaderboard and its entries",
                "parameters": [{"name": "id", "in": "path", "required": true, "type": "string"}],
                "responses": {"204": {"description": "Deleted"}}
            }
        },
        "/leaderboards/{id}/refresh": {
            "post": {
                "tags": ["Leaderboards"],
                "summary": "Recompute one leaderboard",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "async", "in": "query", "type": "boolean"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "202": {"description": "Queued", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/leaderboards/{id}/entries": {
            "get": {
                "tags": ["Leaderboards"],
                "summary": "List leaderboard standings",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "page_size", "in": "query", "type": "integer"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/leaderboards/{id}/entries/{userId}": {
            "get": {
                "tags": ["Leaderboards"],
                "summary": "Get one user's standing",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "userId", "in": "path", "required": true, "type": "string"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/leaderboards/{id}/export": {
            "get": {
                "tags": ["Exports"],
                "summary": "Download leaderboard standings",
                "produces": ["text/csv", "application/pdf"],
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf"]}
                ],
                "responses": {"200": {"description": "File"}}
            }
        },
        "/ranking-schedules": {
            "get": {
                "tags": ["Ranking Schedules"],
                "summary": "List ranking schedules",
                "parameters": [{"name": "active", "in": "query", "type": "boolean"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            },
            "post": {
                "tags": ["Ranking Schedules"],
                "summary": "Create a ranking schedule",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/CreateScheduleRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/ranking-schedules/run-due": {
            "post": {
                "tags": ["Ranking Schedules"],
                "summary": "Run every schedule that is due now",
                "parameters": [{"name": "async", "in": "query", "type": "boolean"}],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/ranking-schedules/{id}/run": {
            "post": {
                "tags": ["Ranking Schedules"],
                "summary": "Run one schedule regardless of its due date",
                "parameters": [
                    {"name": "id", "in": "path", "required": true, "type": "string"},
                    {"name": "async", "in": "query", "type": "boolean"}
                ],
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/performance-records": {
            "post": {
                "tags": ["Ingest"],
                "summary": "Append performance records",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/RecordPerformanceRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/user-points": {
            "post": {
                "tags": ["Ingest"],
                "summary": "Append point ledger events",
                "parameters": [{"name": "payload", "in": "body", "required": true, "schema": {"$ref": "#/definitions/AwardPointsRequest"}}],
                "responses": {"201": {"description": "Created", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        },
        "/system/metrics": {
            "get": {
                "tags": ["System"],
                "summary": "Engine and cache counters",
                "responses": {"200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}}
            }
        }
    },
    "definitions": {
        "RankingResult": {
            "type": "object",
            "properties": {
                "grade_level_id": {"type": "string"},
                "subject_id": {"type": "string"},
                "ranking_type": {"type": "string"},
                "rankings_generated": {"type": "integer"},
                "total_students": {"type": "integer"},
                "computed_at": {"type": "string", "format": "date-time"}
            }
        },
        "CreateLeaderboardRequest": {
            "type": "object",
            "required": ["name", "scope_type", "time_period"],
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "scope_type": {"type": "string", "enum": ["site", "course", "category"]},
                "scope_id": {"type": "string"},
                "time_period": {"type": "string", "enum": ["all_time", "yearly", "monthly", "weekly"]},
                "start_date": {"type": "string", "format": "date-time"},
                "end_date": {"type": "string", "format": "date-time"},
                "is_active": {"type": "boolean"}
            }
        },
        "UpdateLeaderboardRequest": {
            "type": "object",
            "properties": {
                "name": {"type": "string"},
                "description": {"type": "string"},
                "time_period": {"type": "string", "enum": ["all_time", "yearly", "monthly", "weekly"]},
                "start_date": {"type": "string", "format": "date-time"},
                "end_date": {"type": "string", "format": "date-time"},
                "clear_date_range": {"type": "boolean"},
                "is_active": {"type": "boolean"}
            }
        },
        "CreateScheduleRequest": {
            "type": "object",
            "required": ["name", "frequency"],
            "properties": {
                "name": {"type": "string"},
                "frequency": {"type": "string", "enum": ["daily", "weekly", "monthly"]},
                "subject_ids": {"type": "array", "items": {"type": "string"}},
                "grade_level_ids": {"type": "array", "items": {"type": "string"}},
                "is_active": {"type": "boolean"}
            }
        },
        "RecordPerformanceRequest": {
            "type": "object",
            "properties": {
                "records": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "user_id": {"type": "string"},
                            "subject_id": {"type": "string"},
                            "grade_level_id": {"type": "string"},
                            "metric_id": {"type": "string"},
                            "percentage": {"type": "number"},
                            "calculated_at": {"type": "string", "format": "date-time"}
                        }
                    }
                }
            }
        },
        "AwardPointsRequest": {
            "type": "object",
            "properties": {
                "events": {
                    "type": "array",
                    "items": {
                        "type": "object",
                        "properties": {
                            "user_id": {"type": "string"},
                            "points": {"type": "integer"},
                            "source_type": {"type": "string", "enum": ["course", "quiz", "lesson", "badge", "activity"]},
                            "source_id": {"type": "string"},
                            "description": {"type": "string"},
                            "created_at": {"type": "string", "format": "date-time"}
                        }
                    }
                }
            }
        },
        "Pagination": {
            "type": "object",
            "properties": {
                "page": {"type": "integer"},
                "page_size": {"type": "integer"},
                "total_count": {"type": "integer"}
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {"type": "string"},
                "message": {"type": "string"},
                "status": {"type": "integer"}
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "object"},
                "error": {"$ref": "#/definitions/APIError"},
                "pagination": {"$ref": "#/definitions/Pagination"},
                "meta": {"type": "object"}
            }
        }
    }
}`

type swaggerDoc struct{}

// ReadDoc returns the Swagger document.
func (s *swaggerDoc) ReadDoc() string {
	return docTemplate
}

func init() {
	swag.Register(swag.Name, &swaggerDoc{})
}
