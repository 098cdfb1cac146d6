package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Simulacro Performance API",
        "description": "Scores, rankings and averages over simulacro practice exams",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http"
    ],
    "securityDefinitions": {
        "BearerAuth": {"type": "apiKey", "name": "Authorization", "in": "header"}
    },
    "security": [
        {"BearerAuth": []}
    ],
    "tags": [
        {"name": "Performance", "description": "Per-student scores, progress and diagnostics"},
        {"name": "Rankings", "description": "Student, institution and campus rankings"},
        {"name": "System", "description": "Instrumentation"}
    ],
    "parameters": {
        "phase": {"name": "phase", "in": "query", "required": true, "type": "string", "enum": ["fase1", "fase2", "fase3"]},
        "studentId": {"name": "id", "in": "path", "required": true, "type": "string"},
        "institutionId": {"name": "institutionId", "in": "query", "type": "string", "description": "Institution ID or all"},
        "campusId": {"name": "campusId", "in": "query", "type": "string", "description": "Campus ID or all"},
        "gradeId": {"name": "gradeId", "in": "query", "type": "string", "description": "Grade ID or all"},
        "jornada": {"name": "jornada", "in": "query", "type": "string", "description": "Jornada or all, accent insensitive"},
        "academicYear": {"name": "academicYear", "in": "query", "type": "string", "description": "Four digit year or all"}
    },
    "paths": {
        "/students/{id}/score": {
            "get": {
                "tags": ["Performance"],
                "summary": "Global score of a student for a phase",
                "parameters": [
                    {"$ref": "#/parameters/studentId"},
                    {"$ref": "#/parameters/phase"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/StudentScoreEnvelope"}},
                    "400": {"description": "Invalid phase", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "403": {"description": "Outside of caller scope", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Result store unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/progress": {
            "get": {
                "tags": ["Performance"],
                "summary": "Global score of a student in every phase",
                "parameters": [
                    {"$ref": "#/parameters/studentId"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/students/{id}/diagnostics": {
            "get": {
                "tags": ["Performance"],
                "summary": "Per-topic correctness of a student for a phase",
                "parameters": [
                    {"$ref": "#/parameters/studentId"},
                    {"$ref": "#/parameters/phase"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rankings/students": {
            "get": {
                "tags": ["Rankings"],
                "summary": "Student ranking for a population",
                "parameters": [
                    {"$ref": "#/parameters/phase"},
                    {"$ref": "#/parameters/institutionId"},
                    {"$ref": "#/parameters/campusId"},
                    {"$ref": "#/parameters/gradeId"},
                    {"$ref": "#/parameters/jornada"},
                    {"$ref": "#/parameters/academicYear"},
                    {"name": "page", "in": "query", "type": "integer"},
                    {"name": "pageSize", "in": "query", "type": "integer", "maximum": 500}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}},
                    "503": {"description": "Result store unavailable", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/rankings/students/export": {
            "get": {
                "tags": ["Rankings"],
                "summary": "Export the student ranking",
                "produces": ["text/csv", "application/pdf", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"],
                "parameters": [
                    {"$ref": "#/parameters/phase"},
                    {"$ref": "#/parameters/institutionId"},
                    {"$ref": "#/parameters/campusId"},
                    {"$ref": "#/parameters/gradeId"},
                    {"$ref": "#/parameters/jornada"},
                    {"$ref": "#/parameters/academicYear"},
                    {"name": "format", "in": "query", "type": "string", "enum": ["csv", "pdf", "xlsx"]}
                ],
                "responses": {
                    "200": {"description": "File attachment"}
                }
            }
        },
        "/rankings/institutions": {
            "get": {
                "tags": ["Rankings"],
                "summary": "Institution ranking by mean global score",
                "parameters": [
                    {"$ref": "#/parameters/phase"},
                    {"$ref": "#/parameters/gradeId"},
                    {"$ref": "#/parameters/jornada"},
                    {"$ref": "#/parameters/academicYear"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/GroupRankingEnvelope"}}
                }
            }
        },
        "/rankings/campuses": {
            "get": {
                "tags": ["Rankings"],
                "summary": "Campus ranking by mean global score",
                "parameters": [
                    {"$ref": "#/parameters/phase"},
                    {"$ref": "#/parameters/institutionId"},
                    {"$ref": "#/parameters/gradeId"},
                    {"$ref": "#/parameters/jornada"},
                    {"$ref": "#/parameters/academicYear"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/GroupRankingEnvelope"}}
                }
            }
        },
        "/rankings/refresh": {
            "post": {
                "tags": ["Rankings"],
                "summary": "Invalidate and recompute cached rankings",
                "parameters": [
                    {"name": "payload", "in": "body", "schema": {"$ref": "#/definitions/RefreshRankingsRequest"}}
                ],
                "responses": {
                    "202": {"description": "Accepted", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/averages": {
            "get": {
                "tags": ["Rankings"],
                "summary": "Average global score and per-subject averages",
                "parameters": [
                    {"$ref": "#/parameters/phase"},
                    {"$ref": "#/parameters/institutionId"},
                    {"$ref": "#/parameters/campusId"},
                    {"$ref": "#/parameters/gradeId"},
                    {"$ref": "#/parameters/jornada"},
                    {"$ref": "#/parameters/academicYear"}
                ],
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        },
        "/system/metrics": {
            "get": {
                "tags": ["System"],
                "summary": "Instrumentation snapshot",
                "responses": {
                    "200": {"description": "OK", "schema": {"$ref": "#/definitions/ResponseEnvelope"}}
                }
            }
        }
    },
    "definitions": {
        "SubjectScore": {
            "type": "object",
            "properties": {
                "subject": {"type": "string"},
                "best_percentage": {"type": "number"}
            }
        },
        "StudentScore": {
            "type": "object",
            "properties": {
                "studentId": {"type": "string"},
                "phase": {"type": "string"},
                "qualified": {"type": "boolean"},
                "globalScore": {"type": "number", "x-nullable": true},
                "maxScore": {"type": "number"},
                "subjects": {"type": "array", "items": {"$ref": "#/definitions/SubjectScore"}},
                "missingSubjects": {"type": "array", "items": {"type": "string"}},
                "totalAttemptCount": {"type": "integer"},
                "validAttemptCount": {"type": "integer"}
            }
        },
        "GroupRanking": {
            "type": "object",
            "properties": {
                "position": {"type": "integer"},
                "group_id": {"type": "string"},
                "name": {"type": "string"},
                "average": {"type": "number"},
                "qualifying_students": {"type": "integer"},
                "population": {"type": "integer"}
            }
        },
        "RefreshRankingsRequest": {
            "type": "object",
            "properties": {
                "phases": {"type": "array", "items": {"type": "string"}},
                "institutionId": {"type": "string"}
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
        },
        "StudentScoreEnvelope": {
            "type": "object",
            "properties": {
                "data": {"$ref": "#/definitions/StudentScore"},
                "meta": {"type": "object"}
            }
        },
        "GroupRankingEnvelope": {
            "type": "object",
            "properties": {
                "data": {"type": "array", "items": {"$ref": "#/definitions/GroupRanking"}},
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
