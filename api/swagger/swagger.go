package swagger

import "github.com/swaggo/swag"

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "Course Scheduler API",
        "description": "Course grouping selection, conflict detection and schedule export for the student dashboard.",
        "version": "1.0.0"
    },
    "basePath": "/api/v1",
    "schemes": [
        "http",
        "https"
    ],
    "tags": [
        {
            "name": "Scheduler",
            "description": "Per-student course grouping selection"
        },
        {
            "name": "Export",
            "description": "Selected schedule downloads"
        },
        {
            "name": "Observability",
            "description": "Runtime metrics"
        }
    ],
    "paths": {
        "/scheduler/students/{studentId}/sessions": {
            "post": {
                "tags": [
                    "Scheduler"
                ],
                "summary": "Open a scheduler session for a student",
                "parameters": [
                    {
                        "name": "studentId",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Student ID"
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Created",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "403": {
                        "description": "Forbidden",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "502": {
                        "description": "Backend unavailable",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/scheduler/sessions/{sessionId}": {
            "get": {
                "tags": [
                    "Scheduler"
                ],
                "summary": "Get a scheduler session",
                "parameters": [
                    {
                        "name": "sessionId",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Session ID"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            },
            "delete": {
                "tags": [
                    "Scheduler"
                ],
                "summary": "Close a scheduler session",
                "parameters": [
                    {
                        "name": "sessionId",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Session ID"
                    }
                ],
                "responses": {
                    "204": {
                        "description": "No content"
                    }
                }
            }
        },
        "/scheduler/sessions/{sessionId}/courses/{courseCode}/toggle": {
            "post": {
                "tags": [
                    "Scheduler"
                ],
                "summary": "Open or close the grouping dropdown of a course",
                "parameters": [
                    {
                        "name": "sessionId",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Session ID"
                    },
                    {
                        "name": "courseCode",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Course code"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/scheduler/sessions/{sessionId}/courses/{courseCode}/grouping": {
            "put": {
                "tags": [
                    "Scheduler"
                ],
                "summary": "Choose a grouping for a course",
                "parameters": [
                    {
                        "name": "sessionId",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Session ID"
                    },
                    {
                        "name": "courseCode",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Course code"
                    },
                    {
                        "name": "payload",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/SelectGroupingRequest"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "400": {
                        "description": "Invalid grouping",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "409": {
                        "description": "Groupings still loading",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/scheduler/sessions/{sessionId}/courses/{courseCode}": {
            "delete": {
                "tags": [
                    "Scheduler"
                ],
                "summary": "Clear the grouping of a course",
                "parameters": [
                    {
                        "name": "sessionId",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Session ID"
                    },
                    {
                        "name": "courseCode",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Course code"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/scheduler/sessions/{sessionId}/conflicts": {
            "get": {
                "tags": [
                    "Scheduler"
                ],
                "summary": "List meeting conflicts between selected courses",
                "parameters": [
                    {
                        "name": "sessionId",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Session ID"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/scheduler/sessions/{sessionId}/calendar": {
            "get": {
                "tags": [
                    "Scheduler"
                ],
                "summary": "Weekly calendar of the selected schedule",
                "parameters": [
                    {
                        "name": "sessionId",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Session ID"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/scheduler/sessions/{sessionId}/save": {
            "post": {
                "tags": [
                    "Scheduler"
                ],
                "summary": "Persist the selected groupings",
                "parameters": [
                    {
                        "name": "sessionId",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Session ID"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "412": {
                        "description": "A schedule is still loading",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "502": {
                        "description": "Backend unavailable",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/scheduler/sessions/{sessionId}/mark-done": {
            "post": {
                "tags": [
                    "Scheduler"
                ],
                "summary": "Flip the student's completion flag",
                "parameters": [
                    {
                        "name": "sessionId",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Session ID"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "502": {
                        "description": "Backend unavailable",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/scheduler/sessions/{sessionId}/export": {
            "get": {
                "tags": [
                    "Export"
                ],
                "summary": "Export the selected schedule",
                "produces": [
                    "application/octet-stream"
                ],
                "parameters": [
                    {
                        "name": "sessionId",
                        "in": "path",
                        "type": "string",
                        "required": true,
                        "description": "Session ID"
                    },
                    {
                        "name": "format",
                        "in": "query",
                        "type": "string",
                        "required": true,
                        "description": "xlsx, csv, pdf or ics"
                    },
                    {
                        "name": "term_start",
                        "in": "query",
                        "type": "string",
                        "required": false,
                        "description": "First day of term (YYYY-MM-DD), ics only"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "File"
                    },
                    "400": {
                        "description": "Invalid query",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    },
                    "412": {
                        "description": "A schedule is still loading",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        },
        "/metrics/summary": {
            "get": {
                "tags": [
                    "Observability"
                ],
                "summary": "Summarised runtime metrics (admin)",
                "responses": {
                    "200": {
                        "description": "OK",
                        "schema": {
                            "$ref": "#/definitions/ResponseEnvelope"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "SelectGroupingRequest": {
            "type": "object",
            "required": [
                "grouping_id"
            ],
            "properties": {
                "grouping_id": {
                    "type": "string"
                }
            }
        },
        "APIError": {
            "type": "object",
            "properties": {
                "code": {
                    "type": "string"
                },
                "message": {
                    "type": "string"
                },
                "status": {
                    "type": "integer"
                }
            }
        },
        "ResponseEnvelope": {
            "type": "object",
            "properties": {
                "data": {
                    "type": "object"
                },
                "error": {
                    "$ref": "#/definitions/APIError"
                },
                "meta": {
                    "type": "object"
                }
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
