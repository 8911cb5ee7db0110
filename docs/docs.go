// Package docs provides Swagger documentation for the insurance lifecycle API.
package docs

import (
	"net/http"

	"github.com/swaggo/swag"
)

const docTemplate = `{
    "swagger": "2.0",
    "info": {
        "title": "{{.Title}}",
        "description": "{{escape .Description}}",
        "version": "{{.Version}}",
        "contact": {
            "name": "API Support",
            "url": "https://github.com/MrKriegler/insurance-lifecycle"
        },
        "license": {
            "name": "MIT"
        }
    },
    "host": "{{.Host}}",
    "basePath": "{{.BasePath}}",
    "schemes": [
        "http",
        "https"
    ],
    "consumes": [
        "application/json"
    ],
    "produces": [
        "application/json"
    ],
    "securityDefinitions": {
        "BearerAuth": {
            "type": "apiKey",
            "name": "Authorization",
            "in": "header",
            "description": "Bearer JWT; the subject is the user id"
        }
    },
    "paths": {
        "/packages": {
            "get": {
                "tags": [
                    "Packages"
                ],
                "summary": "List packages",
                "operationId": "listPackages",
                "responses": {
                    "200": {
                        "description": "Catalog",
                        "schema": {
                            "type": "array",
                            "items": {
                                "$ref": "#/definitions/Package"
                            }
                        }
                    },
                    "500": {
                        "description": "Internal error",
                        "schema": {
                            "$ref": "#/definitions/ProblemDetails"
                        }
                    }
                }
            }
        },
        "/packages/{package_id}": {
            "get": {
                "tags": [
                    "Packages"
                ],
                "summary": "Get a package",
                "operationId": "getPackage",
                "parameters": [
                    {
                        "name": "package_id",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Package id"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Package",
                        "schema": {
                            "$ref": "#/definitions/Package"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ProblemDetails"
                        }
                    }
                }
            }
        },
        "/quotations": {
            "post": {
                "tags": [
                    "Quotations"
                ],
                "summary": "Submit a quotation",
                "operationId": "submitQuotation",
                "description": "Prices the requested coverage. Anonymous callers receive 401 with the computed, unsaved quotation in the body.",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "X-Brand",
                        "in": "header",
                        "type": "string",
                        "required": false,
                        "description": "Storefront brand"
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/QuotationInput"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Stored quotation",
                        "schema": {
                            "$ref": "#/definitions/Quotation"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ProblemDetails"
                        }
                    },
                    "401": {
                        "description": "Sign in to save",
                        "schema": {
                            "$ref": "#/definitions/AnonymousQuotation"
                        }
                    },
                    "404": {
                        "description": "Unknown package",
                        "schema": {
                            "$ref": "#/definitions/ProblemDetails"
                        }
                    }
                }
            }
        },
        "/quotations/{quotation_id}": {
            "get": {
                "tags": [
                    "Quotations"
                ],
                "summary": "Get a quotation",
                "operationId": "getQuotation",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "quotation_id",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Quotation id"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Quotation",
                        "schema": {
                            "$ref": "#/definitions/Quotation"
                        }
                    },
                    "403": {
                        "description": "Not the owner",
                        "schema": {
                            "$ref": "#/definitions/ProblemDetails"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ProblemDetails"
                        }
                    }
                }
            }
        },
        "/quotations/{quotation_id}/order": {
            "post": {
                "tags": [
                    "Orders"
                ],
                "summary": "Order a quotation",
                "operationId": "createOrder",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "quotation_id",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Quotation id"
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Order",
                        "schema": {
                            "$ref": "#/definitions/Order"
                        }
                    },
                    "401": {
                        "description": "Anonymous",
                        "schema": {
                            "$ref": "#/definitions/ProblemDetails"
                        }
                    },
                    "403": {
                        "description": "Not the owner",
                        "schema": {
                            "$ref": "#/definitions/ProblemDetails"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ProblemDetails"
                        }
                    },
                    "409": {
                        "description": "Already ordered",
                        "schema": {
                            "$ref": "#/definitions/ProblemDetails"
                        }
                    }
                }
            }
        },
        "/orders": {
            "get": {
                "tags": [
                    "Orders"
                ],
                "summary": "List my orders",
                "operationId": "listOrders",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Orders, newest first",
                        "schema": {
                            "type": "array",
                            "items": {
                                "$ref": "#/definitions/Order"
                            }
                        }
                    },
                    "401": {
                        "description": "Anonymous",
                        "schema": {
                            "$ref": "#/definitions/ProblemDetails"
                        }
                    }
                }
            }
        },
        "/orders/{order_id}": {
            "get": {
                "tags": [
                    "Orders"
                ],
                "summary": "Get an order",
                "operationId": "getOrder",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "order_id",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Order id"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Order",
                        "schema": {
                            "$ref": "#/definitions/Order"
                        }
                    },
                    "403": {
                        "description": "Not the owner",
                        "schema": {
                            "$ref": "#/definitions/ProblemDetails"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ProblemDetails"
                        }
                    }
                }
            }
        },
        "/orders/{order_id}/payment": {
            "post": {
                "tags": [
                    "Orders"
                ],
                "summary": "Begin payment",
                "operationId": "beginPayment",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "description": "Assigns the correlation token the gateway echoes back. Repeated calls return the same token.",
                "parameters": [
                    {
                        "name": "order_id",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Order id"
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "required": false,
                        "schema": {
                            "type": "object",
                            "properties": {
                                "gateway_name": {
                                    "type": "string"
                                }
                            }
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Order with gateway token",
                        "schema": {
                            "$ref": "#/definitions/Order"
                        }
                    },
                    "403": {
                        "description": "Not the owner",
                        "schema": {
                            "$ref": "#/definitions/ProblemDetails"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ProblemDetails"
                        }
                    },
                    "409": {
                        "description": "Order no longer pending",
                        "schema": {
                            "$ref": "#/definitions/ProblemDetails"
                        }
                    }
                }
            }
        },
        "/payments/callback": {
            "post": {
                "tags": [
                    "Payments"
                ],
                "summary": "Payment gateway callback",
                "operationId": "paymentCallback",
                "description": "Unauthenticated. Accepts JSON or form-encoded fields. Replays are idempotent.",
                "consumes": [
                    "application/json",
                    "application/x-www-form-urlencoded"
                ],
                "parameters": [
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/GatewayCallback"
                        }
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Payment summary for machine callers, order otherwise",
                        "schema": {
                            "$ref": "#/definitions/PaymentSummary"
                        }
                    },
                    "400": {
                        "description": "Bad body",
                        "schema": {
                            "$ref": "#/definitions/ProblemDetails"
                        }
                    },
                    "404": {
                        "description": "Unknown token",
                        "schema": {
                            "$ref": "#/definitions/ProblemDetails"
                        }
                    },
                    "504": {
                        "description": "Store timeout, retry",
                        "schema": {
                            "$ref": "#/definitions/ProblemDetails"
                        }
                    }
                }
            }
        },
        "/policies/{policy_number}/claims": {
            "post": {
                "tags": [
                    "Claims"
                ],
                "summary": "File a claim",
                "operationId": "fileClaim",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "policy_number",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Policy number"
                    },
                    {
                        "name": "body",
                        "in": "body",
                        "required": true,
                        "schema": {
                            "$ref": "#/definitions/ClaimInput"
                        }
                    }
                ],
                "responses": {
                    "201": {
                        "description": "Claim",
                        "schema": {
                            "$ref": "#/definitions/Claim"
                        }
                    },
                    "400": {
                        "description": "Validation error",
                        "schema": {
                            "$ref": "#/definitions/ProblemDetails"
                        }
                    },
                    "403": {
                        "description": "Not the owner",
                        "schema": {
                            "$ref": "#/definitions/ProblemDetails"
                        }
                    },
                    "404": {
                        "description": "Unknown policy",
                        "schema": {
                            "$ref": "#/definitions/ProblemDetails"
                        }
                    }
                }
            }
        },
        "/claims": {
            "get": {
                "tags": [
                    "Claims"
                ],
                "summary": "List my claims",
                "operationId": "listClaims",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Claims",
                        "schema": {
                            "type": "array",
                            "items": {
                                "$ref": "#/definitions/Claim"
                            }
                        }
                    },
                    "401": {
                        "description": "Anonymous",
                        "schema": {
                            "$ref": "#/definitions/ProblemDetails"
                        }
                    }
                }
            }
        },
        "/claims/{claim_id}": {
            "get": {
                "tags": [
                    "Claims"
                ],
                "summary": "Get a claim",
                "operationId": "getClaim",
                "security": [
                    {
                        "BearerAuth": []
                    }
                ],
                "parameters": [
                    {
                        "name": "claim_id",
                        "in": "path",
                        "required": true,
                        "type": "string",
                        "description": "Claim id"
                    }
                ],
                "responses": {
                    "200": {
                        "description": "Claim",
                        "schema": {
                            "$ref": "#/definitions/Claim"
                        }
                    },
                    "403": {
                        "description": "Not the owner",
                        "schema": {
                            "$ref": "#/definitions/ProblemDetails"
                        }
                    },
                    "404": {
                        "description": "Not found",
                        "schema": {
                            "$ref": "#/definitions/ProblemDetails"
                        }
                    }
                }
            }
        }
    },
    "definitions": {
        "Package": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "slug": {
                    "type": "string"
                },
                "name": {
                    "type": "string"
                },
                "category_id": {
                    "type": "string"
                },
                "unit_size": {
                    "type": "string",
                    "example": "500"
                },
                "rate_per_unit": {
                    "type": "string",
                    "example": "500"
                },
                "min_coverage": {
                    "type": "string",
                    "example": "500"
                },
                "vat_rate_percent": {
                    "type": "string",
                    "example": "500"
                },
                "discount_rate_percent": {
                    "type": "string",
                    "example": "500"
                },
                "partner_code": {
                    "type": "string"
                },
                "insurance_company_code": {
                    "type": "string"
                },
                "channel": {
                    "type": "string",
                    "enum": [
                        "b2b",
                        "b2c"
                    ]
                }
            }
        },
        "Contact": {
            "type": "object",
            "properties": {
                "name": {
                    "type": "string"
                },
                "email": {
                    "type": "string"
                },
                "phone": {
                    "type": "string"
                }
            },
            "required": [
                "name",
                "email"
            ]
        },
        "Address": {
            "type": "object",
            "properties": {
                "line1": {
                    "type": "string"
                },
                "line2": {
                    "type": "string"
                },
                "city": {
                    "type": "string"
                },
                "region": {
                    "type": "string"
                },
                "postal_code": {
                    "type": "string"
                },
                "country": {
                    "type": "string"
                }
            }
        },
        "QuotationInput": {
            "type": "object",
            "properties": {
                "package_id": {
                    "type": "string"
                },
                "contact": {
                    "$ref": "#/definitions/Contact"
                },
                "address": {
                    "$ref": "#/definitions/Address"
                },
                "coverage_amount": {
                    "type": "string",
                    "example": "500"
                },
                "documents": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                }
            },
            "required": [
                "package_id",
                "contact",
                "coverage_amount"
            ]
        },
        "Quotation": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "package_id": {
                    "type": "string"
                },
                "owner": {
                    "type": "string"
                },
                "brand": {
                    "type": "string"
                },
                "reference": {
                    "type": "string",
                    "example": "QUO-20260115-7QK2ZD"
                },
                "contact": {
                    "$ref": "#/definitions/Contact"
                },
                "address": {
                    "$ref": "#/definitions/Address"
                },
                "coverage_amount": {
                    "type": "string",
                    "example": "500"
                },
                "premium": {
                    "type": "string",
                    "example": "500"
                },
                "documents": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "status": {
                    "type": "string",
                    "enum": [
                        "pending",
                        "ordered"
                    ]
                },
                "created_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "updated_at": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "AnonymousQuotation": {
            "type": "object",
            "properties": {
                "type": {
                    "type": "string"
                },
                "title": {
                    "type": "string"
                },
                "status": {
                    "type": "integer"
                },
                "detail": {
                    "type": "string"
                },
                "quotation": {
                    "$ref": "#/definitions/Quotation"
                }
            }
        },
        "Order": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "quotation_id": {
                    "type": "string"
                },
                "reference": {
                    "type": "string"
                },
                "package_id": {
                    "type": "string"
                },
                "owner": {
                    "type": "string"
                },
                "brand": {
                    "type": "string"
                },
                "contact": {
                    "$ref": "#/definitions/Contact"
                },
                "address": {
                    "$ref": "#/definitions/Address"
                },
                "coverage_amount": {
                    "type": "string",
                    "example": "500"
                },
                "premium": {
                    "type": "string",
                    "example": "500"
                },
                "discount": {
                    "type": "string",
                    "example": "500"
                },
                "vat": {
                    "type": "string",
                    "example": "500"
                },
                "net": {
                    "type": "string",
                    "example": "500"
                },
                "final_premium": {
                    "type": "string",
                    "example": "500"
                },
                "gateway_token": {
                    "type": "string"
                },
                "gateway_name": {
                    "type": "string"
                },
                "gateway_status": {
                    "type": "string"
                },
                "gateway_response": {
                    "type": "string"
                },
                "payment_reference": {
                    "type": "string"
                },
                "policy_number": {
                    "type": "string"
                },
                "policy_start_date": {
                    "type": "string",
                    "format": "date-time"
                },
                "policy_end_date": {
                    "type": "string",
                    "format": "date-time"
                },
                "used_coverage": {
                    "type": "string",
                    "example": "500"
                },
                "status": {
                    "type": "string",
                    "enum": [
                        "pending",
                        "completed",
                        "rejected"
                    ]
                },
                "created_at": {
                    "type": "string",
                    "format": "date-time"
                },
                "updated_at": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "GatewayCallback": {
            "type": "object",
            "properties": {
                "correlation_token": {
                    "type": "string"
                },
                "gateway_status": {
                    "type": "string",
                    "example": "Complete"
                },
                "gateway_response": {
                    "type": "string",
                    "example": "https://gateway.example.com/return?paymentId=PAY-1"
                },
                "gateway_name": {
                    "type": "string"
                },
                "machine": {
                    "type": "boolean"
                }
            },
            "required": [
                "correlation_token",
                "gateway_status"
            ]
        },
        "PaymentSummary": {
            "type": "object",
            "properties": {
                "order_id": {
                    "type": "string"
                },
                "reference": {
                    "type": "string"
                },
                "status": {
                    "type": "string"
                },
                "gateway_status": {
                    "type": "string"
                },
                "payment_reference": {
                    "type": "string"
                },
                "final_premium": {
                    "type": "string",
                    "example": "500"
                },
                "policy_number": {
                    "type": "string"
                },
                "policy_start_date": {
                    "type": "string",
                    "format": "date-time"
                },
                "policy_end_date": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "Incident": {
            "type": "object",
            "properties": {
                "date": {
                    "type": "string",
                    "example": "2026-02-01"
                },
                "time": {
                    "type": "string",
                    "example": "14:30"
                },
                "location": {
                    "type": "string"
                },
                "description": {
                    "type": "string"
                }
            },
            "required": [
                "date",
                "time",
                "location",
                "description"
            ]
        },
        "ClaimFlags": {
            "type": "object",
            "properties": {
                "police_report_filed": {
                    "type": "boolean"
                },
                "third_party_involved": {
                    "type": "boolean"
                },
                "witnesses_present": {
                    "type": "boolean"
                }
            }
        },
        "ClaimInput": {
            "type": "object",
            "properties": {
                "incident": {
                    "$ref": "#/definitions/Incident"
                },
                "flags": {
                    "$ref": "#/definitions/ClaimFlags"
                },
                "claimed_amount": {
                    "type": "string",
                    "example": "500"
                },
                "documents": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                }
            },
            "required": [
                "incident",
                "claimed_amount"
            ]
        },
        "Claim": {
            "type": "object",
            "properties": {
                "id": {
                    "type": "string"
                },
                "policy_number": {
                    "type": "string"
                },
                "order_id": {
                    "type": "string"
                },
                "reference": {
                    "type": "string"
                },
                "incident": {
                    "$ref": "#/definitions/Incident"
                },
                "flags": {
                    "$ref": "#/definitions/ClaimFlags"
                },
                "claimed_amount": {
                    "type": "string",
                    "example": "500"
                },
                "documents": {
                    "type": "array",
                    "items": {
                        "type": "string"
                    }
                },
                "status": {
                    "type": "string",
                    "enum": [
                        "pending",
                        "approved",
                        "rejected"
                    ]
                },
                "status_reason": {
                    "type": "string"
                },
                "created_at": {
                    "type": "string",
                    "format": "date-time"
                }
            }
        },
        "FieldError": {
            "type": "object",
            "properties": {
                "field": {
                    "type": "string"
                },
                "reason": {
                    "type": "string"
                }
            }
        },
        "ProblemDetails": {
            "type": "object",
            "description": "RFC 7807 Problem Details",
            "properties": {
                "type": {
                    "type": "string",
                    "example": "about:blank"
                },
                "title": {
                    "type": "string",
                    "example": "Not Found"
                },
                "status": {
                    "type": "integer",
                    "example": 404
                },
                "detail": {
                    "type": "string",
                    "example": "order not found"
                },
                "errors": {
                    "type": "array",
                    "items": {
                        "$ref": "#/definitions/FieldError"
                    }
                }
            }
        }
    },
    "tags": [
        {
            "name": "Packages",
            "description": "Coverage packages and their rates"
        },
        {
            "name": "Quotations",
            "description": "Priced, non-binding requests"
        },
        {
            "name": "Orders",
            "description": "Committed quotations awaiting or past payment"
        },
        {
            "name": "Payments",
            "description": "Gateway callbacks"
        },
        {
            "name": "Claims",
            "description": "Claims against issued policies"
        }
    ]
}`

// SwaggerInfo holds exported Swagger Info so clients can modify it
var SwaggerInfo = &swag.Spec{
	Version:          "1.0.0",
	Host:             "localhost:8080",
	BasePath:         "/api/v1",
	Schemes:          []string{"http", "https"},
	Title:            "Insurance Lifecycle API",
	Description:      "Quotation, order, payment reconciliation, policy issuance and claims API",
	InfoInstanceName: "swagger",
	SwaggerTemplate:  docTemplate,
	LeftDelim:        "{{",
	RightDelim:       "}}",
}

func init() {
	swag.Register(SwaggerInfo.InstanceName(), SwaggerInfo)
}

// Handler serves the rendered document as JSON.
func Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
		if err != nil {
			http.Error(w, "swagger doc unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(doc))
	})
}
