package openapi

import (
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

type Route struct {
	document  *Document
	method    string
	path      string
	operation *openapi3.Operation
}

func (r *Route) Summary(summary string) *Route {
	r.operation.Summary = summary
	return r
}

func (r *Route) Description(description string) *Route {
	r.operation.Description = description
	return r
}

func (r *Route) OperationID(id string) *Route {
	r.operation.OperationID = id
	return r
}

func (r *Route) Tags(tags ...string) *Route {
	r.operation.Tags = append(r.operation.Tags, tags...)
	return r
}

func (r *Route) QueryParam(name, description string, required bool) *Route {
	param := openapi3.NewQueryParameter(name).WithSchema(openapi3.NewStringSchema())
	param.Description = description
	param.Required = required
	r.operation.AddParameter(param)
	return r
}

func (r *Route) Body(example any, description string) *Route {
	r.operation.RequestBody = &openapi3.RequestBodyRef{
		Value: openapi3.NewRequestBody().
			WithDescription(description).
			WithRequired(true).
			WithJSONSchemaRef(r.document.schemaFor(example)),
	}
	return r
}

// Success documents an enveloped success response carrying data. A nil data
// example documents an envelope without a data member.
func (r *Route) Success(statusCode int, data any, description string) *Route {
	envelope := envelopeSchema(true)
	if data != nil {
		envelope.Properties["data"] = r.document.schemaFor(data)
	}
	r.operation.AddResponse(statusCode, openapi3.NewResponse().
		WithDescription(description).
		WithJSONSchema(envelope))
	return r
}

// Failure documents an enveloped error response.
func (r *Route) Failure(statusCode int, description string) *Route {
	envelope := envelopeSchema(false)
	envelope.Properties["error"] = (&openapi3.Schema{
		Description: "Field errors for rejected input, otherwise omitted",
	}).NewRef()
	r.operation.AddResponse(statusCode, openapi3.NewResponse().
		WithDescription(description).
		WithJSONSchema(envelope))
	return r
}

func (r *Route) Redirect(description string) *Route {
	response := openapi3.NewResponse().WithDescription(description)
	response.Headers = openapi3.Headers{
		"Location": &openapi3.HeaderRef{Value: &openapi3.Header{Parameter: openapi3.Parameter{
			Schema: openapi3.NewStringSchema().NewRef(),
		}}},
	}
	r.operation.AddResponse(302, response)
	return r
}

func (r *Route) Security(schemes ...string) *Route {
	if r.operation.Security == nil {
		r.operation.Security = openapi3.NewSecurityRequirements()
	}
	for _, scheme := range schemes {
		r.operation.Security.With(openapi3.NewSecurityRequirement().Authenticate(scheme))
	}
	return r
}

func (r *Route) Build() {
	if r.operation.OperationID == "" {
		r.operation.OperationID = operationID(r.method, r.path)
	}
	r.document.addOperation(r.method, r.path, r.operation)
}

func envelopeSchema(success bool) *openapi3.Schema {
	schema := openapi3.NewObjectSchema()
	schema.Properties = openapi3.Schemas{
		"success": openapi3.NewBoolSchema().WithDefault(success).NewRef(),
		"message": openapi3.NewStringSchema().NewRef(),
	}
	schema.Required = []string{"success", "message"}
	return schema
}

// operationID derives an id such as "postAuthForgotPassword" from the route.
func operationID(method, path string) string {
	var b strings.Builder
	b.WriteString(strings.ToLower(method))

	words := strings.FieldsFunc(path, func(r rune) bool {
		return r == '/' || r == '-' || r == '_' || r == '.' || r == ':'
	})
	for _, word := range words {
		b.WriteString(strings.ToUpper(word[:1]))
		b.WriteString(word[1:])
	}
	return b.String()
}
