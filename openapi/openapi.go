package openapi

import (
	"context"
	"encoding/json"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
	"gopkg.in/yaml.v3"
)

// Document collects the operations of the HTTP surface into an OpenAPI 3
// description. Request and response schemas are derived from Go types: json
// tags name the properties and validate tags supply constraints.
type Document struct {
	spec    *openapi3.T
	mu      sync.RWMutex
	schemas map[reflect.Type]string
}

func New(title, version string) *Document {
	return &Document{
		spec: &openapi3.T{
			OpenAPI: "3.0.3",
			Info: &openapi3.Info{
				Title:   title,
				Version: version,
			},
			Paths: openapi3.NewPaths(),
			Components: &openapi3.Components{
				Schemas:         make(openapi3.Schemas),
				SecuritySchemes: make(openapi3.SecuritySchemes),
			},
		},
		schemas: make(map[reflect.Type]string),
	}
}

func (d *Document) Description(desc string) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.spec.Info.Description = desc
	return d
}

func (d *Document) Server(url, description string) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.spec.Servers = append(d.spec.Servers, &openapi3.Server{
		URL:         url,
		Description: description,
	})
	return d
}

func (d *Document) Tag(name, description string) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.spec.Tags = append(d.spec.Tags, &openapi3.Tag{
		Name:        name,
		Description: description,
	})
	return d
}

func (d *Document) BearerAuth(name, description string) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.spec.Components.SecuritySchemes[name] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:         "http",
			Scheme:       "bearer",
			BearerFormat: "JWT",
			Description:  description,
		},
	}
	return d
}

func (d *Document) CookieAuth(name, cookieName, description string) *Document {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.spec.Components.SecuritySchemes[name] = &openapi3.SecuritySchemeRef{
		Value: &openapi3.SecurityScheme{
			Type:        "apiKey",
			Name:        cookieName,
			In:          "cookie",
			Description: description,
		},
	}
	return d
}

func (d *Document) Spec() *openapi3.T {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.spec
}

// Validate checks the document against the OpenAPI 3 rules.
func (d *Document) Validate(ctx context.Context) error {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.spec.Validate(ctx)
}

func (d *Document) JSON() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return json.MarshalIndent(d.spec, "", "  ")
}

func (d *Document) YAML() ([]byte, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	intermediate, err := d.spec.MarshalYAML()
	if err != nil {
		return nil, err
	}
	return yaml.Marshal(intermediate)
}

func (d *Document) JSONHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		data, err := d.JSON()
		if err != nil {
			return err
		}
		return c.JSONBlob(http.StatusOK, data)
	}
}

func (d *Document) YAMLHandler() echo.HandlerFunc {
	return func(c echo.Context) error {
		data, err := d.YAML()
		if err != nil {
			return err
		}
		return c.Blob(http.StatusOK, "application/yaml", data)
	}
}

func (d *Document) Route(method, path string) *Route {
	return &Route{
		document:  d,
		method:    method,
		path:      path,
		operation: &openapi3.Operation{Responses: openapi3.NewResponses()},
	}
}

func (d *Document) addOperation(method, path string, op *openapi3.Operation) {
	d.mu.Lock()
	defer d.mu.Unlock()

	openAPIPath := echoPathToOpenAPI(path)

	pathItem := d.spec.Paths.Find(openAPIPath)
	if pathItem == nil {
		pathItem = &openapi3.PathItem{}
		d.spec.Paths.Set(openAPIPath, pathItem)
	}
	pathItem.SetOperation(strings.ToUpper(method), op)
}

func echoPathToOpenAPI(path string) string {
	parts := strings.Split(path, "/")
	for i, part := range parts {
		if strings.HasPrefix(part, ":") {
			parts[i] = "{" + strings.TrimPrefix(part, ":") + "}"
		}
	}
	return strings.Join(parts, "/")
}

func (d *Document) schemaFor(example any) *openapi3.SchemaRef {
	d.mu.Lock()
	defer d.mu.Unlock()

	if example == nil {
		return openapi3.NewObjectSchema().NewRef()
	}
	return d.schemaFromType(reflect.TypeOf(example))
}

func (d *Document) schemaFromType(t reflect.Type) *openapi3.SchemaRef {
	if t.Kind() == reflect.Pointer {
		inner := d.schemaFromType(t.Elem())
		if inner.Ref != "" {
			return &openapi3.SchemaRef{Value: &openapi3.Schema{
				AllOf:    openapi3.SchemaRefs{inner},
				Nullable: true,
			}}
		}
		inner.Value.Nullable = true
		return inner
	}

	switch t.Kind() {
	case reflect.String:
		return openapi3.NewStringSchema().NewRef()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return openapi3.NewIntegerSchema().NewRef()
	case reflect.Float32, reflect.Float64:
		return openapi3.NewFloat64Schema().NewRef()
	case reflect.Bool:
		return openapi3.NewBoolSchema().NewRef()
	case reflect.Slice, reflect.Array:
		schema := openapi3.NewArraySchema()
		schema.Items = d.schemaFromType(t.Elem())
		return schema.NewRef()
	case reflect.Map:
		schema := openapi3.NewObjectSchema()
		schema.AdditionalProperties = openapi3.AdditionalProperties{Schema: d.schemaFromType(t.Elem())}
		return schema.NewRef()
	case reflect.Struct:
		return d.structSchema(t)
	default:
		return openapi3.NewObjectSchema().NewRef()
	}
}

// structSchema registers named structs as components and returns a resolved
// reference to them; anonymous structs are inlined.
func (d *Document) structSchema(t reflect.Type) *openapi3.SchemaRef {
	if t.PkgPath() == "time" && t.Name() == "Time" {
		return openapi3.NewDateTimeSchema().NewRef()
	}

	if t.Name() == "" {
		schema := openapi3.NewObjectSchema()
		d.fillStructSchema(schema, t)
		return schema.NewRef()
	}

	if name, ok := d.schemas[t]; ok {
		return openapi3.NewSchemaRef("#/components/schemas/"+name, d.spec.Components.Schemas[name].Value)
	}

	name := d.componentName(t)
	schema := openapi3.NewObjectSchema()
	d.schemas[t] = name
	d.spec.Components.Schemas[name] = schema.NewRef()
	d.fillStructSchema(schema, t)

	return openapi3.NewSchemaRef("#/components/schemas/"+name, schema)
}

func (d *Document) componentName(t reflect.Type) string {
	name := t.Name()
	if _, taken := d.spec.Components.Schemas[name]; !taken {
		return name
	}
	for suffix := 2; ; suffix++ {
		candidate := name + strconv.Itoa(suffix)
		if _, taken := d.spec.Components.Schemas[candidate]; !taken {
			return candidate
		}
	}
}

func (d *Document) fillStructSchema(schema *openapi3.Schema, t reflect.Type) {
	if schema.Properties == nil {
		schema.Properties = make(openapi3.Schemas)
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		if !field.IsExported() {
			continue
		}

		jsonTag := field.Tag.Get("json")
		if jsonTag == "-" {
			continue
		}

		if field.Anonymous && jsonTag == "" {
			embedded := field.Type
			if embedded.Kind() == reflect.Pointer {
				embedded = embedded.Elem()
			}
			if embedded.Kind() == reflect.Struct {
				d.fillStructSchema(schema, embedded)
				continue
			}
		}

		name := field.Name
		if tagName, _, _ := strings.Cut(jsonTag, ","); tagName != "" {
			name = tagName
		}

		prop := d.schemaFromType(field.Type)
		rules := parseValidateTag(field.Tag.Get("validate"))
		if prop.Ref == "" && prop.Value != nil {
			applyRules(prop.Value, rules)
			if doc := field.Tag.Get("doc"); doc != "" {
				prop.Value.Description = doc
			}
			if example := field.Tag.Get("example"); example != "" {
				prop.Value.Example = example
			}
		}
		schema.Properties[name] = prop

		if _, ok := rules["required"]; ok {
			schema.Required = append(schema.Required, name)
		}
	}
}

func parseValidateTag(tag string) map[string]string {
	rules := make(map[string]string)
	if tag == "" {
		return rules
	}
	for _, rule := range strings.Split(tag, ",") {
		key, value, _ := strings.Cut(strings.TrimSpace(rule), "=")
		rules[key] = value
	}
	return rules
}

func applyRules(schema *openapi3.Schema, rules map[string]string) {
	if _, ok := rules["email"]; ok {
		schema.Format = "email"
	}
	if _, ok := rules["url"]; ok {
		schema.Format = "uri"
	}
	if _, ok := rules["numeric"]; ok {
		schema.Pattern = "^[0-9]+$"
	}

	isString := schema.Type != nil && schema.Type.Is(openapi3.TypeString)
	if !isString {
		return
	}
	if value, ok := rules["min"]; ok {
		if n, err := strconv.ParseUint(value, 10, 64); err == nil {
			schema.MinLength = n
		}
	}
	if value, ok := rules["max"]; ok {
		if n, err := strconv.ParseUint(value, 10, 64); err == nil {
			schema.MaxLength = &n
		}
	}
	if value, ok := rules["len"]; ok {
		if n, err := strconv.ParseUint(value, 10, 64); err == nil {
			schema.MinLength = n
			schema.MaxLength = &n
		}
	}
}
