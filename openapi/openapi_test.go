package openapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

type signupBody struct {
	Name     *string `json:"name,omitempty"`
	Email    string  `json:"email" validate:"required,email" example:"a@x.com"`
	Password string  `json:"password" validate:"required,min=6"`
	OTP      string  `json:"otp" validate:"required,len=6,numeric"`
	Image    string  `json:"image,omitempty" validate:"omitempty,url"`
	Secret   string  `json:"-"`
	internal string
}

type profile struct {
	ID            string     `json:"id"`
	EmailVerified *time.Time `json:"emailVerified"`
	Friends       []profile  `json:"friends,omitempty"`
}

func newTestDocument() *Document {
	doc := New("Test API", "1.0.0").
		Description("for tests").
		Server("http://localhost:8080", "local").
		Tag("auth", "Authentication").
		BearerAuth("bearerAuth", "access token").
		CookieAuth("sessionCookie", "session", "session cookie")

	doc.Route(http.MethodPost, "/auth/signup").
		Summary("Sign up").
		Tags("auth").
		Body(signupBody{}, "signup payload").
		Success(http.StatusCreated, profile{}, "created").
		Failure(http.StatusBadRequest, "invalid input").
		Build()

	doc.Route(http.MethodGet, "/user/me").
		Tags("user").
		Security("bearerAuth", "sessionCookie").
		Success(http.StatusOK, &profile{}, "current user").
		Failure(http.StatusUnauthorized, "not signed in").
		Build()

	doc.Route(http.MethodGet, "/auth/oauth/google/callback").
		QueryParam("code", "authorization code", true).
		Redirect("back to the app").
		Build()

	return doc
}

func TestDocument_Validates(t *testing.T) {
	doc := newTestDocument()

	require.NoError(t, doc.Validate(context.Background()))
}

func TestDocument_Schemas(t *testing.T) {
	doc := newTestDocument()
	spec := doc.Spec()

	signup := spec.Paths.Find("/auth/signup").Post
	require.NotNil(t, signup)
	assert.Equal(t, "postAuthSignup", signup.OperationID)

	body := signup.RequestBody.Value.Content.Get("application/json").Schema
	assert.Equal(t, "#/components/schemas/signupBody", body.Ref)

	schema := spec.Components.Schemas["signupBody"].Value
	assert.ElementsMatch(t, []string{"email", "password", "otp"}, schema.Required)
	assert.NotContains(t, schema.Properties, "Secret")
	assert.NotContains(t, schema.Properties, "-")
	assert.NotContains(t, schema.Properties, "internal")

	assert.Equal(t, "email", schema.Properties["email"].Value.Format)
	assert.Equal(t, "a@x.com", schema.Properties["email"].Value.Example)
	assert.Equal(t, uint64(6), schema.Properties["password"].Value.MinLength)
	assert.Equal(t, uint64(6), schema.Properties["otp"].Value.MinLength)
	require.NotNil(t, schema.Properties["otp"].Value.MaxLength)
	assert.Equal(t, uint64(6), *schema.Properties["otp"].Value.MaxLength)
	assert.Equal(t, "^[0-9]+$", schema.Properties["otp"].Value.Pattern)
	assert.Equal(t, "uri", schema.Properties["image"].Value.Format)
	assert.True(t, schema.Properties["name"].Value.Nullable)

	created := signup.Responses.Status(http.StatusCreated).Value
	envelope := created.Content.Get("application/json").Schema.Value
	assert.ElementsMatch(t, []string{"success", "message"}, envelope.Required)
	assert.Equal(t, "#/components/schemas/profile", envelope.Properties["data"].Ref)

	profileSchema := spec.Components.Schemas["profile"].Value
	assert.Equal(t, "date-time", profileSchema.Properties["emailVerified"].Value.Format)
	assert.True(t, profileSchema.Properties["emailVerified"].Value.Nullable)
	assert.Equal(t, "#/components/schemas/profile", profileSchema.Properties["friends"].Value.Items.Ref)

	failure := signup.Responses.Status(http.StatusBadRequest).Value
	assert.Contains(t, failure.Content.Get("application/json").Schema.Value.Properties, "error")
}

func TestDocument_Security(t *testing.T) {
	spec := newTestDocument().Spec()

	me := spec.Paths.Find("/user/me").Get
	require.NotNil(t, me.Security)
	assert.Len(t, *me.Security, 2)
	assert.Contains(t, spec.Components.SecuritySchemes, "bearerAuth")
	assert.Equal(t, "cookie", spec.Components.SecuritySchemes["sessionCookie"].Value.In)

	callback := spec.Paths.Find("/auth/oauth/google/callback").Get
	assert.NotNil(t, callback.Responses.Status(http.StatusFound))
	assert.Equal(t, "code", callback.Parameters[0].Value.Name)
}

func TestDocument_Handlers(t *testing.T) {
	doc := newTestDocument()
	e := echo.New()
	e.GET("/openapi.json", doc.JSONHandler())
	e.GET("/openapi.yaml", doc.YAMLHandler())

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.json", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	loaded, err := openapi3.NewLoader().LoadFromData(rec.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "Test API", loaded.Info.Title)
	assert.NotNil(t, loaded.Paths.Find("/auth/signup"))

	rec = httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/openapi.yaml", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/yaml", rec.Header().Get(echo.HeaderContentType))

	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal(rec.Body.Bytes(), &parsed))
	assert.Equal(t, "3.0.3", parsed["openapi"])
}

func TestDocument_NameCollision(t *testing.T) {
	type profile struct {
		Nickname string `json:"nickname"`
	}

	doc := newTestDocument()
	doc.Route(http.MethodGet, "/nicknames").Success(http.StatusOK, profile{}, "local profile").Build()

	schemas := doc.Spec().Components.Schemas
	require.Contains(t, schemas, "profile2")
	assert.Contains(t, schemas["profile2"].Value.Properties, "nickname")
	assert.Contains(t, schemas["profile"].Value.Properties, "id")

	raw, err := doc.JSON()
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, json.Unmarshal(raw, &out))
	require.NoError(t, doc.Validate(context.Background()))
}

func TestEchoPathToOpenAPI(t *testing.T) {
	assert.Equal(t, "/users/{id}/accounts/{provider}", echoPathToOpenAPI("/users/:id/accounts/:provider"))
	assert.Equal(t, "/auth/login", echoPathToOpenAPI("/auth/login"))
}

func TestOperationID(t *testing.T) {
	assert.Equal(t, "postAuthForgotPassword", operationID(http.MethodPost, "/auth/forgot-password"))
	assert.Equal(t, "getOpenapiJson", operationID(http.MethodGet, "/openapi.json"))
	assert.Equal(t, "get", operationID(http.MethodGet, "/"))
}
