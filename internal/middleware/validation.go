package middleware

import (
	"bytes"
	"embed"
	"io"
	"net/http"
	"strings"
	"sync"

	"linguaread/internal/observability"
	contextutils "linguaread/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/xeipuuv/gojsonschema"
)

//go:embed schemas/*.json
var schemaFiles embed.FS

// routeSchemas maps "METHOD path" to the embedded schema file validating its body
var routeSchemas = map[string]string{
	"POST /v1/exercises/submit": "schemas/submit_exercise.json",
	"POST /v1/progress/batch":   "schemas/progress_batch.json",
}

var (
	compiledSchemas     map[string]*gojsonschema.Schema
	compileSchemasOnce  sync.Once
	compileSchemasError error
)

// loadSchemas compiles the embedded schemas once per process
func loadSchemas() (map[string]*gojsonschema.Schema, error) {
	compileSchemasOnce.Do(func() {
		compiledSchemas = make(map[string]*gojsonschema.Schema, len(routeSchemas))
		for route, file := range routeSchemas {
			data, err := schemaFiles.ReadFile(file)
			if err != nil {
				compileSchemasError = contextutils.WrapErrorf(err, "failed to read embedded schema %s", file)
				return
			}
			schema, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(data))
			if err != nil {
				compileSchemasError = contextutils.WrapErrorf(err, "failed to compile schema %s", file)
				return
			}
			compiledSchemas[route] = schema
		}
	})
	return compiledSchemas, compileSchemasError
}

// RequestValidationMiddleware validates JSON request bodies against the
// embedded schema registered for the route. Routes without a schema pass
// through untouched. The body is restored for the downstream handler.
func RequestValidationMiddleware(logger *observability.Logger) gin.HandlerFunc {
	schemas, err := loadSchemas()
	if err != nil {
		// Schemas are embedded; a compile failure is a build defect
		panic(err)
	}

	return func(c *gin.Context) {
		schema, ok := schemas[c.Request.Method+" "+c.FullPath()]
		if !ok {
			c.Next()
			return
		}

		ctx, span := observability.TraceHandlerFunction(c.Request.Context(), "request_validation")
		defer span.End()

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			logger.Warn(ctx, "Failed to read request body", map[string]interface{}{
				"method": c.Request.Method,
				"path":   c.Request.URL.Path,
			})
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Invalid request body",
				"code":  string(contextutils.ErrorCodeInvalidInput),
			})
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		result, err := schema.Validate(gojsonschema.NewBytesLoader(body))
		if err != nil {
			// Not valid JSON at all
			c.JSON(http.StatusBadRequest, gin.H{
				"error": "Request body must be valid JSON",
				"code":  string(contextutils.ErrorCodeInvalidInput),
			})
			c.Abort()
			return
		}

		if !result.Valid() {
			details := make([]string, 0, len(result.Errors()))
			for _, validationErr := range result.Errors() {
				details = append(details, validationErr.String())
			}
			logger.Warn(ctx, "Request body failed schema validation", map[string]interface{}{
				"method": c.Request.Method,
				"path":   c.Request.URL.Path,
				"errors": strings.Join(details, "; "),
			})
			c.JSON(http.StatusBadRequest, gin.H{
				"error":   "Request body failed validation",
				"code":    string(contextutils.ErrorCodeValidationFailed),
				"details": details,
			})
			c.Abort()
			return
		}

		c.Next()
	}
}
