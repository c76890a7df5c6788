package http

import (
	"context"
	_ "embed"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/getkin/kin-openapi/openapi3"
	"github.com/getkin/kin-openapi/openapi3filter"
	"github.com/getkin/kin-openapi/routers"
	"github.com/getkin/kin-openapi/routers/legacy"
	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
)

//go:embed openapi.yaml
var rawSpec []byte

var defaultContract = sync.OnceValues(func() (*Contract, error) {
	return LoadContract(context.Background())
})

// Contract is the parsed API description served at /openapi.yaml and used
// to check incoming requests.
type Contract struct {
	Doc    *openapi3.T
	router routers.Router
}

// LoadContract parses and validates the embedded API description.
func LoadContract(ctx context.Context) (*Contract, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(rawSpec)
	if err != nil {
		return nil, fmt.Errorf("load openapi contract: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("invalid openapi contract: %w", err)
	}
	router, err := legacy.NewRouter(doc)
	if err != nil {
		return nil, fmt.Errorf("route openapi contract: %w", err)
	}
	return &Contract{Doc: doc, router: router}, nil
}

// Check validates r against the operation it targets: path and query
// parameters, and the JSON body. Requests the contract does not describe
// pass unchecked and are left to the router.
func (c *Contract) Check(r *http.Request) error {
	route, params, err := c.router.FindRoute(r)
	if err != nil {
		var routeErr *routers.RouteError
		if errors.As(err, &routeErr) {
			return nil
		}
		return err
	}
	return openapi3filter.ValidateRequest(r.Context(), &openapi3filter.RequestValidationInput{
		Request:    r,
		PathParams: params,
		Route:      route,
		Options: &openapi3filter.Options{
			AuthenticationFunc: openapi3filter.NoopAuthenticationFunc,
			MultiError:         false,
		},
	})
}

// contractMiddleware answers 400 to requests that break the contract.
func (s *Server) contractMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := s.contract.Check(r); err != nil {
			s.logger.Warn("request rejected by contract", "method", r.Method, "path", r.URL.Path, "err", err)
			s.writeJSON(w, http.StatusBadRequest, ErrorResponse{Error: contractMessage(err)})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func contractMessage(err error) string {
	var reqErr *openapi3filter.RequestError
	if errors.As(err, &reqErr) {
		return "invalid request: " + reqErr.Error()
	}
	return "invalid request: " + err.Error()
}

// pathParam binds a path parameter the way generated chi servers do,
// unescaping it.
func pathParam(r *http.Request, name string) (string, error) {
	var out string
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &out,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return "", fmt.Errorf("invalid format for parameter %s: %w", name, err)
	}
	return out, nil
}

// GetOpenAPI handles the GET /openapi.yaml request.
func (s *Server) GetOpenAPI(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/yaml")
	if _, err := w.Write(rawSpec); err != nil {
		s.logger.Error("write openapi contract", "err", err)
	}
}

// GetSwagger handles the GET /swagger request.
func (s *Server) GetSwagger(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html")
	_, _ = w.Write([]byte(swaggerHTML))
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Tendril API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`
