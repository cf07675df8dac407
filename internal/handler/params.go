package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/tripline/internal/domain"
	"github.com/pkordes/tripline/internal/timeline"
)

// pathUUID binds the uuid path parameter name.
func pathUUID(r *http.Request, name string) (openapi_types.UUID, error) {
	var id openapi_types.UUID
	err := runtime.BindStyledParameterWithOptions("simple", name, chi.URLParam(r, name), &id,
		runtime.BindStyledParameterOptions{ParamLocation: runtime.ParamLocationPath, Explode: false, Required: true})
	if err != nil {
		return id, fmt.Errorf("%w: invalid format for parameter %s", domain.ErrValidation, name)
	}
	return id, nil
}

// queryInt binds an optional integer query parameter.
func queryInt(r *http.Request, name string) (*int, error) {
	var v *int
	if err := runtime.BindQueryParameter("form", true, false, name, r.URL.Query(), &v); err != nil {
		return nil, fmt.Errorf("%w: invalid format for parameter %s", domain.ErrValidation, name)
	}
	return v, nil
}

// queryMode binds the optional mode query parameter; absent means locked.
func queryMode(r *http.Request) (timeline.Mode, error) {
	var s *string
	if err := runtime.BindQueryParameter("form", true, false, "mode", r.URL.Query(), &s); err != nil {
		return "", fmt.Errorf("%w: invalid format for parameter mode", domain.ErrValidation)
	}
	if s == nil {
		return timeline.ModeLocked, nil
	}
	return timeline.ParseMode(*s)
}
