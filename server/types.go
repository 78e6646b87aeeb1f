package server

import (
	"github.com/go-playground/validator/v10"

	"github.com/hupe1980/geoknn/model"
)

func newValidator() (*validator.Validate, error) {
	v := validator.New(validator.WithRequiredStructEnabled())
	if err := v.RegisterValidation("finite", validateFinite); err != nil {
		return nil, err
	}
	return v, nil
}

// validateFinite rejects NaN and infinite floats, which strconv accepts in
// query strings.
func validateFinite(fl validator.FieldLevel) bool {
	return model.IsFinite(fl.Field().Float())
}

// PointRequest is the body of POST /v1/points.
type PointRequest struct {
	Lat       *float64  `json:"lat" validate:"required,finite"`
	Lon       *float64  `json:"lon" validate:"required,finite"`
	Embedding []float32 `json:"embedding" validate:"required,len=128"`
	PersonID  string    `json:"person_id" validate:"max=99"`
}

// NeighborsQuery holds the query parameters of GET /v1/neighbors.
type NeighborsQuery struct {
	Lat *float64 `form:"lat" validate:"required,finite"`
	Lon *float64 `form:"lon" validate:"required,finite"`
	N   int      `form:"n,default=1" validate:"gte=1"`
}

// PointResponse is one search hit.
type PointResponse struct {
	Lat       float64   `json:"lat"`
	Lon       float64   `json:"lon"`
	PersonID  string    `json:"person_id"`
	Embedding []float32 `json:"embedding"`
}

func newPointResponse(rec *model.Record) PointResponse {
	return PointResponse{
		Lat:       rec.Lat,
		Lon:       rec.Lon,
		PersonID:  rec.ID,
		Embedding: rec.EmbeddingSlice(),
	}
}

// MessageResponse acknowledges a mutation.
type MessageResponse struct {
	Message string      `json:"message"`
	Row     model.RowID `json:"row,omitempty"`
}

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status string `json:"status"`
	Points int    `json:"points"`
}

// ErrorResponse is returned on every failure.
type ErrorResponse struct {
	Error   string       `json:"error"`
	Code    string       `json:"code"`
	Details []FieldError `json:"details,omitempty"`
}

// FieldError describes one failed validation rule.
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}
