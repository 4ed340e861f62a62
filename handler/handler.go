package handler

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/google/uuid"

	"newsbias/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

// Evaluator is the use case served by the handler.
type Evaluator interface {
	Evaluate(ctx context.Context, in usecase.EvaluateInput) (usecase.EvaluateOutput, error)
}

type evaluateRequest struct {
	URL     string `json:"url"`
	Summary string `json:"summary"`
}

type evaluateResponse struct {
	EvaluationID string `json:"evaluationId"`
	Result       string `json:"result"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

// Handler adapts API Gateway proxy events to the evaluation use case.
type Handler struct {
	evaluator Evaluator
}

func NewHandler(e Evaluator) (*Handler, error) {
	if e == nil {
		return nil, errors.New("handler: evaluator must not be nil")
	}
	return &Handler{evaluator: e}, nil
}

func (h *Handler) Handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	correlationID := headerValue(req.Headers, correlationHeader)
	if correlationID == "" {
		correlationID = newCorrelationID()
	}
	log := slog.With("correlation_id", correlationID)

	if req.HTTPMethod != "" && req.HTTPMethod != http.MethodPost {
		return errorJSON(correlationID, http.StatusMethodNotAllowed, usecase.ErrorInvalidInput, "method_not_allowed"), nil
	}

	body, err := decodeRequest(req)
	if err != nil {
		log.Warn("invalid request body", "err", err)
		return errorJSON(correlationID, http.StatusBadRequest, usecase.ErrorInvalidInput, "invalid_body"), nil
	}

	out, err := h.evaluator.Evaluate(ctx, usecase.EvaluateInput{
		ArticleURL: body.URL,
		Summary:    body.Summary,
	})
	if err != nil {
		status, code, reason := mapError(err)
		if status >= http.StatusInternalServerError {
			log.Error("evaluation failed", "code", code, "reason", reason, "err", err)
		} else {
			log.Warn("evaluation rejected", "code", code, "reason", reason)
		}
		return errorJSON(correlationID, status, code, reason), nil
	}

	log.Info("evaluation complete", "evaluation_id", out.EvaluationID)
	return jsonResponse(correlationID, http.StatusOK, evaluateResponse{
		EvaluationID: out.EvaluationID,
		Result:       out.Result,
	}), nil
}

// decodeRequest reads the JSON body, which API Gateway may deliver base64 encoded.
func decodeRequest(req events.APIGatewayProxyRequest) (evaluateRequest, error) {
	raw := req.Body
	if req.IsBase64Encoded {
		b, err := base64.StdEncoding.DecodeString(raw)
		if err != nil {
			return evaluateRequest{}, fmt.Errorf("decode base64 body: %w", err)
		}
		raw = string(b)
	}

	var body evaluateRequest
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&body); err != nil {
		return evaluateRequest{}, err
	}
	return body, nil
}

func mapError(err error) (int, usecase.ErrorCode, string) {
	var ue *usecase.Error
	if !errors.As(err, &ue) {
		return http.StatusInternalServerError, usecase.ErrorInternal, "unexpected_error"
	}
	switch ue.Code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest, ue.Code, ue.Reason
	case usecase.ErrorRateLimited:
		return http.StatusTooManyRequests, ue.Code, ue.Reason
	case usecase.ErrorFetch, usecase.ErrorContext, usecase.ErrorUpstream:
		return http.StatusBadGateway, ue.Code, ue.Reason
	default:
		return http.StatusInternalServerError, usecase.ErrorInternal, ue.Reason
	}
}

func headerValue(headers map[string]string, name string) string {
	for k, v := range headers {
		if strings.EqualFold(k, name) {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func errorJSON(correlationID string, status int, code usecase.ErrorCode, reason string) events.APIGatewayProxyResponse {
	return jsonResponse(correlationID, status, errorResponse{Error: string(code), Message: reason})
}

func jsonResponse(correlationID string, status int, v any) events.APIGatewayProxyResponse {
	body, err := json.Marshal(v)
	if err != nil {
		status = http.StatusInternalServerError
		body = []byte(`{"error":"INTERNAL_ERROR","message":"encode_response"}`)
	}
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type":    "application/json",
			correlationHeader: correlationID,
		},
		Body: string(body),
	}
}

var newCorrelationID = func() string {
	return uuid.NewString()
}
