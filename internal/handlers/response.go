package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/rs/zerolog/log"

	"ragagent/internal/agent"
)

func jsonOK(v any) events.APIGatewayV2HTTPResponse {
	return jsonResp(http.StatusOK, v)
}

func jsonResp(status int, v any) events.APIGatewayV2HTTPResponse {
	b, _ := json.Marshal(v)
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type": "application/json",
		},
		Body: string(b),
	}
}

func jsonErr(status int, err error) events.APIGatewayV2HTTPResponse {
	return jsonResp(status, map[string]string{"error": err.Error()})
}

func textResp(status int, msg string) events.APIGatewayV2HTTPResponse {
	return events.APIGatewayV2HTTPResponse{
		StatusCode: status,
		Headers: map[string]string{
			"Content-Type": "text/plain; charset=utf-8",
		},
		Body: msg,
	}
}

// errorResponse is the one place a component error becomes a response:
// caller input problems are 400 plain text, everything else is a 500.
func errorResponse(err error) events.APIGatewayV2HTTPResponse {
	var ve *agent.ValidationError
	if errors.As(err, &ve) {
		return textResp(http.StatusBadRequest, ve.Error())
	}
	ev := log.Error().Err(err)
	var re *agent.RemoteServiceError
	if errors.As(err, &re) {
		ev = ev.Str("op", re.Op).Str("code", re.Code)
	}
	ev.Msg("request failed")
	return jsonErr(http.StatusInternalServerError, err)
}
