// Command lambda serves Terraform generation behind an API Gateway proxy
// integration. The request body is the diagram JSON; query parameters
// provider, region, project and tfvars tune the output.
package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	"go.uber.org/zap"

	"github.com/json-to-terraform/atc/internal/codegen"
	"github.com/json-to-terraform/atc/internal/config"
	"github.com/json-to-terraform/atc/internal/diagram"
	_ "github.com/json-to-terraform/atc/internal/handler" // register handlers
	"github.com/json-to-terraform/atc/internal/logger"
	"github.com/json-to-terraform/atc/internal/registry"
	"github.com/json-to-terraform/atc/internal/result"
)

// Response is the JSON body returned to the client.
type Response struct {
	Success  bool              `json:"success"`
	Errors   []result.Error    `json:"errors,omitempty"`
	Warnings []result.Warning  `json:"warnings,omitempty"`
	Files    map[string]string `json:"files,omitempty"` // filename -> base64 content
}

type app struct {
	log *zap.Logger
}

func (a *app) handle(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	body := req.Body
	if req.IsBase64Encoded {
		dec, err := base64.StdEncoding.DecodeString(body)
		if err != nil {
			return failure(http.StatusBadRequest, "invalid_input", "invalid base64 body: "+err.Error()), nil
		}
		body = string(dec)
	}

	var d diagram.Diagram
	if err := json.Unmarshal([]byte(body), &d); err != nil {
		return failure(http.StatusBadRequest, "invalid_json", "invalid diagram JSON: "+err.Error()), nil
	}

	opts, err := optionsFrom(req.QueryStringParameters)
	if err != nil {
		return failure(http.StatusBadRequest, "invalid_input", err.Error()), nil
	}
	res, err := codegen.New(opts, a.log).Generate(ctx, &d)
	if err != nil {
		a.log.Error("generation aborted", zap.Error(err))
		return failure(http.StatusInternalServerError, "generation_error", err.Error()), nil
	}

	out := Response{Success: res.Success, Errors: res.Errors, Warnings: res.Warnings}
	status := http.StatusOK
	if res.Success {
		out.Files = make(map[string]string, len(res.TerraformFiles))
		for name, content := range res.TerraformFiles {
			out.Files[name] = base64.StdEncoding.EncodeToString(content)
		}
	} else {
		status = http.StatusUnprocessableEntity
	}
	return wrap(status, out), nil
}

func optionsFrom(q map[string]string) (codegen.Options, error) {
	opts := codegen.DefaultOptions()
	if p := q["provider"]; p != "" {
		if p != registry.ProviderAWS && p != registry.ProviderGCP {
			return opts, fmt.Errorf("unsupported provider: %s", p)
		}
		opts.Provider = p
	}
	opts.Region = q["region"]
	opts.Project = q["project"]
	if v, ok := q["tfvars"]; ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, err
		}
		opts.EmitTfvars = b
	}
	return opts, nil
}

func failure(status int, typ, msg string) events.APIGatewayProxyResponse {
	return wrap(status, Response{Errors: []result.Error{{Type: typ, Severity: "error", Message: msg}}})
}

func wrap(status int, out Response) events.APIGatewayProxyResponse {
	b, _ := json.Marshal(out)
	return events.APIGatewayProxyResponse{
		StatusCode: status,
		Headers:    map[string]string{"Content-Type": "application/json"},
		Body:       string(b),
	}
}

func main() {
	a := &app{log: logger.New(config.LoggingConfig{Level: "info", Format: "json"})}
	defer func() { _ = a.log.Sync() }()
	lambda.Start(a.handle)
}
