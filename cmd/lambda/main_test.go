package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"testing"

	"github.com/aws/aws-lambda-go/events"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const vpcDiagram = `{
  "nodes": [{"id": "vpc-1", "type": "custom", "position": {"x": 0, "y": 0},
             "data": {"label": "Main", "cidr_block": "10.0.0.0/16"}}],
  "edges": []
}`

func invoke(t *testing.T, req events.APIGatewayProxyRequest) (int, Response) {
	t.Helper()
	a := &app{log: zap.NewNop()}
	resp, err := a.handle(context.Background(), req)
	require.NoError(t, err)
	var out Response
	require.NoError(t, json.Unmarshal([]byte(resp.Body), &out))
	return resp.StatusCode, out
}

func TestHandle(t *testing.T) {
	status, out := invoke(t, events.APIGatewayProxyRequest{
		Body:                  vpcDiagram,
		QueryStringParameters: map[string]string{"tfvars": "false", "region": "eu-west-1"},
	})
	require.Equal(t, http.StatusOK, status)
	assert.True(t, out.Success)
	assert.NotContains(t, out.Files, "terraform.tfvars")

	mainTF, err := base64.StdEncoding.DecodeString(out.Files["main.tf"])
	require.NoError(t, err)
	assert.Contains(t, string(mainTF), `resource "aws_vpc"`)
}

func TestHandle_Base64Body(t *testing.T) {
	status, out := invoke(t, events.APIGatewayProxyRequest{
		Body:            base64.StdEncoding.EncodeToString([]byte(vpcDiagram)),
		IsBase64Encoded: true,
	})
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, out.Files, "terraform.tfvars")
}

func TestHandle_BadInput(t *testing.T) {
	tests := []struct {
		name string
		req  events.APIGatewayProxyRequest
		want int
		typ  string
	}{
		{"bad json", events.APIGatewayProxyRequest{Body: "{"}, http.StatusBadRequest, "invalid_json"},
		{"bad base64", events.APIGatewayProxyRequest{Body: "%%%", IsBase64Encoded: true}, http.StatusBadRequest, "invalid_input"},
		{"bad provider", events.APIGatewayProxyRequest{Body: vpcDiagram, QueryStringParameters: map[string]string{"provider": "azure"}}, http.StatusBadRequest, "invalid_input"},
		{"missing cidr", events.APIGatewayProxyRequest{Body: `{"nodes":[{"id":"vpc-1","data":{}}],"edges":[]}`}, http.StatusUnprocessableEntity, "validation_error"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, out := invoke(t, tt.req)
			assert.Equal(t, tt.want, status)
			assert.False(t, out.Success)
			require.NotEmpty(t, out.Errors)
			assert.Equal(t, tt.typ, out.Errors[0].Type)
		})
	}
}
