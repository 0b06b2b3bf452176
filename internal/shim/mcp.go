// Package shim is the HTTP gateway authorized MCP clients call through:
// unauthenticated at the transport layer, authenticated per request against
// the operator's client directory, and responsible only for routing a
// decoded MCP request to a provider lookup or a payment attempt. It never
// executes the resulting HTTP call against a provider itself; that cURL
// execution is an external collaborator's job, so the call_provider path
// only ever returns the outbound request it would have made.
package shim

import (
	"encoding/json"
	"fmt"
)

// AdapterRequest is the outer envelope posted to /shim/mcp, combining
// client authentication with an opaque inner MCP request.
type AdapterRequest struct {
	ClientID       string `json:"client_id"`
	Token          string `json:"token"`
	ClientName     string `json:"client_name,omitempty"`
	McpRequestJSON string `json:"mcp_request_json"`
}

// AdapterResponse wraps the JSON-encoded result of the inner MCP request.
type AdapterResponse struct {
	JSONResponse string `json:"json_response"`
}

// mcpEnvelope is the inner contract carried by McpRequestJSON: exactly one
// of Search or CallProvider is populated, discriminated by Kind.
type mcpEnvelope struct {
	Kind         string             `json:"kind"`
	Search       *searchRequest     `json:"search,omitempty"`
	CallProvider *callProviderInput `json:"call_provider,omitempty"`
}

type searchRequest struct {
	Query string `json:"query"`
}

type searchResult struct {
	ProviderID  string `json:"provider_id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type searchResponse struct {
	Results []searchResult `json:"results"`
}

// argPair mirrors the shim's wire shape for call arguments: tuples, not
// {key,value} objects.
type argPair [2]string

type callProviderInput struct {
	ProviderID   string    `json:"providerId"`
	ProviderName string    `json:"providerName"`
	Arguments    []argPair `json:"arguments"`
}

// outboundRequest is the shape of the provider call the gateway would make,
// described but never executed here.
type outboundRequest struct {
	Method string            `json:"method"`
	URL    string            `json:"url"`
	Body   map[string]string `json:"body,omitempty"`
}

type callProviderResponse struct {
	Status       string          `json:"status"`
	ProviderID   string          `json:"provider_id"`
	ProviderName string          `json:"provider_name"`
	Request      outboundRequest `json:"request"`
}

// decodeMcpEnvelope parses the inner mcp_request_json string.
func decodeMcpEnvelope(raw string) (mcpEnvelope, error) {
	var env mcpEnvelope
	if err := json.Unmarshal([]byte(raw), &env); err != nil {
		return mcpEnvelope{}, fmt.Errorf("shim: decode mcp request: %w", err)
	}
	if env.Kind == "" {
		return mcpEnvelope{}, fmt.Errorf("shim: mcp request missing kind")
	}
	return env, nil
}

// buildOutboundRequest describes the HTTP call for a call_provider request:
// a POST to the provider's registered site with the request's arguments as
// the body. The provider's instructions and price are not consulted, and no
// network call is made.
func buildOutboundRequest(site string, in callProviderInput) outboundRequest {
	body := make(map[string]string, len(in.Arguments))
	for _, pair := range in.Arguments {
		body[pair[0]] = pair[1]
	}
	return outboundRequest{Method: "POST", URL: site, Body: body}
}
