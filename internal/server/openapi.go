package server

import "github.com/morezero/member-query/pkg/catalog"

// openAPI3 types for generating a spec from the capability catalog.
type openAPI3Spec struct {
	OpenAPI string                      `json:"openapi"`
	Info    openAPI3Info                `json:"info"`
	Paths   map[string]openAPI3PathItem `json:"paths"`
}

type openAPI3Info struct {
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Version     string `json:"version"`
}

type openAPI3PathItem struct {
	Post *openAPI3Operation `json:"post,omitempty"`
}

type openAPI3Operation struct {
	Summary     string                      `json:"summary"`
	Description string                      `json:"description,omitempty"`
	OperationID string                      `json:"operationId"`
	RequestBody *openAPI3RequestBody        `json:"requestBody,omitempty"`
	Responses   map[string]openAPI3Response `json:"responses"`
}

type openAPI3RequestBody struct {
	Content map[string]openAPI3MediaType `json:"content"`
}

type openAPI3Response struct {
	Description string                       `json:"description"`
	Content     map[string]openAPI3MediaType `json:"content,omitempty"`
}

type openAPI3MediaType struct {
	Schema map[string]interface{} `json:"schema,omitempty"`
}

// buildOpenAPISpec builds an OpenAPI 3.0 spec with one path per capability.
func buildOpenAPISpec(c *catalog.Catalog) *openAPI3Spec {
	paths := make(map[string]openAPI3PathItem)
	for _, d := range c.List() {
		schema := d.Parameters
		if schema == nil {
			schema = map[string]interface{}{"type": "object"}
		}
		paths["/"+d.Name] = openAPI3PathItem{
			Post: &openAPI3Operation{
				Summary:     d.Name,
				Description: d.Description,
				OperationID: d.Name,
				RequestBody: &openAPI3RequestBody{
					Content: map[string]openAPI3MediaType{
						"application/json": {Schema: schema},
					},
				},
				Responses: map[string]openAPI3Response{
					"200": {
						Description: "Capability result as returned to the model",
						Content: map[string]openAPI3MediaType{
							"application/json": {Schema: map[string]interface{}{}},
						},
					},
				},
			},
		}
	}
	return &openAPI3Spec{
		OpenAPI: "3.0.0",
		Info: openAPI3Info{
			Title:       "member-query capabilities",
			Description: "Capabilities the language model may invoke",
			Version:     catalog.Version,
		},
		Paths: paths,
	}
}
