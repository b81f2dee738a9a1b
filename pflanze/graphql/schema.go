// Package graphql 提供 Pflanze 的 GraphQL 查询与变更
package graphql

import (
	_ "embed"
	"net/http"

	graphql "github.com/graph-gophers/graphql-go"
	"github.com/graph-gophers/graphql-go/relay"

	"pflanzen/pflanze"
)

//go:embed schema.graphql
var schemaSDL string

// NewSchema 解析内嵌的 schema 并绑定解析器
func NewSchema(service *pflanze.Service) (*graphql.Schema, error) {
	return graphql.ParseSchema(schemaSDL, NewResolver(service))
}

// Handler POST /graphql
func Handler(schema *graphql.Schema) http.Handler {
	return &relay.Handler{Schema: schema}
}
