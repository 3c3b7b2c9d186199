// Package openapi embeds the OpenAPI document for the users API.
package openapi

import _ "embed"

//go:embed openapi.json
var Spec []byte
