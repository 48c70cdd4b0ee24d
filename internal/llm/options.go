package llm

import (
	"fmt"
	"strings"

	einoModel "github.com/cloudwego/eino/components/model"
	"github.com/sashabaranov/go-openai/jsonschema"
)

// Options are provider-specific settings understood by the adapters in this
// package. ark and qwen models ignore them.
type Options struct {
	ResponseSchema  *jsonschema.Definition
	DisableThinking bool
}

// WithJSONResponse constrains the reply to JSON matching schema.
func WithJSONResponse(schema *jsonschema.Definition) einoModel.Option {
	return einoModel.WrapImplSpecificOptFn(func(o *Options) {
		o.ResponseSchema = schema
	})
}

func WithThinkingDisabled() einoModel.Option {
	return einoModel.WrapImplSpecificOptFn(func(o *Options) {
		o.DisableThinking = true
	})
}

// resolveOptions merges call options over the adapter defaults.
func resolveOptions(temperature float32, opts []einoModel.Option) (*einoModel.Options, *Options) {
	common := einoModel.GetCommonOptions(&einoModel.Options{Temperature: &temperature}, opts...)
	impl := einoModel.GetImplSpecificOptions(&Options{}, opts...)
	return common, impl
}

// DataURI encodes already base64-encoded data as a data URI.
func DataURI(mimeType, b64 string) string {
	return "data:" + mimeType + ";base64," + b64
}

// parseDataURI splits a base64 data URI into its media type and payload.
func parseDataURI(uri string) (mimeType, b64 string, err error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return "", "", fmt.Errorf("only data URIs are supported, got %.16q", uri)
	}
	meta, data, ok := strings.Cut(rest, ",")
	if !ok {
		return "", "", fmt.Errorf("malformed data URI")
	}
	mimeType, ok = strings.CutSuffix(meta, ";base64")
	if !ok {
		return "", "", fmt.Errorf("data URI is not base64 encoded")
	}
	return mimeType, data, nil
}
