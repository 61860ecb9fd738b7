// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package messages turns a task schema into the chat prompt sent to an
// engine. The default formatter prepends a small set of few-shot examples
// keyed by task family.
package messages

import (
	"encoding/json"

	"github.com/AleutianAI/schemabench/pkg/types"
)

// Formatter builds the prompt for one sample: the task name selects the
// few-shot examples, the schema becomes the final user message.
type Formatter func(task string, schema types.Schema) []types.Message

const systemPrompt = "You need to generate a JSON object that matches the schema below."

// FewShots is the default Formatter: a system instruction, example
// (schema, instance) turns for the task family, then the target schema.
func FewShots(task string, schema types.Schema) []types.Message {
	msgs := []types.Message{{Role: "system", Content: systemPrompt}}

	for _, ex := range examplesFor(task) {
		msgs = append(msgs,
			types.Message{Role: "user", Content: ex.schema},
			types.Message{Role: "assistant", Content: ex.instance},
		)
	}

	raw, err := json.Marshal(schema)
	if err != nil {
		raw = []byte("{}")
	}
	return append(msgs, types.Message{Role: "user", Content: string(raw)})
}

// ZeroShot formats the prompt without examples.
func ZeroShot(_ string, schema types.Schema) []types.Message {
	raw, err := json.Marshal(schema)
	if err != nil {
		raw = []byte("{}")
	}
	return []types.Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: string(raw)},
	}
}

type example struct {
	schema   string
	instance string
}

func examplesFor(task string) []example {
	for _, group := range exampleGroups {
		for _, name := range group.tasks {
			if name == task {
				return group.examples
			}
		}
	}
	return nil
}

type exampleGroup struct {
	tasks    []string
	examples []example
}

// exampleGroups carries two curated (schema, instance) pairs per task family.
// The Github split shares one group across difficulty tiers.
var exampleGroups = []exampleGroup{
	{
		tasks: []string{"Snowplow"},
		examples: []example{
			{
				schema:   `{"additionalProperties": false, "description": "Schema for a JSON Paths file for loading Redshift from JSON or Avro", "properties": {"jsonpaths": {"items": {"type": "string"}, "minItems": 1, "type": "array"}}, "required": ["jsonpaths"], "self": {"format": "jsonschema", "name": "jsonpaths_file", "vendor": "com.amazon.aws.redshift", "version": "1-0-0"}, "type": "object"}`,
				instance: `{"jsonpaths": ["$.user.id", "$.user.name", "$.user.address.street"]}`,
			},
			{
				schema:   `{"additionalProperties": false, "description": "Schema for a Google Analytics enhanced e-commerce product impression custom metric entity", "properties": {"customMetricIndex": {"maximum": 200, "minimum": 1, "type": "integer"}, "listIndex": {"maximum": 200, "minimum": 1, "type": "integer"}, "productIndex": {"maximum": 200, "minimum": 1, "type": "integer"}, "value": {"type": ["integer", "null"]}}, "self": {"format": "jsonschema", "name": "product_impression_custom_metric", "vendor": "com.google.analytics.measurement-protocol", "version": "1-0-0"}, "type": "object"}`,
				instance: `{"customMetricIndex": 120, "listIndex": 45, "productIndex": 10, "value": 300}`,
			},
		},
	},
	{
		tasks: []string{"Github_easy", "Github_hard", "Github_medium", "Github_trivial", "Github_ultra"},
		examples: []example{
			{
				schema:   `{"$schema": "http://json-schema.org/draft-04/schema#", "definitions": {"address1": {"type": "string"}, "address2": {"type": "string"}, "city": {"type": "string"}, "country": {"type": "string"}, "postalCode": {"type": "string"}, "state": {"type": "string"}}, "description": "A simple address schema", "properties": {"address1": {"$ref": "#/definitions/address1"}, "address2": {"$ref": "#/definitions/address2"}, "city": {"$ref": "#/definitions/city"}, "country": {"$ref": "#/definitions/country"}, "postalCode": {"$ref": "#/definitions/postalCode"}, "state": {"$ref": "#/definitions/state"}}, "type": "object"}`,
				instance: `{"address1": "123 Main Street", "address2": "Apt 4B", "city": "Seattle", "country": "USA", "postalCode": "98101", "state": "WA"}`,
			},
			{
				schema:   `{"$schema": "http://json-schema.org/draft-06/schema#", "definitions": {"ElementType": {"enum": ["component", "directive"], "type": "string"}, "SelectorChange": {"properties": {"remove": {"description": "Remove directive/component", "type": "boolean"}, "replaceWith": {"description": "Replace original selector with new one", "type": "string"}, "selector": {"description": "Original selector to apply change to", "type": "string"}, "type": {"$ref": "#/definitions/ElementType", "description": "Type of selector the change applies to - either component or directive"}}, "required": ["selector", "type"], "type": "object"}}, "properties": {"changes": {"description": "An array of changes to component/directive selectors", "items": {"$ref": "#/definitions/SelectorChange"}, "type": "array"}}, "required": ["changes"], "type": "object"}`,
				instance: `{"changes": [{"selector": "app-root", "type": "component", "remove": false, "replaceWith": "new-root"}, {"selector": "my-directive", "type": "directive", "remove": true, "replaceWith": "new-directive"}]}`,
			},
		},
	},
	{
		tasks: []string{"Glaiveai2K"},
		examples: []example{
			{
				schema:   `{"properties": {"username": {"description": "The user's username", "type": "string"}, "email": {"description": "The user's email address", "type": "string"}, "age": {"description": "The user's age", "type": "integer"}, "is_active": {"description": "Whether the user is active", "type": "boolean"}}, "required": ["username", "email"], "type": "object"}`,
				instance: `{"username": "johndoe", "email": "john@example.com", "age": 30, "is_active": true}`,
			},
			{
				schema:   `{"properties": {"product_id": {"description": "The ID of the product", "type": "string"}, "rating": {"description": "The rating given by the user", "type": "integer"}, "comments": {"description": "Additional comments about the product", "type": "string"}}, "required": ["product_id", "rating"], "type": "object"}`,
				instance: `{"product_id": "12345", "rating": 5, "comments": "Excellent product! Highly recommend."}`,
			},
		},
	},
	{
		tasks: []string{"JsonSchemaStore"},
		examples: []example{
			{
				schema:   `{"$id": "https://json.schemastore.org/minecraft-trim-pattern.json", "$schema": "http://json-schema.org/draft-07/schema#", "description": "A trim pattern for a Minecraft data pack config schema", "properties": {"asset_id": {"type": "string"}, "description": {"properties": {"color": {"type": "string"}, "translate": {"type": "string"}}, "required": ["translate"], "type": "object"}, "template_item": {"type": "string"}}, "required": ["asset_id", "description", "template_item"], "title": "Minecraft Data Pack Trim Pattern", "type": "object"}`,
				instance: `{"asset_id": "minecraft:trim_pattern", "description": {"color": "#FFAA00", "translate": "trim_pattern.description"}, "template_item": "minecraft:template_item"}`,
			},
			{
				schema:   `{"$comment": "https://minecraft.fandom.com/wiki/Data_Pack", "$id": "https://json.schemastore.org/minecraft-damage-type.json", "$schema": "http://json-schema.org/draft-07/schema#", "description": "A damage type's for a Minecraft data pack config schema", "properties": {"death_message_type": {"enum": ["default", "fall_variants", "intentional_game_design"], "type": "string"}, "effects": {"enum": ["hurt", "thorns", "drowning", "burning", "poking", "freezing"], "type": "string"}, "exhaustion": {"type": "number"}, "message_id": {"type": "string"}, "scaling": {"enum": ["never", "always", "when_caused_by_living_non_player"], "type": "string"}}, "required": ["message_id", "scaling", "exhaustion"], "title": "Minecraft Data Pack Damage Type", "type": "object"}`,
				instance: `{"message_id": "minecraft:damage.message", "scaling": "always", "exhaustion": 0.3, "death_message_type": "default", "effects": "hurt"}`,
			},
		},
	},
	{
		tasks: []string{"Kubernetes"},
		examples: []example{
			{
				schema:   `{"description": "A topology selector requirement is a selector that matches given label. This is an alpha feature and may change in the future.", "properties": {"key": {"description": "The label key that the selector applies to.", "type": ["string", "null"]}, "values": {"description": "An array of string values. One value must match the label to be selected. Each entry in Values is ORed.", "items": {"type": ["string", "null"]}, "type": ["array", "null"]}}, "required": ["key", "values"], "type": "object"}`,
				instance: `{"key": "region", "values": ["us-west-1", "us-east-1"]}`,
			},
			{
				schema:   `{"description": "HostAlias holds the mapping between IP and hostnames that will be injected as an entry in the pod's hosts file.", "properties": {"hostnames": {"description": "Hostnames for the above IP address.", "items": {"type": ["string", "null"]}, "type": ["array", "null"]}, "ip": {"description": "IP address of the host file entry.", "type": ["string", "null"]}}, "type": "object"}`,
				instance: `{"ip": "192.168.1.1", "hostnames": ["example.com", "test.com"]}`,
			},
		},
	},
	{
		tasks: []string{"WashingtonPost"},
		examples: []example{
			{
				schema:   `{"additionalProperties": false, "description": "Models a auxiliary used in targeting a piece of content.", "properties": {"_id": {"description": "The unique identifier for this auxiliary.", "type": "string"}, "name": {"description": "The general name for this auxiliary.", "type": "string"}, "uid": {"description": "A short identifier for this auxiliary. Usually used in cases where a long form id cannot work.", "type": "string"}}, "required": ["_id", "uid"], "title": "Auxiliary", "type": "object"}`,
				instance: `{"_id": "12345", "uid": "aux123", "name": "Sample Auxiliary"}`,
			},
			{
				schema:   `{"additionalProperties": {}, "definitions": {"trait_additional_properties_json": {"$schema": "http://json-schema.org/draft-04/schema#", "additionalProperties": {}, "description": "A grab-bag object for non-validatable data.", "title": "Has additional properties", "type": "object"}}, "description": "Comment configuration data", "properties": {"additional_properties": {"$ref": "#/definitions/trait_additional_properties_json"}, "allow_comments": {"description": "If false, commenting is disabled on this content.", "type": "boolean"}, "comments_period": {"description": "How long (in days) after publish date until comments are closed.", "type": "integer"}, "display_comments": {"description": "If false, do not render comments on this content.", "type": "boolean"}, "moderation_required": {"description": "If true, comments must be moderator-approved before being displayed.", "type": "boolean"}}, "title": "Comments", "type": "object"}`,
				instance: `{"allow_comments": true, "comments_period": 30, "display_comments": true, "moderation_required": false, "additional_properties": {}}`,
			},
		},
	},
}
