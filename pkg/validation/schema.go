// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package validation checks JSON-Schema documents and candidate instances
// against the draft-2020-12 dialect.
//
// Both entry points are total: any malformed schema, failing constraint,
// failing format check or internal validator error is converted into a false
// return, never a panic or an error value. The functions are side-effect-free
// and safe for concurrent use from multiple evaluator goroutines.
package validation

import (
	"fmt"
	"net/netip"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/AleutianAI/schemabench/pkg/types"
)

const schemaURL = "inline://schema.json"

// IsSchemaValid reports whether schema conforms to the draft-2020-12
// meta-schema. It returns false for any document that fails dialect
// conformance, including documents the compiler cannot process at all.
func IsSchemaValid(schema types.Schema) bool {
	_, err := compile(schema)
	return err == nil
}

// ValidateInstance reports whether instance conforms to schema. It returns
// false when the schema itself is invalid, when any constraint or format
// check fails, or when the validator errors internally.
func ValidateInstance(instance any, schema types.Schema) (ok bool) {
	// Extension format checks can misbehave on pathological input; a sample
	// must classify as non-conforming rather than take down the evaluator.
	defer func() {
		if r := recover(); r != nil {
			ok = false
		}
	}()

	compiled, err := compile(schema)
	if err != nil {
		return false
	}
	return compiled.Validate(instance) == nil
}

// compile builds a fresh draft-2020-12 validator for the schema with the
// custom format checks registered. A new compiler per call keeps the package
// free of shared mutable state.
func compile(schema types.Schema) (compiled *jsonschema.Schema, err error) {
	defer func() {
		if r := recover(); r != nil {
			compiled, err = nil, fmt.Errorf("schema compiler panicked: %v", r)
		}
	}()

	c := jsonschema.NewCompiler()
	c.DefaultDraft(jsonschema.Draft2020)
	c.AssertFormat()
	c.RegisterFormat(&jsonschema.Format{Name: "ipv4", Validate: checkIPv4})
	c.RegisterFormat(&jsonschema.Format{Name: "ipv6", Validate: checkIPv6})
	c.RegisterFormat(&jsonschema.Format{Name: "uuid", Validate: checkUUID})

	if err := c.AddResource(schemaURL, any(schema)); err != nil {
		return nil, err
	}
	return c.Compile(schemaURL)
}

// checkIPv4 accepts dotted-quad IPv4 literals. Non-string values pass; the
// format keyword constrains strings only.
func checkIPv4(v any) error {
	s, isStr := v.(string)
	if !isStr {
		return nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return err
	}
	if !addr.Is4() {
		return fmt.Errorf("%q is not an IPv4 address", s)
	}
	return nil
}

// checkIPv6 accepts IPv6 literals, including mapped and compressed forms.
func checkIPv6(v any) error {
	s, isStr := v.(string)
	if !isStr {
		return nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return err
	}
	if addr.Is4() {
		return fmt.Errorf("%q is not an IPv6 address", s)
	}
	return nil
}

// checkUUID accepts RFC 4122 textual UUIDs.
func checkUUID(v any) error {
	s, isStr := v.(string)
	if !isStr {
		return nil
	}
	_, err := uuid.Parse(s)
	return err
}
