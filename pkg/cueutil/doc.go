// SPDX-License-Identifier: MPL-2.0

// Package cueutil provides the shared CUE decoding flow used for unit
// manifests, mixin configs and the host configuration file.
//
// Every caller follows the same three steps:
//
//  1. Compile the embedded schema
//  2. Compile the user document (CUE or plain JSON) and unify with the schema
//  3. Validate and decode into a Go value
//
// # Usage
//
//	//go:embed manifest_schema.cue
//	var manifestSchema []byte
//
//	result, err := cueutil.ParseAndDecode[Manifest](
//	    manifestSchema,
//	    data,
//	    "#Manifest",
//	    cueutil.WithFilename("unit.json"),
//	)
//	if err != nil {
//	    return nil, err // error carries the CUE path of the offending field
//	}
//	return result.Value, nil
package cueutil
