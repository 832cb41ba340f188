// Copyright (c) 2025, NVIDIA CORPORATION.  All rights reserved.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package serializer writes envelope and configuration data to stdout, a
// file, or an HTTP response in JSON, YAML, or table format.
//
// # Supported formats
//
// JSON: indented with two spaces, machine-parseable; the default used by one-shot probe
// commands and the broker sink.
//
// YAML: human-readable; used by the "sonar config dump" debug command.
//
// Table: flattens nested struct/map/slice fields into a FIELD/VALUE grid for
// terminal viewing. Write-only — there is no table decoder.
//
// # Usage
//
//	w := serializer.NewStdoutWriter(serializer.FormatJSON)
//	defer w.Close()
//	if err := w.Serialize(ctx, envelope); err != nil {
//	    return err
//	}
//
// NewFileWriterOrStdout writes to a path, or to stdout when the path is
// empty or "-":
//
//	w, err := serializer.NewFileWriterOrStdout(serializer.FormatYAML, outPath)
//
// RespondJSON writes a JSON HTTP response, buffering the encode so an
// encoding error never produces a partial body with a 200 already written:
//
//	serializer.RespondJSON(w, http.StatusOK, data)
//
// # Unknown formats
//
// An unrecognized Format value falls back to JSON with a logged warning
// rather than failing the caller.
package serializer
