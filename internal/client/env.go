// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package client

import (
	"strings"
	"unicode/utf8"

	"github.com/jalberss/shpool/internal/protocol"
)

// DefaultForwardEnv is the allow-list of variables an attach propagates
// when the config does not name its own.
var DefaultForwardEnv = []string{"TERM", "SSH_AUTH_SOCK", "DISPLAY", "LANG"}

// FilterEnv picks the allow-listed variables out of environ (KEY=VALUE
// entries, as from os.Environ). Output follows allow-list order; unset
// variables and values that are not valid UTF-8 are skipped, since the
// daemon rejects any header carrying one.
func FilterEnv(allow []string, environ []string) []protocol.EnvVar {
	values := make(map[string]string, len(environ))
	for _, entry := range environ {
		key, value, ok := strings.Cut(entry, "=")
		if !ok || key == "" {
			continue
		}
		if _, seen := values[key]; !seen {
			values[key] = value
		}
	}
	var out []protocol.EnvVar
	for _, key := range allow {
		key = strings.TrimSpace(key)
		value, ok := values[key]
		if !ok || !utf8.ValidString(key) || !utf8.ValidString(value) {
			continue
		}
		out = append(out, protocol.EnvVar{Key: key, Value: value})
	}
	return out
}
