// Copyright (c) 2025 AUTHORS All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package tty

import "testing"

func TestParseSize(t *testing.T) {
	cases := []struct {
		in   string
		want Size
		ok   bool
	}{
		{in: "24x80", want: Size{Rows: 24, Cols: 80}, ok: true},
		{in: " 40X132 ", want: Size{Rows: 40, Cols: 132}, ok: true},
		{in: "24", ok: false},
		{in: "0x80", ok: false},
		{in: "24x", ok: false},
		{in: "70000x80", ok: false},
	}
	for _, tc := range cases {
		got, err := ParseSize(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("ParseSize(%q): %v", tc.in, err)
		}
		if !tc.ok {
			if err == nil {
				t.Fatalf("ParseSize(%q): expected error, got %+v", tc.in, got)
			}
			continue
		}
		if got != tc.want {
			t.Fatalf("ParseSize(%q) = %+v, want %+v", tc.in, got, tc.want)
		}
	}
}

func TestSizeString(t *testing.T) {
	if got := (Size{Rows: 24, Cols: 80}).String(); got != "24x80" {
		t.Fatalf("unexpected string: %s", got)
	}
	if !(Size{}).IsZero() {
		t.Fatal("expected zero size")
	}
}
