//
// Copyright (C) 2025 ARTIC Network
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package depth

import "testing"

func TestAcceptDisabled(t *testing.T) {
	n := New(0)
	for i := 0; i < 100; i++ {
		if !n.Accept("chr1", 1) {
			t.Fatal("disabled normalizer rejected a read")
		}
	}
}

func TestAcceptCap(t *testing.T) {
	n := New(5)
	var accepted int
	for i := 0; i < 10; i++ {
		if n.Accept("chr1", 1) {
			// Exactly the first 5 candidates survive.
			if i >= 5 {
				t.Errorf("read %d accepted past the cap", i)
			}
			accepted++
		}
	}
	if accepted != 5 {
		t.Errorf("accepted %d reads, want 5", accepted)
	}
	if n.Count("chr1", 1) != 10 {
		t.Errorf("Count = %d, want 10", n.Count("chr1", 1))
	}
}

func TestAcceptPair(t *testing.T) {
	n := New(3)
	results := []bool{true, true, false, false}
	for i, want := range results {
		if got := n.AcceptPair("chr1", 1); got != want {
			t.Errorf("pair %d: AcceptPair = %v, want %v", i, got, want)
		}
	}
	// Both mates count even when the pair is rejected.
	if n.Count("chr1", 1) != 8 {
		t.Errorf("Count = %d, want 8", n.Count("chr1", 1))
	}
	if !New(0).AcceptPair("chr1", 1) {
		t.Error("disabled normalizer rejected a pair")
	}
}

func TestAcceptIndependentKeys(t *testing.T) {
	n := New(1)
	if !n.Accept("chr1", 1) {
		t.Error("first read for amplicon 1 rejected")
	}
	if n.Accept("chr1", 1) {
		t.Error("second read for amplicon 1 accepted")
	}
	if !n.Accept("chr1", 2) {
		t.Error("amplicon 2 capped by amplicon 1")
	}
	if !n.Accept("chr2", 1) {
		t.Error("chr2 capped by chr1")
	}
}
