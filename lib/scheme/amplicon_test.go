//
// Copyright (C) 2025 ARTIC Network
//
// This Source Code Form is subject to the terms of the Mozilla Public
// License, v. 2.0. If a copy of the MPL was not distributed with this
// file, You can obtain one at https://www.mozilla.org/MPL/2.0/.
//

package scheme

import (
	"strings"
	"testing"
)

func testAmplicons(t *testing.T) []Amplicon {
	t.Helper()
	primers, err := Read(strings.NewReader(testBed))
	if err != nil {
		t.Fatal(err)
	}
	amplicons, err := CreateAmplicons(MergePrimers(primers))
	if err != nil {
		t.Fatal(err)
	}
	return amplicons
}

func TestCreateAmplicons(t *testing.T) {
	amplicons := testAmplicons(t)
	if len(amplicons) != 2 {
		t.Fatalf("got %d amplicons, want 2", len(amplicons))
	}
	a1 := amplicons[0]
	if a1.Number != 1 || a1.Pool != 1 || a1.Chrom != "MN908947.3" {
		t.Errorf("unexpected amplicon 1: %+v", a1)
	}
	if a1.Start != 100 || a1.End != 420 {
		t.Errorf("amplicon 1 span [%d,%d), want [100,420)", a1.Start, a1.End)
	}
	a2 := amplicons[1]
	if a2.Start != 350 || a2.End != 725 {
		t.Errorf("amplicon 2 span [%d,%d), want [350,725)", a2.Start, a2.End)
	}
}

func TestCreateAmpliconsMissingSide(t *testing.T) {
	primers := []Primer{
		{Chrom: "c", Start: 0, End: 10, Name: "s_1_LEFT", Pool: 1, Strand: 1, AmpliconNumber: 1, Side: SideLeft},
	}
	if _, err := CreateAmplicons(primers); err == nil {
		t.Error("expected error for amplicon missing a right primer")
	}
}

func TestCreateAmpliconsMixedPool(t *testing.T) {
	primers := []Primer{
		{Chrom: "c", Start: 0, End: 10, Name: "s_1_LEFT", Pool: 1, Strand: 1, AmpliconNumber: 1, Side: SideLeft},
		{Chrom: "c", Start: 90, End: 100, Name: "s_1_RIGHT", Pool: 2, Strand: -1, AmpliconNumber: 1, Side: SideRight},
	}
	if _, err := CreateAmplicons(primers); err == nil {
		t.Error("expected error for amplicon spanning pools")
	}
}

func TestValidatePoolOverlaps(t *testing.T) {
	amplicons := testAmplicons(t)
	// Amplicons 1 and 2 overlap on the reference but sit in different
	// pools: valid.
	if err := ValidatePoolOverlaps(amplicons); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	// Force both into pool 1: invalid.
	amplicons[1].Pool = 1
	if err := ValidatePoolOverlaps(amplicons); err == nil {
		t.Error("expected same-pool overlap error")
	}
}

func TestValidatePoolOverlapsDisjoint(t *testing.T) {
	amplicons := []Amplicon{
		{Number: 1, Chrom: "c", Pool: 1, Start: 0, End: 100},
		{Number: 3, Chrom: "c", Pool: 1, Start: 100, End: 200},
	}
	if err := ValidatePoolOverlaps(amplicons); err != nil {
		t.Errorf("adjacent half-open amplicons should not overlap: %v", err)
	}
}
